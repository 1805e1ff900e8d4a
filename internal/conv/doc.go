// Package conv provides checked integer conversions for values that end up
// in fixed-width on-disk fields, such as the record count in a block header.
package conv
