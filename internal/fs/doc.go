// Package fs abstracts the file system used to build index files.
//
//   - [LocalFS]: the os package
//   - [FaultyFS]: wraps another FileSystem and injects write, sync, close or
//     open failures into matching files
//
// Production code uses fs.Default. Tests swap in a FaultyFS:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("postings", fs.Fault{FailAfterBytes: 1024})
//
// Calls take no context.Context: local file operations cannot be interrupted
// at the syscall level. Remote reads go through blobstore, which does.
package fs
