// Package blobstore stores immutable index files by name.
//
// An index is built locally and then either served from disk or published to
// a BlobStore and paged in from there:
//
//	store := blobstore.NewLocalStore("/var/lib/ftstore")
//	blob, err := store.Open(ctx, "shard-7/postings.skl")
//
// Implementations:
//
//   - LocalStore: files under a root directory, read through memory maps
//   - MemoryStore: an in-process map, for tests
//   - minio.Store: MinIO and other S3-compatible object stores
//
// Writes are all-or-nothing: a blob created with Create only becomes visible
// under its name once the writer is closed.
package blobstore
