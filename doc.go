// Package ftstore provides the storage core of a full-text search engine:
// posting lists laid out as skip lists in fixed 512-byte blocks, read
// through a concurrent page cache.
//
// # Quick Start
//
// Build an index file:
//
//	b, _ := ftstore.Build("terms.idx")
//	off, _ := b.Add(docIDs, freqs) // ascending keys, one value per key
//	_ = b.Close()                  // writes the footer and publishes the file
//
// Open and query it:
//
//	ix, _ := ftstore.Open(ctx, "terms.idx")
//	defer ix.Close()
//
//	values, _ := ix.Lookup(ctx, off, []uint64{4, 9, 12}) // 0 for absent keys
//
// # Filtering
//
// Candidate documents live in a skiplist.QueryBuffer. Retain keeps the ones a
// list contains and Reject drops them; chaining passes intersects or
// subtracts lists without materializing them:
//
//	buf := skiplist.NewQueryBufferFrom(candidates)
//	_ = ix.Retain(ctx, appleOff, buf)
//	_ = ix.Reject(ctx, pearOff, buf)
//	fmt.Println(buf.Data())
//
// # Budgets
//
// Every block a query touches counts against an optional skiplist.Budget
// carried in the context. An exhausted budget stops the query with
// ErrBudgetExhausted and leaves readers resumable:
//
//	ctx = skiplist.WithBudget(ctx, skiplist.NewBudget(skiplist.BudgetConfig{MaxBlocks: 64}))
//
// # Storage
//
// Files are read with direct I/O where the platform allows. Indexes can also
// be served from a blobstore.BlobStore (local directory, memory, MinIO/S3)
// with OpenBlob, and replaced under live readers with Swap or SwapBlob.
//
// # Key Features
//
//   - Pinned pages with clock eviction and a background reclaim goroutine
//   - Asynchronous prefetch with optional I/O rate limiting
//   - Memory limits through a shared resource controller
//   - Prometheus metrics (pagecache/promcollector) and structured logging
package ftstore
