// Package s3 stores index files in Amazon S3 or an S3-compatible service
// through the AWS SDK.
//
// # Usage
//
//	store, err := s3.New(ctx, "search-indexes",
//	    s3.WithPrefix("shard-7/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//	if err != nil {
//	    return err
//	}
//	idx, err := ftstore.OpenBlob(ctx, store, "postings.skl")
//
// # Features
//
//   - Ranged GETs per page, so a query only transfers the blocks it touches
//   - Streaming multipart uploads for Publish
//   - CRC32C integrity checks on uploads
//   - Automatic pagination for listing
package s3
