// Package minio stores index files in MinIO or any S3-compatible object
// store through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    return err
//	}
//	store := minioblob.NewStore(client, "search", "indexes/")
//	idx, err := ftstore.OpenBlob(ctx, store, "shard-7/postings.skl")
//
// Pages are fetched with ranged GETs, so only the blocks a query touches
// are transferred.
package minio
