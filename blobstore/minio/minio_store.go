package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/ftstore/blobstore"
	"github.com/minio/minio-go/v7"
)

// Store implements blobstore.BlobStore on a MinIO or S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore returns a store that keeps blobs in bucket under rootPrefix
// (for example "indexes/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: rootPrefix}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) name(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, strings.TrimSuffix(s.prefix, "/")), "/")
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// Open implements blobstore.BlobStore. The object is stat'ed once; its size
// is fixed for the lifetime of the blob.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	return &objectBlob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		etag:   info.ETag,
		size:   info.Size,
	}, nil
}

// Put implements blobstore.BlobStore.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

// Create implements blobstore.BlobStore. The upload streams in the
// background and completes when the writer is closed.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &objectWriter{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1,
			minio.PutObjectOptions{ContentType: "application/octet-stream"})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete implements blobstore.BlobStore.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List implements blobstore.BlobStore.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: s.key(prefix), Recursive: true}
	if prefix == "" {
		opts.Prefix = s.prefix
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := s.name(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type objectBlob struct {
	client *minio.Client
	bucket string
	key    string
	etag   string
	size   int64
}

func (b *objectBlob) Size() int64  { return b.size }
func (b *objectBlob) Close() error { return nil }

// ReadAt issues one ranged GET. The ETag pins the read to the object that
// was opened, so a concurrent overwrite fails the read instead of mixing
// two versions into one page.
func (b *objectBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= b.size {
		return 0, io.EOF
	}

	end := min(off+int64(len(p)), b.size) - 1

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}
	if b.etag != "" {
		if err := opts.SetMatchETag(b.etag); err != nil {
			return 0, err
		}
	}

	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

type objectWriter struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

var errUploadAborted = errors.New("minio: upload aborted")

func (w *objectWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

// Sync is a no-op; durability is reached when Close returns.
func (w *objectWriter) Sync() error { return nil }

func (w *objectWriter) Close() error {
	if !w.finished.CompareAndSwap(false, true) {
		return errors.New("minio: writer already closed")
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

// Abort cancels the upload. Nothing is stored under the name.
func (w *objectWriter) Abort() error {
	if !w.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = w.pw.CloseWithError(errUploadAborted)
	<-w.done
	return nil
}
