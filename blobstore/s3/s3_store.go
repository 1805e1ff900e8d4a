package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/ftstore/blobstore"
)

// Client is the subset of the S3 API the store uses. *s3.Client
// satisfies it.
type Client interface {
	manager.UploadAPIClient
	s3.HeadObjectAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements blobstore.BlobStore on an S3 bucket.
type Store struct {
	client   Client
	bucket   string
	prefix   string
	upload   UploadConfig
	uploader *manager.Uploader
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore returns a store that keeps blobs in bucket under rootPrefix
// (for example "indexes/").
func NewStore(client Client, bucket, rootPrefix string) *Store {
	return newStore(client, bucket, rootPrefix, DefaultUploadConfig())
}

func newStore(client Client, bucket, rootPrefix string, cfg UploadConfig) *Store {
	return &Store{
		client:   client,
		bucket:   bucket,
		prefix:   rootPrefix,
		upload:   cfg,
		uploader: newUploader(client, cfg),
	}
}

type options struct {
	prefix   string
	region   string
	endpoint string
	upload   UploadConfig
}

// Option configures New.
type Option func(*options)

// WithPrefix sets the key prefix all blob names are stored under.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region from the shared AWS configuration.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint points the client at an S3-compatible service. Path-style
// addressing is enabled for it.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithUploadConfig sets the multipart upload settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) { o.upload = cfg }
}

// New loads the default AWS configuration and returns a store on bucket.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	opts := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.endpoint != "" {
			o.BaseEndpoint = aws.String(opts.endpoint)
			o.UsePathStyle = true
		}
	})

	return newStore(client, bucket, opts.prefix, opts.upload), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) name(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, strings.TrimSuffix(s.prefix, "/")), "/")
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// Open implements blobstore.BlobStore. The object is inspected once; its
// size and ETag are fixed for the lifetime of the blob.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
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
		etag:   aws.ToString(head.ETag),
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Put implements blobstore.BlobStore.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if s.upload.EnableChecksum {
		input.ChecksumCRC32C = aws.String(computeCRC32C(data))
	}

	_, err := s.client.PutObject(ctx, input)
	return err
}

// Create implements blobstore.BlobStore. The upload streams in the
// background and completes when the writer is closed.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return newObjectWriter(ctx, s.uploader, s.bucket, s.key(name), s.upload.EnableChecksum), nil
}

// Delete implements blobstore.BlobStore.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List implements blobstore.BlobStore.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	if prefix == "" {
		full = s.prefix
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			if name := s.name(aws.ToString(obj.Key)); name != "" {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

type objectBlob struct {
	client Client
	bucket string
	key    string
	etag   string
	size   int64
}

func (b *objectBlob) Size() int64  { return b.size }
func (b *objectBlob) Close() error { return nil }

// ReadAt issues one ranged GET pinned to the ETag seen at Open.
func (b *objectBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= b.size {
		return 0, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	end := min(off+int64(len(p)), b.size) - 1

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	}
	if b.etag != "" {
		input.IfMatch = aws.String(b.etag)
	}

	resp, err := b.client.GetObject(ctx, input)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
