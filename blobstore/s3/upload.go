package s3

import (
	"context"
	"encoding/base64"
	"errors"
	"hash/crc32"
	"io"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// UploadConfig configures multipart uploads.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		// Failed multipart uploads are aborted so no parts linger.
		u.LeavePartsOnError = false
	})
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// computeCRC32C returns the CRC32C of data in the base64 form S3 expects.
func computeCRC32C(data []byte) string {
	sum := crc32.Checksum(data, castagnoli)
	b := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	return base64.StdEncoding.EncodeToString(b)
}

var errUploadAborted = errors.New("s3: upload aborted")

// objectWriter pipes writes into a background upload.
type objectWriter struct {
	pw       *io.PipeWriter
	cancel   context.CancelFunc
	done     chan error
	finished atomic.Bool
}

func newObjectWriter(ctx context.Context, uploader *manager.Uploader, bucket, key string, checksum bool) *objectWriter {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(ctx)

	w := &objectWriter{pw: pw, cancel: cancel, done: make(chan error, 1)}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        pr,
		ContentType: aws.String("application/octet-stream"),
	}
	if checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := uploader.Upload(ctx, input)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w
}

func (w *objectWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

// Sync is a no-op; durability is reached when Close returns.
func (w *objectWriter) Sync() error { return nil }

func (w *objectWriter) Close() error {
	if !w.finished.CompareAndSwap(false, true) {
		return errors.New("s3: writer already closed")
	}
	defer w.cancel()

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
	w.cancel()
	<-w.done
	return nil
}
