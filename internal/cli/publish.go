package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/ftstore"
	"github.com/hupe1980/ftstore/blobstore"
	minioblob "github.com/hupe1980/ftstore/blobstore/minio"
	s3blob "github.com/hupe1980/ftstore/blobstore/s3"
	"github.com/hupe1980/ftstore/skiplist"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
)

type publishFlags struct {
	endpoint string
	region   string
	insecure bool
}

func newPublishCmd(g *globalFlags) *cobra.Command {
	f := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish FILE DEST",
		Short: "Verify FILE and copy it to a blob store",
		Long: `Verify FILE and copy it to a blob store.

DEST is one of
  s3://BUCKET/NAME      Amazon S3, or an S3-compatible service with --endpoint
  minio://BUCKET/NAME   MinIO at --endpoint, credentials from
                        FTSTORE_ACCESS_KEY and FTSTORE_SECRET_KEY
  DIR/NAME              a local directory`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := skiplist.ValidateFooterFile(args[0], g.magic); err != nil {
				return fmt.Errorf("refusing to publish %s: %w", args[0], err)
			}

			store, name, err := f.resolve(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			n, err := ftstore.Publish(cmd.Context(), args[0], store, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d bytes to %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "object store endpoint (host:port for minio, URL for s3)")
	cmd.Flags().StringVar(&f.region, "region", "", "s3 region (defaults to the AWS configuration)")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "use plain HTTP for minio")
	return cmd
}

// resolve maps DEST to a store and the blob name inside it.
func (f *publishFlags) resolve(ctx context.Context, dest string) (blobstore.BlobStore, string, error) {
	scheme, rest, ok := strings.Cut(dest, "://")
	if !ok {
		dir, name := filepath.Split(dest)
		if name == "" {
			return nil, "", fmt.Errorf("destination %q has no blob name", dest)
		}
		if dir == "" {
			dir = "."
		}
		return blobstore.NewLocalStore(dir), name, nil
	}

	u, err := url.Parse(scheme + "://" + rest)
	if err != nil {
		return nil, "", fmt.Errorf("invalid destination %q: %w", dest, err)
	}
	bucket, name := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || name == "" {
		return nil, "", fmt.Errorf("destination %q needs a bucket and a blob name", dest)
	}

	switch scheme {
	case "s3":
		var opts []s3blob.Option
		if f.region != "" {
			opts = append(opts, s3blob.WithRegion(f.region))
		}
		if f.endpoint != "" {
			opts = append(opts, s3blob.WithEndpoint(f.endpoint))
		}
		store, err := s3blob.New(ctx, bucket, opts...)
		if err != nil {
			return nil, "", err
		}
		return store, name, nil
	case "minio":
		if f.endpoint == "" {
			return nil, "", fmt.Errorf("minio destination needs --endpoint")
		}
		client, err := minio.New(f.endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("FTSTORE_ACCESS_KEY"), os.Getenv("FTSTORE_SECRET_KEY"), ""),
			Secure: !f.insecure,
			Region: f.region,
		})
		if err != nil {
			return nil, "", err
		}
		return minioblob.NewStore(client, bucket, ""), name, nil
	default:
		return nil, "", fmt.Errorf("unsupported destination scheme %q", scheme)
	}
}
