package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/ftstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFile(t *testing.T, opts ...ftstore.Option) (string, []int64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terms.idx")

	b, err := ftstore.Build(path, opts...)
	require.NoError(t, err)

	keys := make([]uint64, 100)
	for i := range keys {
		keys[i] = uint64(2 * i)
	}
	first, err := b.Add([]uint64{5, 6}, []uint64{50, 60})
	require.NoError(t, err)
	second, err := b.Add(keys, keys)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	return path, []int64{first, second}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVerify(t *testing.T) {
	path, _ := buildFile(t)

	out, err := run(t, "verify", path)
	require.NoError(t, err)
	assert.Equal(t, path+": ok\n", out)

	_, err = run(t, "verify", "--magic", "other", path)
	require.ErrorIs(t, err, ftstore.ErrBadFooter)
	assert.Contains(t, err.Error(), `file carries "ftstore-v1"`)
}

func TestLookup(t *testing.T) {
	path, offsets := buildFile(t)

	out, err := run(t, "lookup", path, "--offset", "56", "7", "4", "198", "4")
	require.NoError(t, err)
	assert.Equal(t, int64(56), offsets[1])
	assert.Equal(t, "4\t4\n7\t-\n198\t198\n", out)

	out, err = run(t, "lookup", path, "6")
	require.NoError(t, err)
	assert.Equal(t, "6\t60\n", out)

	_, err = run(t, "lookup", path, "x")
	assert.Error(t, err)

	_, err = run(t, "lookup", "--log-level", "loud", path, "1")
	assert.Error(t, err)
}

func TestLookupLargePages(t *testing.T) {
	path, offsets := buildFile(t, ftstore.WithPageSize(4096))
	require.Equal(t, int64(56), offsets[1])

	out, err := run(t, "lookup", "--page-size", "4096", "--offset", "56", path, "10")
	require.NoError(t, err)
	assert.Equal(t, "10\t10\n", out)
}

func TestInspect(t *testing.T) {
	path, _ := buildFile(t)

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Equal(t, "block 0 @0: records=2 pointers=0 remaining=2 end=true\n  keys 5..6\n1 blocks, 2 records\n", out)

	out, err = run(t, "inspect", "--offset", "56", path)
	require.NoError(t, err)
	assert.Contains(t, out, "block 0 @56: records=27 pointers=2 remaining=100 end=false\n")
	assert.Contains(t, out, "4 blocks, 100 records\n")

	out, err = run(t, "inspect", "--keys", path)
	require.NoError(t, err)
	assert.Contains(t, out, "  5=50\n  6=60\n")
}

func TestPublish(t *testing.T) {
	path, _ := buildFile(t)
	dest := filepath.Join(t.TempDir(), "gen-1.idx")

	out, err := run(t, "publish", path, dest)
	require.NoError(t, err)
	assert.Equal(t, "published 2560 bytes to "+dest+"\n", out)

	out, err = run(t, "verify", dest)
	require.NoError(t, err)
	assert.Equal(t, dest+": ok\n", out)
}

func TestPublishRejects(t *testing.T) {
	path, _ := buildFile(t)
	dir := t.TempDir()

	_, err := run(t, "publish", "--magic", "other", path, filepath.Join(dir, "x.idx"))
	assert.ErrorIs(t, err, ftstore.ErrBadFooter)

	_, err = run(t, "publish", path, "ftp://bucket/x.idx")
	assert.ErrorContains(t, err, "unsupported destination scheme")

	_, err = run(t, "publish", path, "minio://bucket/x.idx")
	assert.ErrorContains(t, err, "--endpoint")

	_, err = run(t, "publish", path, "s3://bucket")
	assert.ErrorContains(t, err, "bucket and a blob name")

	_, err = run(t, "publish", path, dir+string(filepath.Separator))
	assert.ErrorContains(t, err, "no blob name")
}
