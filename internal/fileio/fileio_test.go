package fileio

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const content = "variant_id rs_id_dbSNP155_GRCh38p13\nchr1_13550_G_A_b38 rs554008981\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func readAll(t *testing.T, o *Opener, path string) string {
	t.Helper()
	rc, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestOpen_Plain(t *testing.T) {
	o, err := NewOpener(context.Background())
	require.NoError(t, err)
	defer o.Close()

	path := writeFile(t, "lookup.txt", []byte(content))
	assert.Equal(t, content, readAll(t, o, path))
}

func TestOpen_Gzip(t *testing.T) {
	o, err := NewOpener(context.Background())
	require.NoError(t, err)

	// The name does not matter; content is sniffed.
	path := writeFile(t, "lookup.txt", gzipBytes(t, content))
	assert.Equal(t, content, readAll(t, o, path))
}

func TestOpen_Empty(t *testing.T) {
	o, err := NewOpener(context.Background())
	require.NoError(t, err)

	path := writeFile(t, "empty.txt", nil)
	assert.Equal(t, "", readAll(t, o, path))
}

func TestOpen_NotExist(t *testing.T) {
	o, err := NewOpener(context.Background())
	require.NoError(t, err)

	_, err = o.Open(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_RemoteWithoutClient(t *testing.T) {
	o, err := NewOpener(context.Background(), "local.txt")
	require.NoError(t, err)

	_, err = o.Open(context.Background(), "gs://gtex-resources/lookup.txt.gz")
	assert.ErrorContains(t, err, "no storage client")
}

func TestLocalize_Local(t *testing.T) {
	o, err := NewOpener(context.Background())
	require.NoError(t, err)

	path := writeFile(t, "pairs.parquet", []byte("PAR1"))
	local, cleanup, err := o.Localize(context.Background(), path)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, path, local)
}

func TestStat_Local(t *testing.T) {
	o, err := NewOpener(context.Background())
	require.NoError(t, err)

	path := writeFile(t, "lookup.txt", []byte(content))
	fp, err := o.Stat(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(len(content)), fp.Size)
	assert.False(t, fp.ModTime.IsZero())
}

func TestSplitGSPath(t *testing.T) {
	tests := []struct {
		path    string
		bucket  string
		name    string
		wantErr bool
	}{
		{path: "gs://gtex-resources/GTEx_v10/egenes.txt.gz", bucket: "gtex-resources", name: "GTEx_v10/egenes.txt.gz"},
		{path: "gs://bucket/obj", bucket: "bucket", name: "obj"},
		{path: "gs://bucket", wantErr: true},
		{path: "gs:///obj", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			bucket, name, err := splitGSPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("gs://bucket/obj"))
	assert.False(t, IsRemote("/data/gs://odd"))
	assert.False(t, IsRemote("egenes.txt.gz"))
}
