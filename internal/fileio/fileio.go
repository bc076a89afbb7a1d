// Package fileio opens GTEx input files from local disk or Google Cloud
// Storage, transparently decompressing gzip content.
package fileio

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const gsPrefix = "gs://"

// IsRemote reports whether path refers to a Google Storage object.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, gsPrefix)
}

// Opener opens input paths. A storage client is only created when at least
// one of the paths it was built for is remote.
type Opener struct {
	gcs *storage.Client
}

// NewOpener returns an Opener able to read all of the given paths.
func NewOpener(ctx context.Context, paths ...string) (*Opener, error) {
	o := &Opener{}
	for _, p := range paths {
		if !IsRemote(p) {
			continue
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		o.gcs = client
		break
	}
	return o, nil
}

// Close releases the storage client, if any.
func (o *Opener) Close() error {
	if o.gcs == nil {
		return nil
	}
	return o.gcs.Close()
}

// Open opens path for reading. Gzip content is detected by its magic bytes
// and decompressed.
func (o *Opener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	raw, err := o.openRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	return maybeGunzip(raw)
}

func (o *Opener) openRaw(ctx context.Context, path string) (io.ReadCloser, error) {
	if !IsRemote(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return f, nil
	}

	obj, err := o.object(path)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return r, nil
}

func (o *Opener) object(path string) (*storage.ObjectHandle, error) {
	if o.gcs == nil {
		return nil, fmt.Errorf("open %s: no storage client configured", path)
	}
	bucket, name, err := splitGSPath(path)
	if err != nil {
		return nil, err
	}
	return o.gcs.Bucket(bucket).Object(name), nil
}

// Localize returns a local path holding the content of path. Remote objects
// are copied to a temporary file which cleanup removes; for local paths
// cleanup is a no-op. The content is copied as-is, without decompression.
func (o *Opener) Localize(ctx context.Context, path string) (local string, cleanup func(), err error) {
	if !IsRemote(path) {
		return path, func() {}, nil
	}

	src, err := o.openRaw(ctx, path)
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	f, err := os.CreateTemp("", "gtex-eqtl-*-"+filepath.Base(path))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup = func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), cleanup, nil
}

// Fingerprint holds stat-based identity for a file.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Stat returns the fingerprint of a local file or remote object.
func (o *Opener) Stat(ctx context.Context, path string) (Fingerprint, error) {
	if !IsRemote(path) {
		info, err := os.Stat(path)
		if err != nil {
			return Fingerprint{}, err
		}
		return Fingerprint{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
	}

	obj, err := o.object(path)
	if err != nil {
		return Fingerprint{}, err
	}
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%s: %w", path, err)
	}
	return Fingerprint{Path: path, Size: attrs.Size, ModTime: attrs.Updated}, nil
}

func splitGSPath(path string) (bucket, name string, err error) {
	parts := strings.SplitN(strings.TrimPrefix(path, gsPrefix), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid google storage path %q: want gs://bucket/object", path)
	}
	return parts[0], parts[1], nil
}

// gzipReadCloser closes both the gzip stream and the underlying source.
type gzipReadCloser struct {
	*gzip.Reader
	src io.Closer
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.src.Close(); err != nil {
		return err
	}
	return gzErr
}

// bufferedReadCloser keeps the peeked buffer in front of the source.
type bufferedReadCloser struct {
	*bufio.Reader
	src io.Closer
}

func (b *bufferedReadCloser) Close() error {
	return b.src.Close()
}

func maybeGunzip(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		rc.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &gzipReadCloser{Reader: gz, src: rc}, nil
	}

	return &bufferedReadCloser{Reader: br, src: rc}, nil
}
