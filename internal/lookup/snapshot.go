package lookup

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/gtex-eqtl/internal/fileio"
)

// GeneSnapshot keeps a parsed gene lookup on disk so later runs skip parsing
// the annotation table:
//
//	{path}       (gob-encoded genes)
//	{path}.meta  (source file fingerprint)
type GeneSnapshot struct {
	path string
}

// NewGeneSnapshot creates a snapshot stored at path.
func NewGeneSnapshot(path string) *GeneSnapshot {
	return &GeneSnapshot{path: path}
}

func (s *GeneSnapshot) metaPath() string {
	return s.path + ".meta"
}

// Valid checks whether the snapshot was written from the given source.
func (s *GeneSnapshot) Valid(src fileio.Fingerprint) bool {
	meta, err := s.readMeta()
	if err != nil {
		return false
	}

	checks := []struct{ key, val string }{
		{"source", src.Path},
		{"size", strconv.FormatInt(src.Size, 10)},
		{"modtime", src.ModTime.UTC().Format(time.RFC3339Nano)},
	}
	for _, c := range checks {
		if meta[c.key] != c.val {
			return false
		}
	}

	if _, err := os.Stat(s.path); err != nil {
		return false
	}
	return true
}

// Load reads the snapshot.
func (s *GeneSnapshot) Load() (*Genes, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open gene snapshot: %w", err)
	}
	defer f.Close()

	var genes []Gene
	if err := gob.NewDecoder(f).Decode(&genes); err != nil {
		return nil, fmt.Errorf("decode gene snapshot: %w", err)
	}
	return NewGenes(genes), nil
}

// Write stores g as a snapshot of src. Both files are written to temporary
// files and renamed into place, so readers never see a partial snapshot.
func (s *GeneSnapshot) Write(g *Genes, src fileio.Fingerprint) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	// Invalidate first: old metadata must never describe the new data file.
	if err := os.Remove(s.metaPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("invalidate gene snapshot: %w", err)
	}
	err := writeAtomic(s.path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(g.All())
	})
	if err != nil {
		return fmt.Errorf("write gene snapshot: %w", err)
	}

	return s.writeMeta(src)
}

// writeAtomic writes path through a temporary file in the same directory.
func writeAtomic(path string, write func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Clear removes the snapshot files.
func (s *GeneSnapshot) Clear() {
	os.Remove(s.path)
	os.Remove(s.metaPath())
}

func (s *GeneSnapshot) writeMeta(src fileio.Fingerprint) error {
	lines := []string{
		"source=" + src.Path,
		"size=" + strconv.FormatInt(src.Size, 10),
		"modtime=" + src.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	err := writeAtomic(s.metaPath(), func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Join(lines, "\n"))
		return err
	})
	if err != nil {
		return fmt.Errorf("write gene snapshot metadata: %w", err)
	}
	return nil
}

func (s *GeneSnapshot) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
