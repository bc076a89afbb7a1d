// Package output writes formatted tables and run reports.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/gtex-eqtl/internal/table"
)

// CSVWriter writes comma-separated rows without field quoting. Delimiters,
// quotes, backslashes and line breaks inside values are escaped with a
// backslash.
type CSVWriter struct {
	w *bufio.Writer
}

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w)}
}

// Write writes one record.
func (cw *CSVWriter) Write(values []string) error {
	for i, v := range values {
		if i > 0 {
			if err := cw.w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := cw.w.WriteString(escape(v)); err != nil {
			return err
		}
	}
	return cw.w.WriteByte('\n')
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	return cw.w.Flush()
}

func escape(v string) string {
	if !strings.ContainsAny(v, ",\"\\\n\r") {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 4)
	for _, r := range v {
		switch r {
		case ',', '"', '\\', '\n', '\r':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// WriteTable writes t with a header row.
func WriteTable(w io.Writer, t *table.Table) error {
	cw := NewCSVWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(t.Values(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	return cw.Flush()
}
