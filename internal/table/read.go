package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn is returned when a required column is not in the header.
var ErrMissingColumn = errors.New("missing column")

// ParseError represents an error in a delimited input file.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table parse error at line %d: %s", e.Line, e.Message)
}

// Read parses delimited text with a header line into a Table. Empty lines are
// skipped and trailing carriage returns are removed.
func Read(r io.Reader, delim string) (*Table, error) {
	scanner := bufio.NewScanner(r)
	// GTEx rows can be long when rsID lists are present.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	var t *Table
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, delim)
		if t == nil {
			t = New(fields...)
			if len(t.columns) != len(fields) {
				return nil, &ParseError{Line: lineNum, Message: "duplicate column in header"}
			}
			continue
		}

		if len(fields) != len(t.columns) {
			return nil, &ParseError{
				Line:    lineNum,
				Message: fmt.Sprintf("expected %d fields, got %d", len(t.columns), len(fields)),
			}
		}
		t.rows = append(t.rows, fields)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan table: %w", err)
	}
	if t == nil {
		return nil, &ParseError{Line: lineNum, Message: "no header line found"}
	}

	return t, nil
}
