package lookup

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/csimplestring/go-csv/detector"
	"github.com/gocarina/gocsv"
)

// hgncRecord is one row of the HGNC lookup table. Other columns are ignored.
type hgncRecord struct {
	HGNCID string `csv:"hgnc_id"`
	Symbol string `csv:"symbol"`
}

// HGNC maps HGNC ids (e.g. "HGNC:5") to approved symbols.
type HGNC map[string]string

// Symbol returns the approved symbol for an HGNC id.
func (h HGNC) Symbol(hgncID string) (string, bool) {
	if hgncID == "" {
		return "", false
	}
	s, ok := h[hgncID]
	return s, ok
}

// LoadHGNC reads an HGNC lookup table with a header row naming hgnc_id and
// symbol. The delimiter is detected from the content and defaults to a space.
func LoadHGNC(r io.Reader) (HGNC, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hgnc lookup: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = DetectDelimiter(data)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var records []*hgncRecord
	if err := gocsv.UnmarshalCSV(cr, &records); err != nil {
		return nil, fmt.Errorf("decode hgnc lookup: %w", err)
	}

	out := make(HGNC, len(records))
	for _, rec := range records {
		if rec.HGNCID == "" || rec.Symbol == "" {
			continue
		}
		if _, exists := out[rec.HGNCID]; !exists {
			out[rec.HGNCID] = rec.Symbol
		}
	}
	return out, nil
}

// preferredDelimiters breaks ties between detected delimiters.
var preferredDelimiters = []string{"\t", ",", "|", ";"}

// DetectDelimiter returns the most likely delimiter of a small delimited
// table. Space-separated tables are not detected and use the fallback.
func DetectDelimiter(data []byte) rune {
	d := detector.New()
	found := d.DetectDelimiter(bytes.NewReader(data), '"')

	for _, want := range preferredDelimiters {
		for _, got := range found {
			if got == want {
				return rune(want[0])
			}
		}
	}
	return ' '
}
