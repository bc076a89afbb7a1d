package output

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/inodb/gtex-eqtl/internal/eqtl"
)

// TissueReport summarizes the run of one tissue.
type TissueReport struct {
	Tissue      string     `json:"tissue"`
	OutEgenes   string     `json:"out_egenes,omitempty"`
	OutSigPairs string     `json:"out_sig_pairs,omitempty"`
	Stats       eqtl.Stats `json:"stats"`
	Error       string     `json:"error,omitempty"`
}

// Report summarizes a formatting run.
type Report struct {
	RunID        string         `json:"run_id"`
	Assembly     string         `json:"assembly"`
	Started      time.Time      `json:"started"`
	Duration     float64        `json:"duration_seconds"`
	RsIDsLoaded  int64          `json:"rsids_loaded"`
	IllegalDcids int            `json:"illegal_dcids"`
	Tissues      []TissueReport `json:"tissues"`
}

// NewReport starts a report with a fresh run id.
func NewReport(assembly string, started time.Time) *Report {
	return &Report{
		RunID:    uuid.NewString(),
		Assembly: assembly,
		Started:  started,
	}
}

// Add records the outcome of one tissue.
func (r *Report) Add(tr TissueReport) {
	r.Tissues = append(r.Tissues, tr)
	r.IllegalDcids += tr.Stats.IllegalDcids
}

// Failed returns the number of tissues that ended with an error.
func (r *Report) Failed() int {
	n := 0
	for _, t := range r.Tissues {
		if t.Error != "" {
			n++
		}
	}
	return n
}

// Finish sets the run duration.
func (r *Report) Finish(end time.Time) {
	r.Duration = end.Sub(r.Started).Seconds()
}

// WriteReport writes the report as indented JSON.
func WriteReport(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
