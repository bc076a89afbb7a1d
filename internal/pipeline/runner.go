package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/gtex-eqtl/internal/eqtl"
	"github.com/inodb/gtex-eqtl/internal/fileio"
	"github.com/inodb/gtex-eqtl/internal/output"
	"github.com/inodb/gtex-eqtl/internal/table"
)

// Job describes the inputs and outputs of one tissue.
type Job struct {
	Tissue      string
	Egenes      string
	SigPairs    string
	OutEgenes   string
	OutSigPairs string
}

// Runner formats tissues against a shared set of lookups. Run may be called
// from several goroutines.
type Runner struct {
	opener  *fileio.Opener
	lookups *Lookups
	opts    eqtl.Options
	logger  *zap.Logger
}

// NewRunner creates a runner. The Tissue field of opts is ignored; each Job
// names its own tissue.
func NewRunner(opener *fileio.Opener, lookups *Lookups, opts eqtl.Options) *Runner {
	return &Runner{
		opener:  opener,
		lookups: lookups,
		opts:    opts,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Run formats the egenes and significant pairs of one tissue and writes both
// CSV outputs.
func (r *Runner) Run(ctx context.Context, job Job) (eqtl.Stats, error) {
	log := r.logger.With(zap.String("tissue", eqtl.TissueName(job.Tissue)))
	log.Info("processing files", zap.String("egenes", job.Egenes), zap.String("sig_pairs", job.SigPairs))

	opts := r.opts
	opts.Tissue = job.Tissue
	f := eqtl.NewFormatter(opts, r.lookups.Genes, r.lookups.HGNC)
	f.SetLogger(log)

	egenesIn, err := r.readTSV(ctx, job.Egenes)
	if err != nil {
		return f.Stats(), fmt.Errorf("reading egenes %s: %w", job.Egenes, err)
	}
	egenes, err := f.FormatEgenes(egenesIn)
	if err != nil {
		return f.Stats(), err
	}
	if err := writeCSV(job.OutEgenes, egenes); err != nil {
		return f.Stats(), err
	}

	pairsIn, err := r.readSigPairs(ctx, job.SigPairs)
	if err != nil {
		return f.Stats(), fmt.Errorf("reading significant pairs %s: %w", job.SigPairs, err)
	}
	pairs, err := f.FormatSigPairs(ctx, pairsIn, eqtl.GeneSymbols(egenes), r.lookups.Store)
	if err != nil {
		return f.Stats(), err
	}
	if err := writeCSV(job.OutSigPairs, pairs); err != nil {
		return f.Stats(), err
	}

	log.Info("finished formatting",
		zap.String("out_egenes", job.OutEgenes),
		zap.String("out_sig_pairs", job.OutSigPairs))
	return f.Stats(), nil
}

func (r *Runner) readTSV(ctx context.Context, path string) (*table.Table, error) {
	rc, err := r.opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return table.Read(rc, "\t")
}

// readSigPairs reads parquet through DuckDB; any other file is read as TSV.
func (r *Runner) readSigPairs(ctx context.Context, path string) (*table.Table, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".parquet") {
		return r.readTSV(ctx, path)
	}
	local, cleanup, err := r.opener.Localize(ctx, path)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return r.lookups.Store.ReadParquet(local)
}

func writeCSV(path string, t *table.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := output.WriteTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
