package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gtex-eqtl/internal/duckdb"
	"github.com/inodb/gtex-eqtl/internal/eqtl"
	"github.com/inodb/gtex-eqtl/internal/fileio"
	"github.com/inodb/gtex-eqtl/internal/output"
	"github.com/inodb/gtex-eqtl/internal/pipeline"
)

// session holds what format and batch share: logger, file access, the
// DuckDB store and the loaded lookups.
type session struct {
	logger  *zap.Logger
	opener  *fileio.Opener
	store   *duckdb.Store
	lookups *pipeline.Lookups
	runner  *pipeline.Runner
	report  *output.Report
}

func openSession(ctx context.Context, paths pipeline.LookupPaths, inputs []string) (_ *session, err error) {
	s := &session{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.logger, err = newLogger(viper.GetString("log.level"), viper.GetString("log.format")); err != nil {
		return nil, err
	}
	opts := eqtl.Options{
		Assembly:   viper.GetString("assembly"),
		RsIDColumn: viper.GetString("columns.egenes_rsid"),
	}
	s.report = output.NewReport(opts.Assembly, time.Now())

	if s.opener, err = fileio.NewOpener(ctx, inputs...); err != nil {
		return nil, err
	}

	dbPath := viper.GetString("cache.rsid_db")
	if s.store, err = duckdb.Open(dbPath); err != nil {
		return nil, fmt.Errorf("opening rsID store: %w", err)
	}
	if dbPath != "" {
		s.logger.Debug("using persistent rsID cache", zap.String("db", dbPath))
	}

	paths.GeneSnapshot = viper.GetString("cache.gene_snapshot")
	if s.lookups, err = pipeline.LoadLookups(ctx, s.opener, s.store, paths, s.logger); err != nil {
		return nil, err
	}
	s.report.RsIDsLoaded = s.lookups.RsIDs

	s.runner = pipeline.NewRunner(s.opener, s.lookups, opts)
	s.runner.SetLogger(s.logger)
	return s, nil
}

// record adds the outcome of one tissue to the run report.
func (s *session) record(job pipeline.Job, stats eqtl.Stats, err error) {
	tr := output.TissueReport{
		Tissue:      job.Tissue,
		OutEgenes:   job.OutEgenes,
		OutSigPairs: job.OutSigPairs,
		Stats:       stats,
	}
	if err != nil {
		tr.Error = err.Error()
	}
	s.report.Add(tr)
}

// writeReport writes the run report to path; an empty path only logs the
// summary.
func (s *session) writeReport(path string) error {
	s.report.Finish(time.Now())
	s.logger.Info("run complete",
		zap.String("run_id", s.report.RunID),
		zap.Int("tissues", len(s.report.Tissues)),
		zap.Int("failed", s.report.Failed()),
		zap.Int("illegal_dcids", s.report.IllegalDcids),
		zap.Float64("seconds", s.report.Duration))
	if path == "" {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := output.WriteReport(f, s.report); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.opener != nil {
		s.opener.Close()
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}
