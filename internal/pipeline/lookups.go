// Package pipeline runs the formatting of GTEx tissues: it loads the shared
// lookups once, then reads, formats and writes the egenes and significant
// pair tables of each tissue.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/inodb/gtex-eqtl/internal/duckdb"
	"github.com/inodb/gtex-eqtl/internal/fileio"
	"github.com/inodb/gtex-eqtl/internal/lookup"
)

// LookupPaths names the three lookup inputs shared by all tissues.
type LookupPaths struct {
	Genes string
	HGNC  string
	RsIDs string
	// GeneSnapshot, when set, keeps the parsed gene lookup between runs.
	GeneSnapshot string
}

// Lookups holds the loaded, read-only lookups.
type Lookups struct {
	Genes *lookup.Genes
	HGNC  lookup.HGNC
	Store *duckdb.Store
	// RsIDs is the number of variant/rsID rows in the store.
	RsIDs int64
}

// LoadLookups loads the gene and HGNC lookups into memory and the rsID lookup
// into store. The rsID file is not fetched when store already holds it.
func LoadLookups(ctx context.Context, opener *fileio.Opener, store *duckdb.Store, paths LookupPaths, logger *zap.Logger) (*Lookups, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Lookups{Store: store}

	genes, err := loadGenes(ctx, opener, paths, logger)
	if err != nil {
		return nil, fmt.Errorf("loading gene lookup: %w", err)
	}
	l.Genes = genes
	logger.Info("loaded gene lookup", zap.String("path", paths.Genes), zap.Int("genes", l.Genes.Len()))

	err = withReader(ctx, opener, paths.HGNC, func(r io.Reader) error {
		hgnc, err := lookup.LoadHGNC(r)
		l.HGNC = hgnc
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading HGNC lookup: %w", err)
	}
	logger.Info("loaded HGNC lookup", zap.String("path", paths.HGNC), zap.Int("symbols", len(l.HGNC)))

	if err := loadRsIDs(ctx, opener, store, paths.RsIDs, logger); err != nil {
		return nil, fmt.Errorf("loading rsID lookup: %w", err)
	}
	if l.RsIDs, err = store.RsIDCount(); err != nil {
		return nil, err
	}
	logger.Info("rsID lookup ready", zap.String("path", paths.RsIDs), zap.Int64("rows", l.RsIDs))

	return l, nil
}

func loadGenes(ctx context.Context, opener *fileio.Opener, paths LookupPaths, logger *zap.Logger) (*lookup.Genes, error) {
	parse := func() (*lookup.Genes, error) {
		var genes *lookup.Genes
		err := withReader(ctx, opener, paths.Genes, func(r io.Reader) error {
			var err error
			genes, err = lookup.LoadGenes(r)
			return err
		})
		return genes, err
	}
	if paths.GeneSnapshot == "" {
		return parse()
	}

	fp, err := opener.Stat(ctx, paths.Genes)
	if err != nil {
		return nil, err
	}
	snap := lookup.NewGeneSnapshot(paths.GeneSnapshot)
	if snap.Valid(fp) {
		genes, err := snap.Load()
		if err == nil {
			logger.Info("reusing gene snapshot", zap.String("snapshot", paths.GeneSnapshot))
			return genes, nil
		}
		logger.Warn("gene snapshot unreadable, reparsing", zap.Error(err))
		snap.Clear()
	}

	genes, err := parse()
	if err != nil {
		return nil, err
	}
	if err := snap.Write(genes, fp); err != nil {
		logger.Warn("could not write gene snapshot", zap.String("snapshot", paths.GeneSnapshot), zap.Error(err))
	}
	return genes, nil
}

func loadRsIDs(ctx context.Context, opener *fileio.Opener, store *duckdb.Store, path string, logger *zap.Logger) error {
	fp, err := opener.Stat(ctx, path)
	if err != nil {
		return err
	}
	cached, err := store.HasRsIDSource(fp)
	if err != nil {
		return err
	}
	if cached {
		logger.Info("reusing cached rsID lookup", zap.String("db", store.Path()))
		return nil
	}

	local, cleanup, err := opener.Localize(ctx, path)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = store.LoadVariantRsIDs(local, fp)
	return err
}

func withReader(ctx context.Context, opener *fileio.Opener, path string, fn func(io.Reader) error) error {
	rc, err := opener.Open(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close()
	return fn(rc)
}
