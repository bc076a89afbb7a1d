// Package eqtl formats GTEx eQTL tables (egenes and significant
// variant-gene pairs) for knowledge graph import: it normalizes categorical
// columns, resolves gene symbols and rsIDs, and derives dcids.
package eqtl

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/gtex-eqtl/internal/table"
)

// Defaults for Options.
const (
	DefaultAssembly   = "GRCh38.p13"
	DefaultRsIDColumn = "rs_id_dbSNP155_GRCh38p13"
)

// Input and derived column names.
const (
	ColGeneID        = "gene_id"
	ColGeneName      = "gene_name"
	ColVariantID     = "variant_id"
	ColStrand        = "strand"
	ColBiotype       = "biotype"
	ColChrom         = "chr"
	ColVariantPos    = "variant_pos"
	ColTissue        = "Tissue"
	ColEnsemblID     = "ensembl_id"
	ColHGNCID        = "hgnc_id"
	ColSymbol        = "symbol"
	ColAlternateName = "alternate_name"
	ColRsID          = "rsID"
	ColDcidGene      = "dcid_gene"
	ColDcidVariant   = "dcid_variant"
	ColDcid          = "dcid"
	ColName          = "name"
	ColDcidGeneCoord = "dcid_gene_coordinates"
	ColNameGeneCoord = "name_gene_coordinates"
	ColDcidVarPos    = "dcid_variant_pos"
	ColNameVarPos    = "name_variant_pos"
)

// RsIDLookup resolves GTEx variant ids to rsIDs.
type RsIDLookup interface {
	LookupRsIDs(ctx context.Context, variantIDs []string) (map[string][]string, error)
}

// Options configures a Formatter.
type Options struct {
	// Tissue is the raw GTEx tissue name, e.g. "Whole_Blood".
	Tissue string
	// Assembly labels genomic coordinate dcids.
	Assembly string
	// RsIDColumn is the egenes column holding comma-separated rsIDs.
	RsIDColumn string
}

// Stats counts what a Formatter did.
type Stats struct {
	EgenesIn          int `json:"egenes_in"`
	EgenesOut         int `json:"egenes_out"`
	SymbolsFromHGNC   int `json:"symbols_from_hgnc"`
	SymbolsFromGenes  int `json:"symbols_from_gene_table"`
	SymbolsFromEgenes int `json:"symbols_from_egenes"`
	SigPairsIn        int `json:"sig_pairs_in"`
	SigPairsOut       int `json:"sig_pairs_out"`
	SigPairsNoSymbol  int `json:"sig_pairs_without_symbol"`
	SigPairsNoRsID    int `json:"sig_pairs_without_rsid"`
	IllegalDcids      int `json:"illegal_dcids"`
}

// Formatter formats the egenes and significant-pair tables of one tissue.
// It is not safe for concurrent use.
type Formatter struct {
	opts   Options
	genes  GeneLookup
	hgnc   SymbolLookup
	logger *zap.Logger
	stats  Stats
}

// NewFormatter creates a formatter for one tissue.
func NewFormatter(opts Options, genes GeneLookup, hgnc SymbolLookup) *Formatter {
	if opts.Assembly == "" {
		opts.Assembly = DefaultAssembly
	}
	if opts.RsIDColumn == "" {
		opts.RsIDColumn = DefaultRsIDColumn
	}
	return &Formatter{
		opts:   opts,
		genes:  genes,
		hgnc:   hgnc,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and validation messages.
func (f *Formatter) SetLogger(l *zap.Logger) {
	f.logger = l
}

// Stats returns the counts accumulated so far.
func (f *Formatter) Stats() Stats {
	return f.stats
}

// FormatEgenes enriches an egenes table: tissue and Ensembl id columns,
// strand and biotype enums, resolved symbols, one row per rsID, and the gene,
// variant, association and coordinate dcids. The input table is modified.
func (f *Formatter) FormatEgenes(t *table.Table) (*table.Table, error) {
	rsCol := f.opts.RsIDColumn
	if err := t.Require(ColGeneID, ColGeneName, ColChrom, ColVariantPos, rsCol); err != nil {
		return nil, fmt.Errorf("egenes: %w", err)
	}
	f.stats.EgenesIn += t.Len()

	f.addTissueColumns(t)

	if t.HasColumn(ColStrand) {
		t.SetColumn(ColStrand, func(r table.Row) string { return StrandOrientation(r.Get(ColStrand)) })
	}
	if t.HasColumn(ColBiotype) {
		t.SetColumn(ColBiotype, func(r table.Row) string { return TypeOfGene(r.Get(ColBiotype)) })
	}

	resolved := make([]Resolution, t.Len())
	for i := range resolved {
		res := ResolveSymbol(t.Get(i, ColGeneID), t.Get(i, ColGeneName), f.genes, f.hgnc)
		switch res.Source {
		case SymbolHGNC:
			f.stats.SymbolsFromHGNC++
		case SymbolGeneTable:
			f.stats.SymbolsFromGenes++
		case SymbolEgenes:
			f.stats.SymbolsFromEgenes++
		}
		resolved[i] = res
	}
	t.SetColumn(ColHGNCID, func(r table.Row) string { return resolved[r.Index()].HGNCID })
	t.SetColumn(ColSymbol, func(r table.Row) string { return resolved[r.Index()].Symbol })
	t.SetColumn(ColAlternateName, func(r table.Row) string { return resolved[r.Index()].AlternateName })
	t.DropColumns(ColGeneName)

	// GTEx variant ids can map to more than one rsID.
	out, err := t.Explode(rsCol, ",")
	if err != nil {
		return nil, fmt.Errorf("egenes: %w", err)
	}

	f.addAssociationColumns(out, rsCol)

	assembly := f.opts.Assembly
	out.SetColumn(ColDcidGeneCoord, func(r table.Row) string {
		return f.checked(ColDcidGeneCoord, GeneCoordinatesDcid(assembly, r.Get(ColSymbol)))
	})
	out.SetColumn(ColNameGeneCoord, func(r table.Row) string {
		return GeneCoordinatesName(assembly, r.Get(ColSymbol))
	})
	out.SetColumn(ColDcidVarPos, func(r table.Row) string {
		return f.checked(ColDcidVarPos, VariantPositionDcid(assembly, r.Get(ColChrom), r.Get(ColVariantPos)))
	})
	out.SetColumn(ColNameVarPos, func(r table.Row) string {
		return VariantPositionName(assembly, r.Get(ColChrom), r.Get(ColVariantPos))
	})

	f.stats.EgenesOut += out.Len()
	f.logger.Info("eGenes file processed",
		zap.String("tissue", TissueName(f.opts.Tissue)),
		zap.Int("rows_in", t.Len()),
		zap.Int("rows_out", out.Len()))

	return out, nil
}

// GeneSymbols maps gene_id to the resolved symbol of a formatted egenes table.
func GeneSymbols(egenes *table.Table) map[string]string {
	symbols := make(map[string]string, egenes.Len())
	for i := 0; i < egenes.Len(); i++ {
		id := egenes.Get(i, ColGeneID)
		if _, ok := symbols[id]; !ok {
			symbols[id] = egenes.Get(i, ColSymbol)
		}
	}
	return symbols
}

// FormatSigPairs enriches a significant variant-gene pair table with the
// symbol of its egene and the rsIDs of its variant. Rows whose variant has no
// rsID are dropped; rows whose gene has no symbol are kept with empty gene and
// association dcids. A variant with several rsIDs yields one row per rsID.
// The input table is modified.
func (f *Formatter) FormatSigPairs(ctx context.Context, t *table.Table, symbols map[string]string, rsids RsIDLookup) (*table.Table, error) {
	if err := t.Require(ColGeneID, ColVariantID); err != nil {
		return nil, fmt.Errorf("significant pairs: %w", err)
	}
	f.stats.SigPairsIn += t.Len()

	f.addTissueColumns(t)
	t.SetColumn(ColSymbol, func(r table.Row) string { return symbols[r.Get(ColGeneID)] })

	ids := make([]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ids = append(ids, t.Get(i, ColVariantID))
	}
	found, err := rsids.LookupRsIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("significant pairs: %w", err)
	}
	t.SetColumn(ColRsID, func(r table.Row) string { return strings.Join(found[r.Get(ColVariantID)], ",") })

	noSymbol := 0
	kept := t.Filter(func(r table.Row) bool {
		if r.Get(ColSymbol) == "" {
			noSymbol++
		}
		if r.Get(ColRsID) == "" {
			f.stats.SigPairsNoRsID++
			return false
		}
		return true
	})
	f.stats.SigPairsNoSymbol += noSymbol

	out, err := kept.Explode(ColRsID, ",")
	if err != nil {
		return nil, fmt.Errorf("significant pairs: %w", err)
	}
	out = out.Filter(func(r table.Row) bool { return !missingRsID(r.Get(ColRsID)) })

	f.addAssociationColumns(out, ColRsID)

	f.stats.SigPairsOut += out.Len()
	if noSymbol > 0 {
		f.logger.Warn("significant pairs whose gene is not an egene have no gene dcid",
			zap.String("tissue", TissueName(f.opts.Tissue)),
			zap.Int("rows", noSymbol))
	}
	f.logger.Info("significant pairs file processed",
		zap.String("tissue", TissueName(f.opts.Tissue)),
		zap.Int("rows_in", t.Len()),
		zap.Int("rows_out", out.Len()),
		zap.Int("dropped_without_rsid", f.stats.SigPairsNoRsID))

	return out, nil
}

func (f *Formatter) addTissueColumns(t *table.Table) {
	tissue := TissueName(f.opts.Tissue)
	t.SetColumn(ColTissue, func(table.Row) string { return tissue })
	t.SetColumn(ColEnsemblID, func(r table.Row) string { return EnsemblID(r.Get(ColGeneID)) })
}

// addAssociationColumns derives the gene, variant and association dcids and
// the association name from the symbol and rsCol columns.
func (f *Formatter) addAssociationColumns(t *table.Table, rsCol string) {
	tissue := f.opts.Tissue
	t.SetColumn(ColDcidGene, func(r table.Row) string {
		return f.checked(ColDcidGene, GeneDcid(r.Get(ColSymbol)))
	})
	t.SetColumn(ColDcidVariant, func(r table.Row) string {
		return f.checked(ColDcidVariant, VariantDcid(r.Get(rsCol)))
	})
	t.SetColumn(ColDcid, func(r table.Row) string {
		return f.checked(ColDcid, AssociationDcid(r.Get(ColSymbol), r.Get(rsCol), tissue))
	})
	t.SetColumn(ColName, func(r table.Row) string {
		return AssociationName(r.Get(ColSymbol), r.Get(rsCol), tissue)
	})
}

// checked logs dcids containing illegal characters and returns dcid unchanged.
func (f *Formatter) checked(column, dcid string) string {
	if bad := IllegalChars(dcid); len(bad) > 0 {
		f.stats.IllegalDcids++
		f.logger.Error("dcid contains illegal characters",
			zap.String("column", column),
			zap.String("dcid", dcid),
			zap.Strings("chars", bad))
	}
	return dcid
}
