package eqtl

import "github.com/inodb/gtex-eqtl/internal/lookup"

// GeneLookup finds annotation-table genes by Ensembl gene id.
type GeneLookup interface {
	Find(geneID string) (lookup.Gene, bool)
}

// SymbolLookup finds approved symbols by HGNC id.
type SymbolLookup interface {
	Symbol(hgncID string) (string, bool)
}

// SymbolSource records which input supplied a resolved symbol.
type SymbolSource int

const (
	SymbolNone SymbolSource = iota
	SymbolHGNC
	SymbolGeneTable
	SymbolEgenes
)

// Resolution is the outcome of resolving one egenes row.
type Resolution struct {
	Symbol        string
	HGNCID        string
	AlternateName string
	Source        SymbolSource
}

// ResolveSymbol resolves the gene symbol for an egenes row. The symbol is the
// first non-empty of the HGNC symbol (via the gene's hgnc_id), the gene table
// name and the egenes name. The egenes name is reported as the alternate name
// when it differs from both the gene table name and the resolved symbol.
func ResolveSymbol(geneID, egenesName string, genes GeneLookup, hgnc SymbolLookup) Resolution {
	gene, _ := genes.Find(geneID)

	res := Resolution{HGNCID: gene.HGNCID}
	if s, ok := hgnc.Symbol(gene.HGNCID); ok && s != "" {
		res.Symbol, res.Source = s, SymbolHGNC
	} else if gene.GeneName != "" {
		res.Symbol, res.Source = gene.GeneName, SymbolGeneTable
	} else if egenesName != "" {
		res.Symbol, res.Source = egenesName, SymbolEgenes
	}

	if egenesName != gene.GeneName && egenesName != res.Symbol {
		res.AlternateName = egenesName
	}
	return res
}
