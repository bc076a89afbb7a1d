// Package lookup loads the identifier lookup tables used to resolve gene
// symbols for GTEx genes.
package lookup

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Gene holds the identifiers of one gene from the annotation table.
type Gene struct {
	GeneID   string
	GeneName string
	HGNCID   string
}

// Genes indexes genes by Ensembl gene id.
type Genes struct {
	byID       map[string]*Gene
	byStableID map[string]*Gene
	order      []*Gene
}

func newGenes() *Genes {
	return &Genes{
		byID:       make(map[string]*Gene),
		byStableID: make(map[string]*Gene),
	}
}

// NewGenes indexes genes in the given order. For repeated ids the first
// gene is kept.
func NewGenes(genes []Gene) *Genes {
	g := newGenes()
	for _, gene := range genes {
		g.fill(gene.GeneID, gene.GeneName, gene.HGNCID)
	}
	return g
}

func (g *Genes) add(id string) *Gene {
	gene, ok := g.byID[id]
	if ok {
		return gene
	}
	gene = &Gene{GeneID: id}
	g.byID[id] = gene
	g.order = append(g.order, gene)
	if _, exists := g.byStableID[stripVersion(id)]; !exists {
		g.byStableID[stripVersion(id)] = gene
	}
	return gene
}

// fill sets attributes that are still empty.
func (g *Genes) fill(id, name, hgncID string) {
	gene := g.add(id)
	if gene.GeneName == "" {
		gene.GeneName = name
	}
	if gene.HGNCID == "" {
		gene.HGNCID = hgncID
	}
}

// All returns the genes in the order they were first seen.
func (g *Genes) All() []Gene {
	out := make([]Gene, len(g.order))
	for i, gene := range g.order {
		out[i] = *gene
	}
	return out
}

// Len returns the number of distinct gene ids.
func (g *Genes) Len() int {
	return len(g.byID)
}

// Find returns the gene for a versioned Ensembl id. When the exact id is
// unknown the lookup falls back to the id without its version suffix.
func (g *Genes) Find(geneID string) (Gene, bool) {
	if gene, ok := g.byID[geneID]; ok {
		return *gene, true
	}
	if gene, ok := g.byStableID[stripVersion(geneID)]; ok {
		return *gene, true
	}
	return Gene{}, false
}

// LoadGenes parses a GTF-like annotation table. Every line contributes its
// gene_id, gene_name and hgnc_id attributes; when a gene appears on several
// lines the first non-empty value of each attribute is kept.
func LoadGenes(r io.Reader) (*Genes, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	g := newGenes()

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			return nil, fmt.Errorf("gene lookup line %d: expected 9 fields, got %d", lineNum, len(fields))
		}

		attrs := parseAttributes(fields[8])
		id := attrs["gene_id"]
		if id == "" {
			continue
		}

		g.fill(id, attrs["gene_name"], attrs["hgnc_id"])
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan gene lookup: %w", err)
	}

	return g, nil
}

// parseAttributes parses the GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Find the first space to separate key from value
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")

		attrs[key] = value
	}

	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENSG00000227232.5" -> "ENSG00000227232"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}
