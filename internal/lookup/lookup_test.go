package lookup

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gtex-eqtl/internal/fileio"
)

const geneGTF = `##description: gene lookup
chr1	HAVANA	gene	14404	29570	.	-	.	gene_id "ENSG00000227232.5"; gene_type "unprocessed_pseudogene"; gene_name "WASH7P"; hgnc_id "HGNC:38034";
chr1	HAVANA	transcript	14404	29570	.	-	.	gene_id "ENSG00000227232.5"; transcript_id "ENST00000488147.1"; gene_name "WASH7P";
chr1	HAVANA	gene	65419	71585	.	+	.	gene_id "ENSG00000186092.7"; gene_type "protein_coding"; gene_name "OR4F5";
chr1	HAVANA	exon	65419	65433	.	+	.	gene_id "ENSG00000186092.7"; hgnc_id "HGNC:14825";
chrX	HAVANA	gene	100	200	.	+	.	gene_name "NOID";
`

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{
			name:  "basic attributes",
			input: `gene_id "ENSG00000227232.5"; gene_name "WASH7P"; hgnc_id "HGNC:38034";`,
			expected: map[string]string{
				"gene_id":   "ENSG00000227232.5",
				"gene_name": "WASH7P",
				"hgnc_id":   "HGNC:38034",
			},
		},
		{
			name:  "no trailing semicolon",
			input: `gene_id "ENSG00000186092.7"; gene_name "OR4F5"`,
			expected: map[string]string{
				"gene_id":   "ENSG00000186092.7",
				"gene_name": "OR4F5",
			},
		},
		{
			name:     "key without value",
			input:    `gene_id; gene_name "A"`,
			expected: map[string]string{"gene_name": "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseAttributes(tt.input))
		})
	}
}

func TestStripVersion(t *testing.T) {
	assert.Equal(t, "ENSG00000227232", stripVersion("ENSG00000227232.5"))
	assert.Equal(t, "ENSG00000227232", stripVersion("ENSG00000227232"))
	assert.Equal(t, "", stripVersion(""))
}

func TestLoadGenes(t *testing.T) {
	genes, err := LoadGenes(strings.NewReader(geneGTF))
	require.NoError(t, err)
	assert.Equal(t, 2, genes.Len())

	g, ok := genes.Find("ENSG00000227232.5")
	require.True(t, ok)
	assert.Equal(t, "WASH7P", g.GeneName)
	assert.Equal(t, "HGNC:38034", g.HGNCID)

	// hgnc_id is filled from a later line of the same gene.
	g, ok = genes.Find("ENSG00000186092.7")
	require.True(t, ok)
	assert.Equal(t, "OR4F5", g.GeneName)
	assert.Equal(t, "HGNC:14825", g.HGNCID)

	// Version mismatch falls back to the stable id.
	g, ok = genes.Find("ENSG00000186092.9")
	require.True(t, ok)
	assert.Equal(t, "OR4F5", g.GeneName)

	_, ok = genes.Find("ENSG00000000001.1")
	assert.False(t, ok)
}

func TestLoadGenes_ShortLine(t *testing.T) {
	_, err := LoadGenes(strings.NewReader("chr1\tHAVANA\tgene\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestLoadHGNC_SpaceDelimited(t *testing.T) {
	input := "hgnc_id symbol\nHGNC:38034 WASH7P\nHGNC:14825 OR4F5\nHGNC:5 \nHGNC:38034 DUPLICATE\n"

	hgnc, err := LoadHGNC(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, hgnc, 2)

	s, ok := hgnc.Symbol("HGNC:38034")
	assert.True(t, ok)
	assert.Equal(t, "WASH7P", s, "first occurrence wins")

	_, ok = hgnc.Symbol("HGNC:5")
	assert.False(t, ok, "rows without a symbol are skipped")

	_, ok = hgnc.Symbol("")
	assert.False(t, ok)
}

func TestLoadHGNC_TabDelimitedExtraColumns(t *testing.T) {
	input := "hgnc_id\tsymbol\tname\n" +
		"HGNC:5\tA1BG\talpha-1-B glycoprotein\n" +
		"HGNC:37133\tA1BG-AS1\tA1BG antisense RNA 1\n"

	hgnc, err := LoadHGNC(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, HGNC{"HGNC:5": "A1BG", "HGNC:37133": "A1BG-AS1"}, hgnc)
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, '\t', DetectDelimiter([]byte("a\tb\n1\t2\n3\t4\n")))
	assert.Equal(t, ' ', DetectDelimiter([]byte("a b\n1 2\n")))
}

func TestNewGenes(t *testing.T) {
	g := NewGenes([]Gene{
		{GeneID: "ENSG00000227232.5", GeneName: "WASH7P"},
		{GeneID: "ENSG00000227232.5", HGNCID: "HGNC:38034"},
		{GeneID: "ENSG00000186092.7", GeneName: "OR4F5"},
	})

	assert.Equal(t, 2, g.Len())
	gene, ok := g.Find("ENSG00000227232.9")
	require.True(t, ok)
	assert.Equal(t, Gene{GeneID: "ENSG00000227232.5", GeneName: "WASH7P", HGNCID: "HGNC:38034"}, gene)
	assert.Equal(t, []Gene{
		{GeneID: "ENSG00000227232.5", GeneName: "WASH7P", HGNCID: "HGNC:38034"},
		{GeneID: "ENSG00000186092.7", GeneName: "OR4F5"},
	}, g.All())
}

func TestGeneSnapshot(t *testing.T) {
	genes, err := LoadGenes(strings.NewReader(geneGTF))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cache", "genes.gob")
	src := fileio.Fingerprint{Path: "/data/genes.gtf", Size: 1234, ModTime: time.Date(2024, 3, 1, 12, 0, 0, 5, time.UTC)}
	snap := NewGeneSnapshot(path)

	assert.False(t, snap.Valid(src))
	require.NoError(t, snap.Write(genes, src))
	assert.True(t, snap.Valid(src))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, genes.All(), loaded.All())
	gene, ok := loaded.Find("ENSG00000186092.7")
	require.True(t, ok)
	assert.Equal(t, "HGNC:14825", gene.HGNCID)

	changed := src
	changed.Size++
	assert.False(t, snap.Valid(changed))
	changed = src
	changed.Path = "/data/other.gtf"
	assert.False(t, snap.Valid(changed))

	snap.Clear()
	assert.False(t, snap.Valid(src))
	_, err = snap.Load()
	assert.Error(t, err)
}

func TestGeneSnapshot_Overwrite(t *testing.T) {
	genes, err := LoadGenes(strings.NewReader(geneGTF))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "genes.gob")
	src := fileio.Fingerprint{Path: "/data/genes.gtf", Size: 1234, ModTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	snap := NewGeneSnapshot(path)
	require.NoError(t, snap.Write(genes, src))

	smaller := NewGenes([]Gene{{GeneID: "ENSG00000186092.7", GeneName: "OR4F5"}})
	newer := src
	newer.Size = 99
	require.NoError(t, snap.Write(smaller, newer))

	assert.False(t, snap.Valid(src))
	assert.True(t, snap.Valid(newer))
	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.All(), 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"genes.gob", "genes.gob.meta"}, names)
}

func TestWriteAtomic_FailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genes.gob")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	err := writeAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "partial"); err != nil {
			return err
		}
		return errors.New("disk full")
	})
	assert.EqualError(t, err, "disk full")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is removed")
}
