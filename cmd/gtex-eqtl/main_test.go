package main

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory and clears global config.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeInputs(t *testing.T, dir string) []string {
	t.Helper()

	egenes := filepath.Join(dir, "Whole_Blood.v10.egenes.txt.gz")
	f, err := os.Create(egenes)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("gene_id\tgene_name\tchr\tvariant_pos\tvariant_id\trs_id_dbSNP155_GRCh38p13\n" +
		"ENSG00000227232.5\tWASH7P\tchr1\t64764\tchr1_64764_C_T_b38\trs769952832\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	return []string{
		"Whole_Blood",
		egenes,
		writeFile(t, dir, "Whole_Blood.signif_pairs.txt", "variant_id\tgene_id\tpval_nominal\n"+
			"chr1_64764_C_T_b38\tENSG00000227232.5\t1e-08\n"),
		writeFile(t, dir, "genes.gtf", "chr1\tHAVANA\tgene\t14404\t29570\t.\t-\t.\t"+
			"gene_id \"ENSG00000227232.5\"; gene_name \"WASH7P\"; hgnc_id \"HGNC:38034\";\n"),
		writeFile(t, dir, "hgnc.txt", "hgnc_id\tsymbol\nHGNC:38034\tWASH7P\n"),
		writeFile(t, dir, "lookup.txt", "variant_id rs_id_dbSNP155_GRCh38p13\nchr1_64764_C_T_b38 rs769952832\n"),
		filepath.Join(dir, "out", "Whole_Blood.egenes.csv"),
		filepath.Join(dir, "out", "Whole_Blood.signif_pairs.csv"),
	}
}

func TestRun_Usage(t *testing.T) {
	isolate(t)

	assert.Equal(t, ExitUsage, run([]string{"format", "Whole_Blood"}))
	assert.Equal(t, ExitUsage, run([]string{"batch"}))
	assert.Equal(t, ExitUsage, run([]string{"format", "--no-such-flag"}))
	assert.Equal(t, ExitUsage, run([]string{"frobnicate"}))
	assert.Equal(t, ExitSuccess, run([]string{"version"}))
}

func TestRun_Format(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	args := writeInputs(t, dir)
	reportPath := filepath.Join(dir, "report.json")

	code := run(append([]string{"format", "--log-level", "error", "--report", reportPath}, args...))
	require.Equal(t, ExitSuccess, code)

	egenes, err := os.ReadFile(args[6])
	require.NoError(t, err)
	assert.Contains(t, string(egenes), "bio/WASH7P_rs769952832_Whole_Blood")

	pairs, err := os.ReadFile(args[7])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(pairs)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "chr1_64764_C_T_b38,ENSG00000227232.5,1e-08,Whole Blood,"))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report struct {
		RunID       string `json:"run_id"`
		RsIDsLoaded int64  `json:"rsids_loaded"`
		Tissues     []struct {
			Tissue string `json:"tissue"`
			Stats  struct {
				SigPairsOut int `json:"sig_pairs_out"`
			} `json:"stats"`
		} `json:"tissues"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, int64(1), report.RsIDsLoaded)
	require.Len(t, report.Tissues, 1)
	assert.Equal(t, "Whole_Blood", report.Tissues[0].Tissue)
	assert.Equal(t, 1, report.Tissues[0].Stats.SigPairsOut)
}

func TestRun_FormatMissingInput(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	args := writeInputs(t, dir)
	args[1] = filepath.Join(dir, "missing.txt")

	assert.Equal(t, ExitError, run(append([]string{"format", "--log-level", "error"}, args...)))
}

func TestRun_InvalidLogFormat(t *testing.T) {
	isolate(t)
	args := writeInputs(t, t.TempDir())
	assert.Equal(t, ExitUsage, run(append([]string{"format", "--log-format", "xml"}, args...)))
}

func TestRun_Batch(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	args := writeInputs(t, dir)

	manifest := writeFile(t, dir, "gtex.yaml", `gene_lookup: genes.gtf
hgnc_lookup: hgnc.txt
rsid_lookup: lookup.txt
output_dir: batch-out
tissues:
  - name: Whole_Blood
    egenes: `+filepath.Base(args[1])+`
    sig_pairs: Whole_Blood.signif_pairs.txt
  - name: Lung
    egenes: Lung.egenes.txt
    sig_pairs: Whole_Blood.signif_pairs.txt
`)

	// Lung's egenes file does not exist: the batch fails but Whole_Blood is written.
	assert.Equal(t, ExitError, run([]string{"batch", "--log-level", "error", "--workers", "2", manifest}))
	assert.FileExists(t, filepath.Join(dir, "batch-out", "Whole_Blood.egenes.csv"))
	assert.FileExists(t, filepath.Join(dir, "batch-out", "Whole_Blood.signif_pairs.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "batch-out", "Lung.egenes.csv"))
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		l, err := newLogger("warn", format)
		require.NoError(t, err, format)
		assert.False(t, l.Core().Enabled(-1))
		assert.True(t, l.Core().Enabled(1))
	}

	_, err := newLogger("loud", "console")
	assert.ErrorContains(t, err, "invalid log level")
	_, err = newLogger("info", "xml")
	assert.ErrorContains(t, err, "invalid log format")
}

func TestConfigSetGet(t *testing.T) {
	home := isolate(t)

	require.Equal(t, ExitSuccess, run([]string{"config", "set", "assembly", "GRCh38.p14"}))
	data, err := os.ReadFile(filepath.Join(home, ".gtex-eqtl.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GRCh38.p14")

	viper.Reset()
	assert.Equal(t, ExitSuccess, run([]string{"config", "get", "assembly"}))
	assert.Equal(t, "GRCh38.p14", viper.GetString("assembly"))

	assert.Equal(t, ExitUsage, run([]string{"config", "set", "colour", "blue"}))
	assert.Equal(t, ExitUsage, run([]string{"config", "set", "workers", "many"}))
}

func TestConfigFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GTEX_EQTL_COLUMNS_EGENES_RSID", "rs_id_dbSNP151_GRCh38p7")

	require.Equal(t, ExitSuccess, run([]string{"config", "get", "columns.egenes_rsid"}))
	assert.Equal(t, "rs_id_dbSNP151_GRCh38p7", viper.GetString("columns.egenes_rsid"))
}
