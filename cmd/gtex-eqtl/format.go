package main

import (
	"github.com/spf13/cobra"

	"github.com/inodb/gtex-eqtl/internal/pipeline"
)

func newFormatCmd() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "format <tissue> <egenes> <sig_pairs> <gene_lookup> <hgnc_lookup> <rsid_lookup> <out_egenes> <out_sig_pairs>",
		Short: "Format the egenes and significant pairs of one tissue",
		Long: `Format the GTEx egenes and significant variant-gene pair files of one tissue.

Arguments:
  <tissue>         GTEx tissue name, e.g. Whole_Blood
  <egenes>         egenes file (tab-separated, optionally gzipped)
  <sig_pairs>      significant pairs file (parquet, or tab-separated)
  <gene_lookup>    GTF-like gene annotation table with gene_id, gene_name, hgnc_id
  <hgnc_lookup>    HGNC table with hgnc_id and symbol columns
  <rsid_lookup>    space-separated variant_id to rsID lookup table
  <out_egenes>     output CSV for egenes
  <out_sig_pairs>  output CSV for significant pairs

Input paths may be gs://bucket/object.`,
		Example: `  gtex-eqtl format Whole_Blood \
    Whole_Blood.v10.egenes.txt.gz Whole_Blood.v10.signif_pairs.parquet \
    gencode.v39.genes.gtf hgnc_complete_set.txt \
    GTEx_Analysis_v10_WGS.lookup_table.txt.gz \
    Whole_Blood.egenes.csv Whole_Blood.signif_pairs.csv`,
		Args: usageArgs(cobra.ExactArgs(8)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd, args, reportPath)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON run report to this file")
	return cmd
}

func runFormat(cmd *cobra.Command, args []string, reportPath string) error {
	ctx := cmd.Context()
	job := pipeline.Job{
		Tissue:      args[0],
		Egenes:      args[1],
		SigPairs:    args[2],
		OutEgenes:   args[6],
		OutSigPairs: args[7],
	}
	paths := pipeline.LookupPaths{Genes: args[3], HGNC: args[4], RsIDs: args[5]}

	s, err := openSession(ctx, paths, args[1:6])
	if err != nil {
		return err
	}
	defer s.Close()

	stats, runErr := s.runner.Run(ctx, job)
	s.record(job, stats, runErr)
	if err := s.writeReport(reportPath); err != nil {
		return err
	}
	return runErr
}
