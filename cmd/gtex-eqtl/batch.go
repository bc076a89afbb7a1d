package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gtex-eqtl/internal/pipeline"
)

func newBatchCmd() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Format many tissues sharing one set of lookups",
		Long: `Format every tissue listed in a manifest. The lookups are loaded once and
tissues are formatted in parallel. A failing tissue does not stop the others.

Manifest:
  gene_lookup: gencode.v39.genes.gtf
  hgnc_lookup: hgnc_complete_set.txt
  rsid_lookup: gs://bucket/GTEx_Analysis_v10_WGS.lookup_table.txt.gz
  output_dir: out
  tissues:
    - name: Whole_Blood
      egenes: Whole_Blood.v10.egenes.txt.gz
      sig_pairs: Whole_Blood.v10.signif_pairs.parquet

Relative paths are resolved against the manifest's directory.`,
		Example: `  gtex-eqtl batch --workers 4 --report run.json gtex_v10.yaml`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], reportPath)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON run report to this file")
	cmd.Flags().Int("workers", 0, "Number of tissues formatted at once (0: number of CPUs)")
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func runBatch(cmd *cobra.Command, manifestPath, reportPath string) error {
	ctx := cmd.Context()

	m, err := pipeline.ReadManifest(manifestPath)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, m.Paths(), m.InputPaths())
	if err != nil {
		return err
	}
	defer s.Close()

	jobs := m.Jobs()
	s.logger.Info("starting batch", zap.String("manifest", manifestPath), zap.Int("tissues", len(jobs)))

	err = s.runner.RunAll(ctx, jobs, viper.GetInt("workers"), func(r pipeline.WorkResult) error {
		s.record(r.Job, r.Stats, r.Err)
		if r.Err != nil {
			s.logger.Error("tissue failed", zap.String("tissue", r.Job.Tissue), zap.Error(r.Err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.writeReport(reportPath); err != nil {
		return err
	}
	if n := s.report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d tissues failed", n, len(jobs))
	}
	return nil
}
