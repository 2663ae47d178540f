package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/csg33k/cps-dct/internal/domain"
	"github.com/csg33k/cps-dct/internal/pipeline"
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "directory for generated files (default: work directory)")
	cmd.Flags().BoolVar(&opts.PDF, "pdf", false, "also write a PDF codebook per year")
	cmd.Flags().BoolVar(&opts.XLSX, "xlsx", false, "also write "+pipeline.CodebookFile)
}

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate one dictionary per layout document in the work directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd.Context())
			if err != nil {
				return err
			}
			run, err := p.Rebuild(cmd.Context())
			report(cmd.OutOrStdout(), run)
			return err
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, extract and build in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureWorkDir(); err != nil {
				return err
			}
			ctx := cmd.Context()
			p, err := newPipeline(ctx)
			if err != nil {
				return err
			}
			run, err := p.Run(ctx)
			report(cmd.OutOrStdout(), run)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.KeepArchives, "keep", false, "keep archives after extraction")
	addOutputFlags(cmd)
	return cmd
}

// report prints one line per year.
func report(w io.Writer, run *domain.Run) {
	if run == nil {
		return
	}
	for _, r := range run.Results {
		if r.OK() {
			fmt.Fprintf(w, "20%s  %-40s -> %s (%d fields)\n", r.Year, r.Source, r.Output, len(r.Dictionary.Entries))
			continue
		}
		fmt.Fprintf(w, "20%s  %-40s FAILED: %v\n", r.Year, r.Source, r.Err)
	}
	fmt.Fprintf(w, "%d year(s), %d failed\n", len(run.Results), run.Failed())
}
