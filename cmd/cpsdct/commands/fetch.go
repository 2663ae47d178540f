package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/csg33k/cps-dct/internal/pipeline"
)

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the index page and the archives and layouts it links to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureWorkDir(); err != nil {
				return err
			}
			p := pipeline.New(opts, layout, logger)
			archives, layouts, err := p.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d archive(s), %d layout(s) in %s\n", len(archives), len(layouts), cfg.WorkDir)
			return nil
		},
	}
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [archive...]",
		Short: "Unpack archives into the work directory (default: every *.zip there)",
		RunE: func(cmd *cobra.Command, args []string) error {
			archives := args
			if len(archives) == 0 {
				var err error
				if archives, err = filepath.Glob(filepath.Join(cfg.WorkDir, "*.zip")); err != nil {
					return err
				}
			}
			p := pipeline.New(opts, layout, logger)
			if err := p.Materialize(cmd.Context(), archives); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d archive(s)\n", len(archives))
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.KeepArchives, "keep", false, "keep archives after extraction")
	return cmd
}
