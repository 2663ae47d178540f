package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/csg33k/cps-dct/internal/adapters/cps"
	"github.com/csg33k/cps-dct/internal/adapters/infix"
	"github.com/csg33k/cps-dct/internal/domain"
)

func parseCmd() *cobra.Command {
	var (
		year string
		dump bool
	)
	cmd := &cobra.Command{
		Use:   "parse <layout-file>",
		Short: "Parse one layout document and print its infix dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if year == "" {
				var ok bool
				if year, ok = layout.YearRule.Token(path); !ok {
					return fmt.Errorf("%s: %w (use --year)", filepath.Base(path), domain.ErrNoYearToken)
				}
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			parsed, err := cps.NewParser(layout.KeepSet(), logger).Parse(cmd.Context(), year, filepath.Base(path), f)
			if err != nil {
				return err
			}

			gen := infix.NewWithHints(layout.TypeHints())
			d := gen.Build(parsed)
			if dump {
				sc := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
				sc.Fdump(cmd.OutOrStdout(), parsed.Fields(), parsed.Duplicates(), d)
				return nil
			}
			if len(d.Entries) == 0 {
				logger.Warn("no kept fields found", "file", path)
			}
			return gen.Render(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "two-digit year token (default: derived from the file name)")
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the parsed structures instead of the dictionary")
	return cmd
}
