package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/csg33k/cps-dct/internal/adapters/infix"
	"github.com/csg33k/cps-dct/internal/handlers"
	"github.com/csg33k/cps-dct/internal/pipeline"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			ctx := cmd.Context()
			r, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			p := pipeline.New(opts, layout, logger).WithCatalog(r)
			h := handlers.New(r, infix.NewWithHints(layout.TypeHints()), p, logger)

			srv := &http.Server{Addr: ":" + cfg.Port, Handler: h.Routes()}
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdown)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "serving on http://localhost:%s\n", cfg.Port)
			logger.Info("server starting", "port", cfg.Port, "db", cfg.DBPath, "workdir", cfg.WorkDir)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (env PORT)")
	return cmd
}
