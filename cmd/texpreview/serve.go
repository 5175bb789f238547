package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-texpreview/internal/displayref"
	"github.com/ahrav/go-texpreview/internal/preview"
	"github.com/ahrav/go-texpreview/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr   string
		source string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live preview of one LaTeX document over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			client, closeClient, err := a.newCompileClient(ctx)
			if err != nil {
				return err
			}
			defer closeClient()

			refs := displayref.NewRegistry(a.cfg.Server.PreviewPath)
			orch := preview.NewOrchestrator(client, refs,
				preview.WithLogger(a.logger),
				preview.WithCompilerName(a.cfg.Compiler))
			defer func() {
				orch.OnTeardown()
				orch.Wait()
			}()

			go logTransitions(ctx, a.logger, orch)

			if source != "" {
				if err := orch.Regenerate(ctx, preview.FileGenerator{Path: source}); err != nil {
					return err
				}
			}

			srv := server.New(a.cfg.Server, orch, refs, server.WithLogger(a.logger))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&source, "source", "", "LaTeX file to load as the initial document")
	return cmd
}

func logTransitions(ctx context.Context, logger *slog.Logger, orch *preview.Orchestrator) {
	states, cancel := orch.Subscribe()
	defer cancel()

	logger = logger.With("component", "serve")
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			attrs := []any{"phase", st.Phase.String(), "document_key", st.DocumentKey}
			if st.Err != nil {
				attrs = append(attrs, "error_type", st.Err.Type, "error", st.Err.Message)
			}
			logger.Info("preview state", attrs...)
		}
	}
}
