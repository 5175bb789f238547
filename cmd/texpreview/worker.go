package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-texpreview/internal/worker"
)

func newWorkerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker that renders LaTeX documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tcfg := a.cfg.Temporal
			cmdLogger := a.logger.With("command", "worker", "task_queue", tcfg.TaskQueue)

			compileClient, closeClient, err := a.newCompileClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			tc, err := client.Dial(client.Options{
				HostPort:  tcfg.HostPort,
				Namespace: tcfg.Namespace,
				Logger:    temporallog.NewStructuredLogger(a.logger.With("component", "temporal")),
			})
			if err != nil {
				return fmt.Errorf("dial temporal %s: %w", tcfg.HostPort, err)
			}
			defer tc.Close()

			w := sdkworker.New(tc, tcfg.TaskQueue, sdkworker.Options{})
			worker.RegisterAll(w, compileClient, worker.InitializeArtifactStore())

			cmdLogger.Info("starting render worker", "namespace", tcfg.Namespace)

			stop := make(chan any)
			go func() {
				<-cmd.Context().Done()
				close(stop)
			}()
			if err := w.Run(stop); err != nil {
				return fmt.Errorf("run worker: %w", err)
			}
			cmdLogger.Info("render worker stopped")
			return nil
		},
	}
	return cmd
}
