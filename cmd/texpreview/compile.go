package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
)

func newCompileCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile <file.tex>",
		Args:  cobra.ExactArgs(1),
		Short: "Compile a LaTeX file once and write the PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + ".pdf"
			}
			cmdLogger := a.logger.With("command", "compile", "input", input)

			source, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}

			client, closeClient, err := a.newCompileClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			artifact, err := client.Compile(cmd.Context(), string(source))
			if err != nil {
				if ce, ok := compileerrors.As(err); ok && ce.HasLog() {
					fmt.Fprintln(cmd.ErrOrStderr(), ce.Log)
				}
				return err
			}

			if err := os.WriteFile(output, artifact.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			cmdLogger.Info("compiled", "output", output, "bytes", artifact.Size(), "document_key", artifact.DocumentKey)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "PDF output path (default: input with .pdf extension)")
	return cmd
}
