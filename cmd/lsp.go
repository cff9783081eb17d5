// Copyright © 2025 The MON authors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monlang/mon/lsp"
)

func (a *app) lspCommand() *cobra.Command {
	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the MON language server",
		Long: `Start a Language Server Protocol server for MON files.

The server publishes diagnostics as files are edited and provides hover,
go-to-definition, references, completion, document symbols, folding and
rename. Unsaved buffers take precedence over files on disk when imports
are resolved.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Editor configuration:
  Configure a generic LSP client to run "mon lsp --stdio" for *.mon files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.lintConfig(cmd.Context(), ".")
			if err != nil {
				return fatal(err)
			}

			opts := []lsp.Option{
				lsp.WithLogger(a.logger),
				lsp.WithConfig(cfg),
				lsp.WithServiceOptions(a.serviceOptions()...),
			}
			if a.cfg.loader != nil {
				opts = append(opts, lsp.WithLoader(a.cfg.loader))
			}
			srv := lsp.New(opts...)

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				a.logger.Info("language server listening", "addr", addr)
				err = srv.RunTCP(addr)
			} else {
				err = srv.RunStdio()
			}
			if err != nil {
				return fatal(fmt.Errorf("lsp server: %w", err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false, "use stdin/stdout for LSP communication (default)")
	cmd.Flags().IntVar(&port, "port", 0, "TCP port to listen on instead of stdio")
	return cmd
}
