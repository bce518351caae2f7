package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lvillar/docforge/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve document editing tools to AI assistants over MCP on stdio",
		Long: `Serve document editing tools to AI assistants over the Model Context
Protocol. Requests are read from stdin and responses written to stdout;
logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(conf)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			store, err := newStore(conf, nil, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go store.Run(ctx, conf.SweepInterval())

			s := mcp.NewServer(
				mcp.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
				mcp.WithVersion(version),
				mcp.WithLogger(logger),
			)
			mcp.RegisterDefaultTools(s, store)
			mcp.RegisterDefaultResources(s, store)

			return s.Run(ctx)
		},
	}
}
