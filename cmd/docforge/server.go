package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lvillar/docforge/config"
	"github.com/lvillar/docforge/export"
	"github.com/lvillar/docforge/media"
	"github.com/lvillar/docforge/metrics"
	"github.com/lvillar/docforge/server"
	"github.com/lvillar/docforge/session"
)

var flagPort int

// newStore builds the session store every surface shares. m may be nil.
func newStore(conf *config.Config, m *metrics.Metrics, logger *zap.Logger) (*session.Store, error) {
	var (
		exportMetrics export.Metrics
		gauge         session.Gauge
	)
	if m != nil {
		exportMetrics = m
		gauge = m
	}
	exporter := export.NewExporter(logger, exportMetrics, conf.ExportOptions()...)
	loader := media.NewLoader(conf.Server.MaxUploadBytes, logger)

	return session.NewStore(conf.SessionTTL(), gauge, logger,
		session.WithExporter(exporter),
		session.WithImageLoader(loader),
		session.WithLogger(logger),
	)
}

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server [options]",
		Short: "Start the docforge HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				conf.Server.Port = flagPort
				if err := conf.Validate(); err != nil {
					return err
				}
			}

			logger, err := newLogger(conf)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			m, err := metrics.NewMetrics()
			if err != nil {
				return err
			}
			m.WithServerVersion(version)

			store, err := newStore(conf, m, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go store.Run(ctx, conf.SweepInterval())

			router := server.NewRouter(server.Options{
				Mode:           conf.Server.Mode,
				MaxUploadBytes: conf.Server.MaxUploadBytes,
			}, store, m, logger)
			router.SetupRoutes()

			return router.Run(ctx, fmt.Sprintf(":%d", conf.Server.Port))
		},
	}
	cmd.Flags().IntVarP(&flagPort, "port", "p", config.DefaultPort, "HTTP port, overrides the config file")
	return cmd
}
