package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	testrecorder "github.com/JHodgkins/Test-Recorder-Extension"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/bus"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/capture"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/config"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/metrics"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/server"
)

const drainTimeout = 10 * time.Second

func newServeCmd(l *loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recorder with its HTTP and websocket endpoints",
		Example: `  testrecorder serve --listen 127.0.0.1:7420 --workers 4
  TESTRECORDER_BUS_KIND=nats TESTRECORDER_BUS_URL=nats://localhost:4222 testrecorder serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := l.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := bus.New(cfg.Bus)
			if err != nil {
				logger.Error("failed to create message bus", zap.String("kind", cfg.Bus.Kind), zap.Error(err))
				return err
			}
			defer b.Close()

			catalog, closeCatalog, err := openCatalog(cfg.CatalogPath)
			if err != nil {
				logger.Error("failed to open plan catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
				return err
			}
			defer func() { _ = closeCatalog() }()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			bridge := capture.NewBridge()
			runner := testrecorder.NewLocalRunner(
				testrecorder.WithBus(b),
				testrecorder.WithCapturer(bridge),
				testrecorder.WithListener(testrecorder.NewCompositeListener(
					testrecorder.NewLoggingListener(logger),
					metrics.NewPrometheusListener(reg),
				)),
				testrecorder.WithLogger(logger),
				testrecorder.WithTimeouts(cfg.CaptureTimeout, cfg.AnnotationTimeout),
			)
			if err := runner.Start(ctx, cfg.Workers); err != nil {
				return err
			}

			srv, err := server.New(ctx, server.Config{
				Recorder: runner.Recorder,
				Bus:      b,
				Bridge:   bridge,
				Catalog:  catalog,
				Gatherer: reg,
				Logger:   logger,
			})
			if err != nil {
				runner.Stop()
				return err
			}
			defer srv.Close()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx, cfg.Listen)
			})
			g.Go(func() error {
				<-gctx.Done()
				drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
				defer cancel()
				if err := runner.Shutdown(drainCtx); err != nil {
					logger.Warn("shutdown abandoned pending steps", zap.Error(err))
				}
				return nil
			})

			logger.Info("recorder ready",
				zap.String("listen", cfg.Listen),
				zap.String("bus", cfg.Bus.Kind),
				zap.Int("workers", cfg.Workers),
			)
			return g.Wait()
		},
	}

	d := config.Default()
	cmd.Flags().String("listen", d.Listen, "Address for the HTTP and websocket endpoints")
	cmd.Flags().Int("workers", d.Workers, "Number of concurrent step pipelines")
	cmd.Flags().Duration("annotationTimeout", d.AnnotationTimeout, "How long to wait for a page to annotate a screenshot")
	cmd.Flags().Duration("captureTimeout", d.CaptureTimeout, "How long to wait for a viewport capture")
	_ = l.v.BindPFlags(cmd.Flags())
	return cmd
}
