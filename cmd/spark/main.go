// Command spark runs the spark HTTP/1.x server.
//
//	spark [config.json]
//
// Without an argument ./spark.config.json is read when it exists and the
// built-in defaults are used otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/watt-toolkit/spark/pkg/spark/config"
	"github.com/watt-toolkit/spark/pkg/spark/logging"
	"github.com/watt-toolkit/spark/pkg/spark/metrics"
	"github.com/watt-toolkit/spark/pkg/spark/server"
)

const (
	defaultConfigPath = "./spark.config.json"
	shutdownGrace     = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run starts the server and blocks until ctx is done or the server fails.
// It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(stderr, "Config error:", err)
		return 1
	}

	logger := logging.New(logging.Options{
		File:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Stdout: stdout,
		Stderr: stderr,
	})
	defer logger.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(cfg,
		server.WithLogger(logger.Logger),
		server.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		logger.WithError(err).Log(logrus.FatalLevel, "invalid configuration")
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.ListenAndServe()
		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}
		return err
	})

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.Timeout(),
		}

		g.Go(func() error {
			logger.WithField("addr", cfg.MetricsAddr).Info("metrics endpoint listening")
			err := metricsSrv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			logger.WithError(err).Log(logrus.FatalLevel, "metrics endpoint failed")
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown timed out")
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// loadConfig reads the file named in args, or the default file when it
// exists.
func loadConfig(args []string) (config.Config, error) {
	if len(args) > 0 {
		return config.Load(args[0])
	}

	cfg, err := config.Load(defaultConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}
