package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/app"
	"github.com/rovshanmuradov/lp-hedge/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	listen := flag.String("listen", "", "Listen address (overrides server.listen)")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, *configPath, *listen); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, listen string) error {
	a, err := app.New(ctx, app.Options{ConfigPath: configPath})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	cfg := a.Config
	if listen == "" {
		listen = cfg.Server.Listen
	}

	opts := server.Options{
		Engine:      a.Engine.Config(),
		LowerFactor: cfg.Sweep.LowerFactor,
		UpperFactor: cfg.Sweep.UpperFactor,
		Points:      cfg.Sweep.Points,
		MaxPoints:   cfg.Sweep.MaxPoints,
		Workers:     cfg.Sweep.Workers,
	}
	if cfg.Server.Metrics {
		opts.Metrics = a.Metrics
	}
	h := server.NewHandler(a.Feed, a.Assets, opts, a.Logger.Named("api"))

	srv := server.New(listen, h, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, a.Logger)
	if err := srv.Run(ctx, shutdownTimeout); err != nil {
		a.Logger.Error("HTTP server failed", zap.Error(err))
		return err
	}
	a.Logger.Info("HTTP server stopped")
	return nil
}
