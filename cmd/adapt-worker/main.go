package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/adapt/internal/config"
	"github.com/me/adapt/internal/funcs"
	"github.com/me/adapt/internal/logging"
	"github.com/me/adapt/internal/remote"
)

func main() {
	cfg := config.DefaultWorkerConfig()

	configFile := flag.String("config", "", "Path to YAML config file")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent evaluation slots")
	flag.DurationVar(&cfg.EvalDelay, "eval-delay", cfg.EvalDelay, "Simulated per-evaluation cost")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	if *configFile != "" {
		fileCfg, err := config.LoadWorker(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		// Flags win over the file; re-apply any the user set explicitly.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "addr":
				fileCfg.Addr = cfg.Addr
			case "workers":
				fileCfg.Workers = cfg.Workers
			case "eval-delay":
				fileCfg.EvalDelay = cfg.EvalDelay
			case "log-level":
				fileCfg.LogLevel = cfg.LogLevel
			case "log-format":
				fileCfg.LogFormat = cfg.LogFormat
			}
		})
		cfg = fileCfg
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	registry := funcs.Builtins(cfg.EvalDelay, logger)
	srv := remote.NewServer(registry, cfg.Workers, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("eval worker listening",
			"addr", cfg.Addr,
			"workers", cfg.Workers,
			"functions", registry.Names(),
		)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "serve: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("eval worker stopped")
}
