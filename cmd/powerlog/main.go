// cmd/powerlog/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tamzrod/powerlog/internal/clock"
	"github.com/tamzrod/powerlog/internal/config"
	"github.com/tamzrod/powerlog/internal/metrics"
	"github.com/tamzrod/powerlog/internal/poller"
	"github.com/tamzrod/powerlog/internal/writer"
)

// Process exit codes.
const (
	exitStartup     = 1
	exitConfig      = 2
	exitPersistence = 3
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "powerlog: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(exitStartup)
	}
}

// exitError carries the process exit code for a fatal error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		count      uint64
		check      bool
		logLevel   string
		logFormat  string
	)

	flagSet := pflag.NewFlagSet("powerlog", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", defaultConfigPath(), "config file (.yaml, .yml, .json, .jsonc); env "+config.EnvPrefix+"CONFIG")
	flagSet.Uint64Var(&count, "count", 0, "stop after this many samples (0 = run until interrupted)")
	flagSet.BoolVar(&check, "check", false, "validate the configuration, print it and exit")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.StringVar(&logFormat, "log-format", "text", "text or json")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return withCode(exitConfig, err)
	}
	if flagSet.NArg() > 0 {
		return withCode(exitConfig, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0)))
	}

	log, err := newLogger(stderr, logLevel, logFormat)
	if err != nil {
		return withCode(exitConfig, err)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(configPath)
	if err != nil {
		if config.IsError(err) {
			return withCode(exitConfig, err)
		}
		return withCode(exitStartup, err)
	}

	if check {
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return withCode(exitStartup, err)
		}
		_, err = stdout.Write(out)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Sink
	// --------------------

	sink, err := writer.Build(cfg, log)
	if err != nil {
		return withCode(exitStartup, err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn("closing power log", "err", err)
		}
	}()

	// --------------------
	// Metrics (optional)
	// --------------------

	var observer poller.Observer
	if cfg.MetricsAddr != "" {
		rec := metrics.NewRecorder()
		srv, err := metrics.Listen(cfg.MetricsAddr, rec, log)
		if err != nil {
			return withCode(exitStartup, err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("metrics server shutdown", "err", err)
			}
		}()
		observer = rec
	}

	// --------------------
	// Device + scheduler
	// --------------------

	clk := clock.Real()

	reader, closeDevice, err := poller.Build(ctx, cfg, clk, log)
	if err != nil {
		return withCode(exitStartup, err)
	}
	defer closeDevice()

	sched, err := poller.NewScheduler(poller.Config{
		Interval: cfg.Interval(),
		MaxTicks: count,
		Clock:    clk,
		Logger:   log,
		Observer: observer,
	}, reader, sink)
	if err != nil {
		return withCode(exitStartup, err)
	}

	log.Info("sampling started",
		"interval", cfg.Interval(),
		"device", cfg.DeviceAddress,
		"driver", cfg.DeviceDriver,
		"log_path", sink.Path(),
	)

	if err := sched.Run(ctx); err != nil {
		var pe *poller.PersistenceError
		if errors.As(err, &pe) {
			return withCode(exitPersistence, err)
		}
		return withCode(exitStartup, err)
	}
	return nil
}

func defaultConfigPath() string {
	if p, ok := os.LookupEnv(config.EnvPrefix + "CONFIG"); ok && p != "" {
		return p
	}
	return "config.json"
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", format)
	}
}
