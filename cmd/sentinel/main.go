// Command sentinel tracks the Sea of Galilee level: it ingests official surveys,
// publishes one post per new reading and optionally runs as a daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"KinneretSentinel/internal/config"
	"KinneretSentinel/internal/observability"
	"KinneretSentinel/internal/publisher"
	"KinneretSentinel/internal/scheduler"
	"KinneretSentinel/internal/server"
)

const usage = `usage: sentinel <command> [flags]

commands:
  update    fetch the latest surveys and merge them into the history
  publish   publish the newest unpublished reading
  serve     run the scheduler, chat bot and HTTP API
`

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "update":
		err = runUpdate(ctx, args[1:], stderr)
	case "publish":
		err = runPublish(ctx, args[1:], stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stderr, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 1
	}
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "sentinel %s: %v\n", args[0], err)
		}
		return 1
	}
	return 0
}

type commonFlags struct {
	configPath    string
	surveysPath   string
	watermarkPath string
	dryRun        bool
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// loadConfig parses flags, loads the config and applies flag overrides before validation.
func loadConfig(fs *flag.FlagSet, f *commonFlags, args []string) (*config.Config, *slog.Logger, error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.surveysPath != "" {
		cfg.Storage.HistoryFile = f.surveysPath
	}
	if f.watermarkPath != "" {
		cfg.Watermark.File = f.watermarkPath
	}
	if f.dryRun {
		cfg.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, observability.NewLogger(cfg.Log.Level, cfg.Log.Format), nil
}

func newFlagSet(name string, stderr io.Writer, f *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", defaultConfigPath(), "path to config.yaml")
	return fs
}

func runUpdate(ctx context.Context, args []string, stderr io.Writer) error {
	var f commonFlags
	fs := newFlagSet("update", stderr, &f)
	fs.StringVar(&f.surveysPath, "surveys", "", "history file (overrides storage.history_file)")
	cfg, logger, err := loadConfig(fs, &f, args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	_, err = a.jobs.RunUpdate(ctx)
	return err
}

func runPublish(ctx context.Context, args []string, stderr io.Writer) error {
	var f commonFlags
	fs := newFlagSet("publish", stderr, &f)
	fs.StringVar(&f.surveysPath, "surveys", "", "history file (overrides storage.history_file)")
	fs.StringVar(&f.watermarkPath, "watermark", "", "watermark file (overrides watermark.file)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "compose the post without publishing or committing")
	cfg, logger, err := loadConfig(fs, &f, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidatePublishing(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.flushMetrics()

	out, err := a.jobs.RunPublish(ctx)
	if err != nil {
		return err
	}
	if out.DryRun && out.Content != nil {
		fmt.Fprintln(os.Stdout, out.Content.Text)
	}
	return nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	var f commonFlags
	fs := newFlagSet("serve", stderr, &f)
	cfg, logger, err := loadConfig(fs, &f, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidatePublishing(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.NewScheduler(ctx, a.jobs, logger)
	if err := sched.RegisterAll(cfg.Schedule.UpdateCron, cfg.Schedule.PublishCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Schedule.RunOnStart {
		logger.Info("run_on_start enabled, running update and publish now")
		sched.StartInitialRun()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg.HTTP.Addr, a.jobs, a.metrics.Registry, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		err := config.Watch(gctx, f.configPath, logger, func(next *config.Config) {
			a.jobs.ApplySettings(next.Thresholds, next.Content.MaxLength)
			logger.Info("live settings applied", "thresholds", next.Thresholds, "max_length", next.Content.MaxLength)
		})
		if err != nil {
			logger.Warn("config watch disabled", "path", f.configPath, "error", err)
		}
		return nil
	})
	if tg, ok := a.publisher.(*publisher.TelegramPublisher); ok {
		g.Go(func() error {
			tg.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
	}

	logger.Info("sentinel is running", "update_cron", cfg.Schedule.UpdateCron, "publish_cron", cfg.Schedule.PublishCron)
	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}
