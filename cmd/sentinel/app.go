package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"KinneretSentinel/internal/collector"
	"KinneretSentinel/internal/config"
	"KinneretSentinel/internal/content"
	"KinneretSentinel/internal/history"
	"KinneretSentinel/internal/observability"
	"KinneretSentinel/internal/publication"
	"KinneretSentinel/internal/publisher"
	"KinneretSentinel/internal/recorder"
	"KinneretSentinel/internal/scheduler"
	"KinneretSentinel/internal/watermark"
)

// app holds the wired components for one process. close releases them in reverse order.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	jobs      *scheduler.Jobs
	publisher publisher.Publisher
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	hist, err := a.buildHistory(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	wms, err := a.buildWatermarks(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.publisher = a.buildPublisher()

	fetcher := collector.NewGovILFetcher(cfg.Feed.BaseURL, cfg.Feed.ResourceID, cfg.Feed.Limit, cfg.Feed.Timeout, cfg.Proxy)
	clock := clockwork.NewRealClock()

	a.jobs = &scheduler.Jobs{
		Collector: collector.NewCollector(fetcher, hist, clock, loc, logger),
		History:   hist,
		Machine: &publication.Machine{
			Composer:   a.buildComposer(),
			Publisher:  a.publisher,
			Watermarks: wms,
			Thresholds: cfg.Thresholds,
			DryRun:     cfg.DryRun,
			Logger:     logger,
		},
		Recorder: a.buildRecorder(),
		Metrics:  a.metrics,
		Clock:    clock,
		Logger:   logger,
	}
	a.closers = append(a.closers, func() { _ = a.jobs.Recorder.Close() })
	return a, nil
}

func (a *app) buildHistory(ctx context.Context) (history.Store, error) {
	switch a.cfg.Storage.Backend {
	case "postgres":
		s, err := history.NewPostgresStore(ctx, a.cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres history: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return history.NewFileStore(a.cfg.Storage.HistoryFile), nil
	}
}

func (a *app) buildWatermarks(ctx context.Context) (watermark.Store, error) {
	switch a.cfg.Watermark.Backend {
	case "redis":
		s, err := watermark.NewRedisStore(ctx, watermark.RedisOptions{
			Addr:     a.cfg.Watermark.RedisAddr,
			Password: a.cfg.Watermark.RedisPassword,
			DB:       a.cfg.Watermark.RedisDB,
			Key:      a.cfg.Watermark.RedisKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis watermark: %w", err)
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	default:
		return watermark.NewFileStore(a.cfg.Watermark.File), nil
	}
}

func (a *app) buildPublisher() publisher.Publisher {
	p := a.cfg.Publisher
	if p.Kind == "telegram" {
		return publisher.NewTelegramPublisher(p.Telegram.BotToken, p.Telegram.ChatID, a.cfg.Proxy, a.logger)
	}
	return publisher.NewXPublisher(publisher.XCredentials{
		AppKey:       p.X.AppKey,
		AppSecret:    p.X.AppSecret,
		AccessToken:  p.X.AccessToken,
		AccessSecret: p.X.AccessSecret,
	}, p.Timeout, a.cfg.Proxy, a.logger)
}

func (a *app) buildComposer() *content.Composer {
	var primary content.Strategy
	if a.cfg.LLMEnabled() {
		c := a.cfg.Content
		primary = content.NewGeminiStrategy(c.GeminiAPIKey, c.GeminiModel, *c.Temperature, c.Timeout, a.cfg.Proxy)
	} else {
		a.logger.Info("generative content disabled, using template only")
	}
	return content.NewComposer(primary, content.Template{}, a.cfg.Content.MaxLength, a.logger)
}

func (a *app) buildRecorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	r, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.logger)
	if err != nil {
		a.logger.Warn("init sqlite recorder failed, using noop", "error", err)
		return recorder.NewNoopRecorder()
	}
	return r
}

// flushMetrics writes the textfile snapshot for one-shot commands.
func (a *app) flushMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("write metrics textfile failed", "path", a.cfg.Metrics.Textfile, "error", err)
	}
}
