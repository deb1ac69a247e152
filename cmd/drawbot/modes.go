package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/alejandrodnm/drawbot/internal/adapters/metrics"
	"github.com/alejandrodnm/drawbot/internal/adapters/schedule"
	"github.com/alejandrodnm/drawbot/internal/adapters/storage"
	"github.com/alejandrodnm/drawbot/internal/application/closing"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

func loadSeed(ctx context.Context, store *storage.SQLiteStorage, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := store.LoadFixture(ctx, f)
	if err != nil {
		return err
	}
	slog.Info("fixture loaded", "path", path, "records", n)
	return nil
}

func runEvent(ctx context.Context, runner *closing.Runner, eventID string) error {
	res, err := runner.SelectAndCommit(ctx, eventID)
	if err != nil {
		return err
	}
	slog.Info("event processed",
		"event_id", eventID,
		"method", res.Selection.Method,
		"item", res.Selection.Item.Code,
		"committed", res.Committed,
	)
	return nil
}

func runOnce(ctx context.Context, runner *closing.Runner) error {
	results, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d events failed", failed, len(results))
	}
	return nil
}

func runOverride(ctx context.Context, runner *closing.Runner, eventID, itemID, actor, reason string) error {
	ov, err := runner.Override(ctx, eventID, itemID, actor, reason)
	if err != nil {
		return err
	}
	fmt.Printf("event %s: %s → %s (audit %s)\n", ov.EventID, ov.PreviousItemID, ov.NewItemID, ov.ID)
	return nil
}

// runScheduled agenda RunOnce con cron y sirve /metrics hasta que ctx se cancele.
func runScheduled(
	ctx context.Context,
	cfg *config.Config,
	runner *closing.Runner,
	clk ports.Clock,
	recorder *metrics.Recorder,
	health metrics.HealthFunc,
) error {
	cr := schedule.New(ctx, clk.Location())
	id, err := cr.Add(cfg.Scheduler.Cron, func(ctx context.Context) {
		if _, err := runner.RunOnce(ctx); err != nil {
			slog.Error("closing pass failed", "err", err)
		}
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Port != "" {
		srv := metrics.StartServer(cfg.Metrics.Port, recorder.Registry, health)
		slog.Info("metrics server listening", "port", cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	cr.Start()
	slog.Info("closing runner scheduled", "cron", cfg.Scheduler.Cron, "next", cr.Next(id))

	<-ctx.Done()
	cr.Stop()
	return nil
}
