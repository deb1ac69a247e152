package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/alejandrodnm/drawbot/internal/adapters/clock"
	"github.com/alejandrodnm/drawbot/internal/adapters/lock"
	"github.com/alejandrodnm/drawbot/internal/adapters/metrics"
	"github.com/alejandrodnm/drawbot/internal/adapters/notify"
	"github.com/alejandrodnm/drawbot/internal/adapters/storage"
	"github.com/alejandrodnm/drawbot/internal/application/closing"
	"github.com/alejandrodnm/drawbot/internal/application/optimizer"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	eventID := flag.String("event", "", "select the outcome of one event and exit")
	once := flag.Bool("once", false, "run one closing pass and exit")
	dryRun := flag.Bool("dry-run", false, "select without committing the pre-selection")
	overrideItem := flag.String("override", "", "item id to set as the outcome of -event (audited)")
	actor := flag.String("actor", "", "operator responsible for -override")
	reason := flag.String("reason", "", "reason recorded with -override")
	seedPath := flag.String("seed", "", "load a YAML fixture into storage before running")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the full ranking table (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("drawbot starting",
		"config", *configPath,
		"event", *eventID,
		"once", *once,
		"dry_run", *dryRun,
		"timezone", cfg.Optimizer.Timezone,
	)

	if *overrideItem != "" && *eventID == "" {
		slog.Error("-override requires -event")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clk, err := clock.New(cfg.Optimizer.Timezone)
	if err != nil {
		slog.Error("failed to load timezone", "err", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	if *seedPath != "" {
		if err := loadSeed(ctx, store, *seedPath); err != nil {
			slog.Error("failed to load fixture", "err", err, "path", *seedPath)
			os.Exit(1)
		}
		if *eventID == "" && !*once {
			return
		}
	}

	locker, rdb, err := newLocker(ctx, cfg.Lock)
	if err != nil {
		slog.Error("failed to connect lock backend", "err", err, "addr", cfg.Lock.RedisAddr)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var opts []optimizer.Option
	if cfg.Optimizer.Seed != 0 {
		opts = append(opts, optimizer.WithSeed(cfg.Optimizer.Seed))
	}
	opt, err := optimizer.New(optimizerConfig(cfg.Optimizer), store, clk, opts...)
	if err != nil {
		slog.Error("invalid optimizer config", "err", err)
		os.Exit(1)
	}

	recorder := metrics.NewRecorder()
	reporter := notify.NewConsole(*table || cfg.Report.Table, cfg.Report.Limit)

	runCfg := closing.DefaultConfig()
	runCfg.LeadTime = cfg.LeadTime()
	runCfg.Workers = cfg.Scheduler.Workers
	runCfg.RatePerSec = cfg.Scheduler.RatePerSec
	runCfg.EventTimeout = cfg.EventTimeout()
	runCfg.LockTTL = cfg.LockTTL()
	runCfg.DryRun = *dryRun

	runner := closing.New(runCfg, opt, store, clk, locker, reporter, recorder)

	switch {
	case *overrideItem != "":
		err = runOverride(ctx, runner, *eventID, *overrideItem, *actor, *reason)
	case *eventID != "":
		err = runEvent(ctx, runner, *eventID)
	case *once:
		err = runOnce(ctx, runner)
	default:
		err = runScheduled(ctx, cfg, runner, clk, recorder, healthCheck(store, rdb))
	}
	if err != nil {
		slog.Error("drawbot exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("drawbot stopped cleanly")
}

func optimizerConfig(c config.OptimizerConfig) optimizer.Config {
	oc := optimizer.DefaultConfig()
	oc.Weights = c.Weights
	oc.DefaultPayoutPct = decimal.NewFromFloat(c.DefaultPayoutPct)
	oc.DaysCap = c.DaysCap
	oc.SequentialWindow = c.SequentialWindow
	oc.HistoryDepth = c.HistoryDepth
	oc.RandomTopFraction = c.RandomTopFraction
	oc.RandomMinPool = c.RandomMinPool
	return oc
}

// newLocker usa Redis si hay dirección configurada y un lock en memoria si no.
func newLocker(ctx context.Context, cfg config.LockConfig) (ports.Locker, *redis.Client, error) {
	if cfg.RedisAddr == "" {
		slog.Debug("using in-process lock")
		return lock.NewMemory(), nil, nil
	}
	rdb, err := lock.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedis(rdb, cfg.Prefix), rdb, nil
}

func healthCheck(store *storage.SQLiteStorage, rdb *redis.Client) metrics.HealthFunc {
	return func(ctx context.Context) error {
		if err := store.View(ctx, func(ports.Reader) error { return nil }); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
