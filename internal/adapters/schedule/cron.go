package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner agenda jobs con expresiones cron de seis campos (con segundos).
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

// New crea un runner en la zona horaria dada. Un job que sigue corriendo
// cuando vuelve a tocar se salta.
func New(baseCtx context.Context, loc *time.Location) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.Local
	}
	logger := slogLogger{}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		baseCtx: baseCtx,
	}
}

// Add registra job bajo spec. El job recibe el contexto base del runner.
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
	if err != nil {
		return 0, fmt.Errorf("schedule.Add %q: %w", spec, err)
	}
	return id, nil
}

// Next devuelve la próxima activación de un job registrado.
func (r *Runner) Next(id cron.EntryID) time.Time {
	return r.cron.Entry(id).Next
}

func (r *Runner) Start() {
	slog.Info("cron started", "jobs", len(r.cron.Entries()))
	r.cron.Start()
}

// Stop espera a que terminen los jobs en curso.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("cron stopped")
}

// slogLogger adapta slog a cron.Logger.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
