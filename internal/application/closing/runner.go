package closing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

// Config contiene la configuración del runner de cierre.
type Config struct {
	LeadTime     time.Duration // antelación del cierre respecto a la hora del sorteo
	Window       time.Duration // ancho de la ventana que cubre cada pasada
	Workers      int           // goroutines de selección (0 = NumCPU*2)
	RatePerSec   float64       // selecciones por segundo (0 = sin límite)
	EventTimeout time.Duration // tope por sorteo (0 = sin tope)
	LockTTL      time.Duration
	DryRun       bool // selecciona sin comprometer
}

// DefaultConfig devuelve la configuración de producción.
func DefaultConfig() Config {
	return Config{
		LeadTime:     5 * time.Minute,
		Window:       time.Minute,
		Workers:      4,
		RatePerSec:   10,
		EventTimeout: 30 * time.Second,
		LockTTL:      time.Minute,
	}
}

// Selector es el motor que elige el resultado de un sorteo.
type Selector interface {
	SelectOutcome(ctx context.Context, eventID string) (domain.Selection, error)
}

// Result es el resultado de procesar un sorteo.
type Result struct {
	EventID   string
	Selection domain.Selection
	Committed bool
	Err       error
}

// Runner cierra los sorteos próximos: selecciona, compromete la preselección
// y reporta. Es el único llamador del optimizador.
type Runner struct {
	cfg      Config
	selector Selector
	store    ports.Store
	clock    ports.Clock
	locker   ports.Locker
	reporter ports.Reporter
	recorder ports.Recorder
	limiter  *rate.Limiter
}

// New crea un Runner con todas las dependencias inyectadas.
func New(
	cfg Config,
	selector Selector,
	store ports.Store,
	clock ports.Clock,
	locker ports.Locker,
	reporter ports.Reporter,
	recorder ports.Recorder,
) *Runner {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &Runner{
		cfg:      cfg,
		selector: selector,
		store:    store,
		clock:    clock,
		locker:   locker,
		reporter: reporter,
		recorder: recorder,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// RunOnce procesa los sorteos que cierran en [now+lead-window, now+lead].
// Un sorteo que falla no detiene la pasada; el error solo indica que no se
// pudo listar los sorteos.
func (r *Runner) RunOnce(ctx context.Context) ([]Result, error) {
	start := time.Now()
	to := r.clock.Now().Add(r.cfg.LeadTime)
	from := to.Add(-r.cfg.Window)

	events, err := r.store.ListClosingEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("closing.RunOnce: %w", err)
	}
	if len(events) == 0 {
		slog.Debug("no events closing", "from", from, "to", to)
		return nil, nil
	}

	results := processConcurrent(ctx, events, r.cfg.Workers, func(ctx context.Context, eventID string) Result {
		if err := r.limiter.Wait(ctx); err != nil {
			return Result{EventID: eventID, Err: fmt.Errorf("closing.RunOnce: rate limit: %w", err)}
		}
		return r.process(ctx, eventID)
	})

	var committed, failed, review int
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
		case res.Committed:
			committed++
		}
		if res.Err == nil && res.Selection.NeedsReview() {
			review++
		}
	}
	slog.Info("closing pass complete",
		"events", len(events),
		"committed", committed,
		"failed", failed,
		"needs_review", review,
		"dry_run", r.cfg.DryRun,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return results, nil
}

// SelectAndCommit procesa un único sorteo.
func (r *Runner) SelectAndCommit(ctx context.Context, eventID string) (Result, error) {
	res := r.process(ctx, eventID)
	return res, res.Err
}

// process selecciona y compromete un sorteo bajo su lock.
func (r *Runner) process(ctx context.Context, eventID string) Result {
	start := time.Now()
	res := Result{EventID: eventID}

	if r.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EventTimeout)
		defer cancel()
	}

	release, err := r.locker.Acquire(ctx, lockKey(eventID), r.cfg.LockTTL)
	if err != nil {
		return r.fail(res, fmt.Errorf("closing.process %s: %w", eventID, err))
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("lock release failed", "event_id", eventID, "err", err)
		}
	}()

	sel, err := r.selector.SelectOutcome(ctx, eventID)
	if err != nil {
		return r.fail(res, err)
	}

	if sel.Method != domain.MethodOverride && !r.cfg.DryRun {
		err := r.store.CommitPreselection(ctx, eventID, sel.Item.ID, r.clock.Now())
		switch {
		case errors.Is(err, domain.ErrAlreadyResolved):
			// otro proceso comprometió primero; lo comprometido es lo que vale
			slog.Warn("event committed concurrently, re-reading", "event_id", eventID)
			if sel, err = r.selector.SelectOutcome(ctx, eventID); err != nil {
				return r.fail(res, err)
			}
		case err != nil:
			return r.fail(res, fmt.Errorf("closing.process %s: %w", eventID, err))
		default:
			res.Committed = true
		}
	}
	res.Selection = sel

	r.recorder.RecordSelection(sel, time.Since(start))
	if err := r.reporter.Report(ctx, sel); err != nil {
		slog.Warn("reporter error", "event_id", eventID, "err", err)
	}
	return res
}

func (r *Runner) fail(res Result, err error) Result {
	res.Err = err
	slog.Error("outcome selection failed", "event_id", res.EventID, "err", err)
	r.recorder.RecordFailure(res.EventID, err)
	return res
}

// Override cambia el resultado comprometido de un sorteo y deja la fila de
// auditoría con el item anterior, el actor y el motivo.
func (r *Runner) Override(ctx context.Context, eventID, itemID, actor, reason string) (domain.OutcomeOverride, error) {
	if itemID == "" || actor == "" || reason == "" {
		return domain.OutcomeOverride{}, errors.New("closing.Override: item, actor and reason are required")
	}

	release, err := r.locker.Acquire(ctx, lockKey(eventID), r.cfg.LockTTL)
	if err != nil {
		return domain.OutcomeOverride{}, fmt.Errorf("closing.Override %s: %w", eventID, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("lock release failed", "event_id", eventID, "err", err)
		}
	}()

	ov, err := r.store.OverrideOutcome(ctx, domain.OutcomeOverride{
		ID:        newAuditID(),
		EventID:   eventID,
		NewItemID: itemID,
		Actor:     actor,
		Reason:    reason,
		At:        r.clock.Now(),
	})
	if err != nil {
		return domain.OutcomeOverride{}, fmt.Errorf("closing.Override %s: %w", eventID, err)
	}

	slog.Info("outcome overridden",
		"event_id", eventID,
		"previous", ov.PreviousItemID,
		"new", ov.NewItemID,
		"actor", actor,
		"reason", reason,
	)
	return ov, nil
}

func lockKey(eventID string) string { return "event:" + eventID }
