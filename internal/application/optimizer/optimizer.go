package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

// Config contiene los parámetros ajustables del optimizador.
type Config struct {
	Weights           domain.Weights
	DefaultPayoutPct  decimal.Decimal // % de las ventas si el sorteo no configura uno
	DaysCap           int             // tope del factor daysSinceWin
	SequentialWindow  int             // resultados recientes usados para detectar progresiones
	HistoryDepth      int             // sorteos resueltos que se cargan como historial
	RandomTopFraction float64         // fracción del catálogo en el pool aleatorio
	RandomMinPool     int             // tamaño mínimo del pool aleatorio
	NeverWonDays      int             // días asumidos para items que nunca salieron (ranking aleatorio)
}

// DefaultConfig devuelve la configuración de producción.
func DefaultConfig() Config {
	return Config{
		Weights:           domain.DefaultWeights(),
		DefaultPayoutPct:  decimal.NewFromInt(70),
		DaysCap:           30,
		SequentialWindow:  5,
		HistoryDepth:      20,
		RandomTopFraction: 0.2,
		RandomMinPool:     5,
		NeverWonDays:      999,
	}
}

func (c Config) validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.DefaultPayoutPct.IsNegative() {
		return fmt.Errorf("default payout percentage %s is negative", c.DefaultPayoutPct)
	}
	if c.DaysCap <= 0 || c.RandomMinPool <= 0 || c.HistoryDepth < c.SequentialWindow {
		return fmt.Errorf("invalid limits: days_cap=%d min_pool=%d history=%d window=%d",
			c.DaysCap, c.RandomMinPool, c.HistoryDepth, c.SequentialWindow)
	}
	if c.RandomTopFraction <= 0 || c.RandomTopFraction > 1 {
		return fmt.Errorf("random top fraction %v out of (0,1]", c.RandomTopFraction)
	}
	return nil
}

// Rand es la fuente de aleatoriedad del camino IntelligentRandom.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// lockedRand permite compartir un *rand.Rand sembrado entre goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Option modifica un Optimizer en su construcción.
type Option func(*Optimizer)

// WithRand inyecta la fuente aleatoria.
func WithRand(r Rand) Option {
	return func(o *Optimizer) { o.rng = r }
}

// WithSeed usa un PCG sembrado, útil para reproducir una corrida.
func WithSeed(seed uint64) Option {
	return func(o *Optimizer) {
		o.rng = &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	}
}

// Optimizer elige el resultado de un sorteo. Es seguro para uso concurrente
// sobre sorteos distintos; el llamador serializa las corridas de un mismo sorteo.
type Optimizer struct {
	cfg   Config
	store ports.Store
	clock ports.Clock
	rng   Rand
}

// New crea un Optimizer. Falla si los pesos no suman 1.
func New(cfg Config, store ports.Store, clock ports.Clock, opts ...Option) (*Optimizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("optimizer.New: %w", err)
	}
	o := &Optimizer{cfg: cfg, store: store, clock: clock, rng: globalRand{}}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SelectOutcome elige el resultado del sorteo:
//
//	override → random_intelligent (sin ventas) → optimized → fallback
//
// Un error significa "ningún resultado seleccionado"; nunca se devuelve una
// selección parcial.
func (o *Optimizer) SelectOutcome(ctx context.Context, eventID string) (domain.Selection, error) {
	start := time.Now()
	runID := uuid.NewString()

	ec, err := o.loadContext(ctx, eventID)
	if err != nil {
		return domain.Selection{}, fmt.Errorf("optimizer.SelectOutcome %s: %w", eventID, err)
	}

	sel := domain.Selection{
		RunID:      runID,
		EventID:    eventID,
		SelectedAt: o.clock.Now(),
	}

	if ec.override != nil {
		sel.Method = domain.MethodOverride
		sel.Item = *ec.override
		slog.Info("outcome kept",
			"event_id", eventID,
			"method", sel.Method,
			"item", sel.Item.Code,
		)
		return sel, nil
	}

	var (
		sales  salesTotals
		usage  usageSet
		compos compoundIndex
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = aggregateSales(ec.wagers, ec.items)
		return err
	})
	g.Go(func() error {
		usage = trackUsage(ec.catalog, ec.window, ec.items)
		return nil
	})
	g.Go(func() error {
		compos = indexCompounds(ec.compounds)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Selection{}, fmt.Errorf("optimizer.SelectOutcome %s: %w", eventID, err)
	}

	var analysis *domain.Analysis
	if sales.total.IsZero() {
		sel.Method = domain.MethodRandomIntelligent
		sel.Item, analysis = o.intelligentRandom(ec, usage)
	} else {
		ev := o.evaluate(ec, sales, usage, compos)
		if len(ev.passed) > 0 {
			ranked := o.rank(ec, ev, sales, usage)
			sel.Method = domain.MethodOptimized
			sel.Item = ranked[0].Item
			analysis = &domain.Analysis{
				Constraints: ev.snapshot,
				Candidates:  ranked,
				Rejected:    ev.rejected,
				Evaluated:   len(ev.passed) + len(ev.rejected),
				Passed:      len(ev.passed),
			}
		} else {
			slog.Warn("no valid candidate, using fallback",
				"event_id", eventID,
				"total_stake", sales.total.StringFixed(2),
				"max_payout", ev.snapshot.MaxPayout.StringFixed(2),
			)
			sel.Method = domain.MethodFallback
			sel.Item, analysis = fallback(ev)
		}
	}

	analysis.Warnings = append(analysis.Warnings, ec.warnings...)
	analysis.Elapsed = time.Since(start)
	sel.Analysis = analysis

	attrs := []any{
		"event_id", eventID,
		"run_id", runID,
		"method", sel.Method,
		"item", sel.Item.Code,
		"total_stake", sales.total.StringFixed(2),
		"elapsed", analysis.Elapsed.Round(time.Microsecond),
	}
	if sel.Method == domain.MethodOptimized {
		attrs = append(attrs, "score", fmt.Sprintf("%.4f", analysis.Candidates[0].Score))
	}
	if analysis.NeedsReview {
		attrs = append(attrs, "needs_review", true)
	}
	slog.Info("outcome selected", attrs...)

	return sel, nil
}
