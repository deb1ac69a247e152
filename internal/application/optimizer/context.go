package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

// eventContext es la foto inmutable de una corrida. Todo lo que el pipeline
// necesita se copia aquí dentro de una única transacción de lectura; los
// calculadores no vuelven a tocar el store.
type eventContext struct {
	event     domain.Event
	catalog   domain.Catalog
	items     map[string]domain.CatalogItem // catálogo + items históricos inactivos referenciados
	wagers    []domain.Wager
	window    []domain.Event // otros sorteos del día con preselección o resultado
	recent    []domain.Event // resueltos anteriores, del más nuevo al más viejo
	compounds []compoundState
	now       time.Time
	warnings  []string

	override *domain.CatalogItem // resultado ya comprometido
}

// compoundState es una tripleta abierta con los objetivos que ya salieron en su ventana.
type compoundState struct {
	wager domain.CompoundWager
	hit   map[string]bool
}

// dayWindow devuelve [00:00, 00:00 del día siguiente) en loc para el día de at.
func dayWindow(at time.Time, loc *time.Location) (time.Time, time.Time) {
	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func (o *Optimizer) loadContext(ctx context.Context, eventID string) (*eventContext, error) {
	ec := &eventContext{now: o.clock.Now()}

	err := o.store.View(ctx, func(r ports.Reader) error {
		ev, err := r.GetEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if ev.IsCancelled() {
			return domain.ErrEventCancelled
		}
		ec.event = ev

		// Un resultado ya comprometido nunca se recalcula.
		if committed := ev.CommittedItemID(); committed != "" {
			item, err := r.GetItem(ctx, committed)
			if err != nil {
				return fmt.Errorf("get committed item %s: %w", committed, err)
			}
			ec.override = &item
			return nil
		}

		cat, err := r.GetCatalog(ctx, ev.CatalogID)
		if err != nil {
			return fmt.Errorf("get catalog %s: %w", ev.CatalogID, err)
		}
		if len(cat.Items) == 0 {
			return fmt.Errorf("catalog %s: %w", cat.ID, domain.ErrEmptyCatalog)
		}
		ec.catalog = cat
		ec.items = make(map[string]domain.CatalogItem, len(cat.Items))
		for _, it := range cat.Items {
			ec.items[it.ID] = it
		}

		if ec.wagers, err = r.ListWagers(ctx, ev.ID); err != nil {
			return fmt.Errorf("list wagers: %w", err)
		}

		from, to := dayWindow(ev.ScheduledAt, o.clock.Location())
		window, err := r.ListWindowEvents(ctx, ev.CatalogID, from, to)
		if err != nil {
			return fmt.Errorf("list window events: %w", err)
		}
		for _, w := range window {
			if w.ID == ev.ID || w.IsCancelled() || len(w.UsedItemIDs()) == 0 {
				continue
			}
			ec.window = append(ec.window, w)
		}

		if ec.recent, err = r.ListRecentResolved(ctx, ev.CatalogID, ev.ScheduledAt, o.cfg.HistoryDepth); err != nil {
			return fmt.Errorf("list recent resolved: %w", err)
		}

		if err := ec.loadCompounds(ctx, r); err != nil {
			return err
		}

		return ec.resolveReferencedItems(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return ec, nil
}

// loadCompounds carga las tripletas abiertas y, una sola vez por tripleta,
// los resultados ya resueltos dentro de su ventana. Si falla la lectura del
// historial de una tripleta, esa tripleta queda fuera del cálculo.
func (ec *eventContext) loadCompounds(ctx context.Context, r ports.Reader) error {
	open, err := r.ListOpenCompoundWagers(ctx, ec.event.CatalogID, ec.event.ScheduledAt)
	if err != nil {
		return fmt.Errorf("list compound wagers: %w", err)
	}

	for _, cw := range open {
		if err := cw.Validate(); err != nil {
			return err
		}
		resolved, err := r.ListResolvedBetween(ctx, cw.CatalogID, cw.StartAt, cw.ExpiresAt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			pde := &domain.PartialDataError{Record: "compound_wager", ID: cw.ID, Err: err}
			slog.Warn("compound wager skipped",
				"event_id", ec.event.ID,
				"compound_id", cw.ID,
				"err", err,
			)
			ec.warnings = append(ec.warnings, pde.Error())
			continue
		}

		st := compoundState{wager: cw, hit: make(map[string]bool, 3)}
		for _, e := range resolved {
			if e.ID == ec.event.ID || e.OutcomeItemID == "" {
				continue
			}
			if cw.HasTarget(e.OutcomeItemID) {
				st.hit[e.OutcomeItemID] = true
			}
		}
		ec.compounds = append(ec.compounds, st)
	}
	return nil
}

// resolveReferencedItems completa ec.items con los items (quizá inactivos)
// referenciados por resultados del día o del historial, para conocer su código.
func (ec *eventContext) resolveReferencedItems(ctx context.Context, r ports.Reader) error {
	var ids []string
	for _, e := range ec.window {
		ids = append(ids, e.UsedItemIDs()...)
	}
	for _, e := range ec.recent {
		if e.OutcomeItemID != "" {
			ids = append(ids, e.OutcomeItemID)
		}
	}

	for _, id := range ids {
		if _, ok := ec.items[id]; ok {
			continue
		}
		item, err := r.GetItem(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("outcome references unknown item %s: %w", id, domain.ErrMalformedRecord)
		}
		if err != nil {
			return fmt.Errorf("get item %s: %w", id, err)
		}
		ec.items[id] = item
	}
	return nil
}

// recentCodes devuelve los códigos de los últimos n resultados resueltos.
func (ec *eventContext) recentCodes(n int) []int {
	codes := make([]int, 0, n)
	for _, e := range ec.recent {
		if len(codes) == n {
			break
		}
		if it, ok := ec.items[e.OutcomeItemID]; ok {
			codes = append(codes, it.Code)
		}
	}
	return codes
}
