package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time           { return c.now }
func (c fixedClock) Location() *time.Location { return time.UTC }

// fakeStore implementa ports.Store en memoria para los tests del optimizador.
type fakeStore struct {
	events    map[string]domain.Event
	catalogs  map[string]domain.Catalog
	items     map[string]domain.CatalogItem
	wagers    map[string][]domain.Wager
	compounds []domain.CompoundWager

	failBetween map[time.Time]error // falla ListResolvedBetween para ese from
	views       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      make(map[string]domain.Event),
		catalogs:    make(map[string]domain.Catalog),
		items:       make(map[string]domain.CatalogItem),
		wagers:      make(map[string][]domain.Wager),
		failBetween: make(map[time.Time]error),
	}
}

// addCatalog crea un catálogo con items de código 1..n, ids "i<code>", multiplicador 30.
func (f *fakeStore) addCatalog(id string, kind domain.CatalogKind, codes ...int) domain.Catalog {
	cat := domain.Catalog{ID: id, Name: id, Kind: kind, GroupKey: domain.GroupKeyFor(kind)}
	for _, code := range codes {
		it := domain.CatalogItem{
			ID:         fmt.Sprintf("i%d", code),
			CatalogID:  id,
			Code:       code,
			Name:       fmt.Sprintf("item %d", code),
			Multiplier: decimal.NewFromInt(30),
			Active:     true,
		}
		cat.Items = append(cat.Items, it)
		f.items[it.ID] = it
	}
	f.catalogs[id] = cat
	return cat
}

func rangeCodes(from, to int) []int {
	codes := make([]int, 0, to-from+1)
	for c := from; c <= to; c++ {
		codes = append(codes, c)
	}
	return codes
}

func (f *fakeStore) setLastWin(itemID string, at time.Time) {
	it := f.items[itemID]
	it.LastWin = &at
	f.items[itemID] = it
	cat := f.catalogs[it.CatalogID]
	for i := range cat.Items {
		if cat.Items[i].ID == itemID {
			cat.Items[i] = it
		}
	}
}

func (f *fakeStore) addEvent(e domain.Event) {
	if e.Status == "" {
		e.Status = domain.EventScheduled
	}
	f.events[e.ID] = e
}

// bet agrega un ticket con una sola jugada.
func (f *fakeStore) bet(eventID, itemID, amount, mult string) {
	n := len(f.wagers[eventID])
	f.wagers[eventID] = append(f.wagers[eventID], domain.Wager{
		ID:      fmt.Sprintf("%s-w%d", eventID, n),
		EventID: eventID,
		Lines: []domain.WagerLine{{
			ItemID:     itemID,
			Amount:     decimal.RequireFromString(amount),
			Multiplier: decimal.RequireFromString(mult),
		}},
	})
}

func (f *fakeStore) View(ctx context.Context, fn func(ports.Reader) error) error {
	f.views++
	return fn(f)
}

func (f *fakeStore) GetEvent(_ context.Context, id string) (domain.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return domain.Event{}, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

func (f *fakeStore) GetCatalog(_ context.Context, id string) (domain.Catalog, error) {
	c, ok := f.catalogs[id]
	if !ok {
		return domain.Catalog{}, fmt.Errorf("catalog %s: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

func (f *fakeStore) GetItem(_ context.Context, id string) (domain.CatalogItem, error) {
	it, ok := f.items[id]
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return it, nil
}

func (f *fakeStore) ListWagers(_ context.Context, eventID string) ([]domain.Wager, error) {
	var out []domain.Wager
	for _, w := range f.wagers[eventID] {
		if !w.Voided {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) sortedEvents(keep func(domain.Event) bool) []domain.Event {
	var out []domain.Event
	for _, e := range f.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func (f *fakeStore) ListWindowEvents(_ context.Context, catalogID string, from, to time.Time) ([]domain.Event, error) {
	return f.sortedEvents(func(e domain.Event) bool {
		return e.CatalogID == catalogID && !e.ScheduledAt.Before(from) && e.ScheduledAt.Before(to)
	}), nil
}

func (f *fakeStore) ListRecentResolved(_ context.Context, catalogID string, before time.Time, limit int) ([]domain.Event, error) {
	out := f.sortedEvents(func(e domain.Event) bool {
		return e.CatalogID == catalogID && e.OutcomeItemID != "" && e.ScheduledAt.Before(before)
	})
	// más nuevo primero
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListOpenCompoundWagers(_ context.Context, catalogID string, at time.Time) ([]domain.CompoundWager, error) {
	var out []domain.CompoundWager
	for _, cw := range f.compounds {
		if cw.CatalogID == catalogID && cw.Status == domain.CompoundActive && cw.Covers(at) {
			out = append(out, cw)
		}
	}
	return out, nil
}

func (f *fakeStore) ListResolvedBetween(_ context.Context, catalogID string, from, to time.Time) ([]domain.Event, error) {
	if err := f.failBetween[from]; err != nil {
		return nil, err
	}
	return f.sortedEvents(func(e domain.Event) bool {
		return e.CatalogID == catalogID && e.OutcomeItemID != "" &&
			!e.ScheduledAt.Before(from) && !e.ScheduledAt.After(to)
	}), nil
}

func (f *fakeStore) ListClosingEvents(_ context.Context, from, to time.Time) ([]domain.Event, error) {
	return f.sortedEvents(func(e domain.Event) bool {
		return e.Status == domain.EventScheduled && e.PreselectedItemID == "" &&
			!e.ScheduledAt.Before(from) && !e.ScheduledAt.After(to)
	}), nil
}

func (f *fakeStore) CommitPreselection(_ context.Context, eventID, itemID string, at time.Time) error {
	e, ok := f.events[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.CommittedItemID() != "" {
		return domain.ErrAlreadyResolved
	}
	e.PreselectedItemID = itemID
	e.Status = domain.EventClosed
	e.ClosedAt = &at
	f.events[eventID] = e
	return nil
}

func (f *fakeStore) OverrideOutcome(_ context.Context, ov domain.OutcomeOverride) (domain.OutcomeOverride, error) {
	return ov, errors.New("not supported")
}

func (f *fakeStore) Close() error { return nil }
