package closing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/drawbot/internal/adapters/clock"
	"github.com/alejandrodnm/drawbot/internal/adapters/lock"
	"github.com/alejandrodnm/drawbot/internal/adapters/storage"
	"github.com/alejandrodnm/drawbot/internal/application/closing"
	"github.com/alejandrodnm/drawbot/internal/application/optimizer"
	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeReporter struct {
	mu   sync.Mutex
	sels []domain.Selection
	err  error
}

func (f *fakeReporter) Report(_ context.Context, sel domain.Selection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sels = append(f.sels, sel)
	return f.err
}

type fakeRecorder struct {
	mu       sync.Mutex
	selected map[string]domain.Method
	failed   map[string]error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{selected: map[string]domain.Method{}, failed: map[string]error{}}
}

func (f *fakeRecorder) RecordSelection(sel domain.Selection, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected[sel.EventID] = sel.Method
}

func (f *fakeRecorder) RecordFailure(eventID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[eventID] = err
}

type harness struct {
	db       *storage.SQLiteStorage
	locker   *lock.Memory
	reporter *fakeReporter
	recorder *fakeRecorder
	runner   *closing.Runner
}

func newHarness(t *testing.T, mutate func(*closing.Config)) *harness {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := clock.Fixed{T: now}
	opt, err := optimizer.New(optimizer.DefaultConfig(), db, clk, optimizer.WithSeed(7))
	require.NoError(t, err)

	cfg := closing.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		db:       db,
		locker:   lock.NewMemory(),
		reporter: &fakeReporter{},
		recorder: newFakeRecorder(),
	}
	h.runner = closing.New(cfg, opt, db, clk, h.locker, h.reporter, h.recorder)
	seed(t, db)
	return h
}

// seed crea un catálogo de 10 items y cuatro sorteos alrededor de now+5m.
func seed(t *testing.T, db *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	cat := domain.Catalog{ID: "cat", Name: "Lotto", Kind: domain.CatalogAnimal}
	for code := 1; code <= 10; code++ {
		cat.Items = append(cat.Items, domain.CatalogItem{
			ID: fmt.Sprintf("i%d", code), Code: code, Name: fmt.Sprintf("item %d", code),
			Multiplier: decimal.NewFromInt(2), Active: true,
		})
	}
	require.NoError(t, db.SaveCatalog(ctx, cat))

	events := []domain.Event{
		{ID: "e-sales", CatalogID: "cat", ScheduledAt: now.Add(5 * time.Minute)},
		{ID: "e-empty", CatalogID: "cat", ScheduledAt: now.Add(4*time.Minute + 30*time.Second)},
		{ID: "e-later", CatalogID: "cat", ScheduledAt: now.Add(30 * time.Minute)},
		{ID: "e-done", CatalogID: "cat", ScheduledAt: now.Add(5 * time.Minute), PreselectedItemID: "i4", Status: domain.EventClosed},
	}
	for _, e := range events {
		require.NoError(t, db.SaveEvent(ctx, e))
	}

	// i1 concentra las ventas y supera el tope; el resto pasa
	lines := []domain.WagerLine{{ItemID: "i1", Amount: decimal.NewFromInt(50)}}
	for code := 2; code <= 10; code++ {
		lines = append(lines, domain.WagerLine{ItemID: fmt.Sprintf("i%d", code), Amount: decimal.NewFromInt(5)})
	}
	require.NoError(t, db.SaveWager(ctx, domain.Wager{ID: "w1", EventID: "e-sales", PlacedAt: now, Lines: lines}))
}

func (h *harness) event(t *testing.T, id string) domain.Event {
	t.Helper()
	var ev domain.Event
	require.NoError(t, h.db.View(context.Background(), func(r ports.Reader) error {
		var err error
		ev, err = r.GetEvent(context.Background(), id)
		return err
	}))
	return ev
}

func TestRunner_RunOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	results, err := h.runner.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// orden por hora del sorteo
	assert.Equal(t, "e-empty", results[0].EventID)
	assert.Equal(t, "e-sales", results[1].EventID)

	for _, res := range results {
		require.NoError(t, res.Err)
		assert.True(t, res.Committed)

		ev := h.event(t, res.EventID)
		assert.Equal(t, domain.EventClosed, ev.Status)
		assert.Equal(t, res.Selection.Item.ID, ev.PreselectedItemID)
	}
	assert.Equal(t, domain.MethodRandomIntelligent, results[0].Selection.Method)
	assert.Equal(t, domain.MethodOptimized, results[1].Selection.Method)
	assert.NotEqual(t, "i1", results[1].Selection.Item.ID)

	assert.Len(t, h.reporter.sels, 2)
	assert.Len(t, h.recorder.selected, 2)
	assert.Empty(t, h.recorder.failed)

	// la segunda pasada no encuentra nada pendiente
	results, err = h.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunner_SelectAndCommit_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.runner.SelectAndCommit(ctx, "e-sales")
	require.NoError(t, err)
	require.True(t, first.Committed)

	second, err := h.runner.SelectAndCommit(ctx, "e-sales")
	require.NoError(t, err)
	assert.False(t, second.Committed)
	assert.Equal(t, domain.MethodOverride, second.Selection.Method)
	assert.Equal(t, first.Selection.Item.ID, second.Selection.Item.ID)
}

func TestRunner_DryRunDoesNotCommit(t *testing.T) {
	h := newHarness(t, func(c *closing.Config) { c.DryRun = true })

	results, err := h.runner.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		require.NoError(t, res.Err)
		assert.False(t, res.Committed)
		ev := h.event(t, res.EventID)
		assert.Equal(t, domain.EventScheduled, ev.Status)
		assert.Empty(t, ev.PreselectedItemID)
	}
}

func TestRunner_LockHeld(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	release, err := h.locker.Acquire(ctx, "event:e-sales", time.Minute)
	require.NoError(t, err)
	defer release(ctx)

	_, err = h.runner.SelectAndCommit(ctx, "e-sales")
	require.ErrorIs(t, err, ports.ErrLockHeld)
	assert.ErrorIs(t, h.recorder.failed["e-sales"], ports.ErrLockHeld)
	assert.Equal(t, domain.EventScheduled, h.event(t, "e-sales").Status)
}

func TestRunner_FailureDoesNotStopBatch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	// un sorteo de un catálogo vacío en la ventana falla sin afectar al resto
	require.NoError(t, h.db.SaveCatalog(ctx, domain.Catalog{ID: "empty", Name: "Vacío", Kind: domain.CatalogAnimal}))
	require.NoError(t, h.db.SaveEvent(ctx, domain.Event{ID: "e-broken", CatalogID: "empty", ScheduledAt: now.Add(5 * time.Minute)}))

	results, err := h.runner.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	var failed int
	for _, res := range results {
		if res.EventID == "e-broken" {
			require.ErrorIs(t, res.Err, domain.ErrEmptyCatalog)
			failed++
			continue
		}
		assert.NoError(t, res.Err)
		assert.True(t, res.Committed)
	}
	assert.Equal(t, 1, failed)
	assert.Contains(t, h.recorder.failed, "e-broken")
}

func TestRunner_UnknownEvent(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.runner.SelectAndCommit(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, h.recorder.failed, "ghost")
	assert.Empty(t, h.reporter.sels)
}

func TestRunner_ReporterErrorIsNotFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.reporter.err = errors.New("terminal closed")

	res, err := h.runner.SelectAndCommit(context.Background(), "e-empty")
	require.NoError(t, err)
	assert.True(t, res.Committed)
}

func TestRunner_Override(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.runner.SelectAndCommit(ctx, "e-sales")
	require.NoError(t, err)

	target := "i9"
	if first.Selection.Item.ID == target {
		target = "i8"
	}
	ov, err := h.runner.Override(ctx, "e-sales", target, "ops@house", "operator correction")
	require.NoError(t, err)
	assert.Equal(t, first.Selection.Item.ID, ov.PreviousItemID)
	assert.Equal(t, target, ov.NewItemID)
	assert.NotEmpty(t, ov.ID)
	assert.True(t, ov.At.Equal(now))

	audit, err := h.db.ListOverrides(ctx, "e-sales")
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "ops@house", audit[0].Actor)

	again, err := h.runner.SelectAndCommit(ctx, "e-sales")
	require.NoError(t, err)
	assert.Equal(t, domain.MethodOverride, again.Selection.Method)
	assert.Equal(t, target, again.Selection.Item.ID)
}

func TestRunner_OverrideValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.runner.Override(ctx, "e-sales", "i2", "", "why")
	require.Error(t, err)

	_, err = h.runner.Override(ctx, "e-sales", "nope", "ops", "typo")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
