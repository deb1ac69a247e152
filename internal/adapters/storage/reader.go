package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/drawbot/internal/domain"
	"github.com/alejandrodnm/drawbot/internal/ports"
)

// reader implementa ports.Reader sobre una transacción o sobre la base.
type reader struct {
	q querier
}

var _ ports.Reader = reader{}

const eventColumns = `id, catalog_id, scheduled_at, status, preselected_item_id,
    outcome_item_id, fixed_payout_cap, payout_percentage, closed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		e           domain.Event
		scheduled   int64
		status      string
		preselected sql.NullString
		outcome     sql.NullString
		closed      sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.CatalogID, &scheduled, &status, &preselected,
		&outcome, &e.FixedPayoutCap, &e.PayoutPercentage, &closed); err != nil {
		return domain.Event{}, err
	}
	e.ScheduledAt = fromMillis(scheduled)
	e.Status = domain.EventStatus(status)
	e.PreselectedItemID = preselected.String
	e.OutcomeItemID = outcome.String
	if closed.Valid {
		t := fromMillis(closed.Int64)
		e.ClosedAt = &t
	}
	return e, nil
}

func (r reader) queryEvents(ctx context.Context, op, where string, args ...any) ([]domain.Event, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.%s: scan: %w", op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.%s: rows: %w", op, err)
	}
	return out, nil
}

func (r reader) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	e, err := scanEvent(r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("storage.GetEvent: event %s: %w", eventID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("storage.GetEvent: %w", err)
	}
	return e, nil
}

const itemColumns = `id, catalog_id, code, name, multiplier, last_win, active`

func scanItem(row rowScanner) (domain.CatalogItem, error) {
	var (
		it      domain.CatalogItem
		lastWin sql.NullInt64
		active  int
	)
	if err := row.Scan(&it.ID, &it.CatalogID, &it.Code, &it.Name, &it.Multiplier, &lastWin, &active); err != nil {
		return domain.CatalogItem{}, err
	}
	if lastWin.Valid {
		t := fromMillis(lastWin.Int64)
		it.LastWin = &t
	}
	it.Active = active == 1
	return it, nil
}

func (r reader) GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	var (
		cat  domain.Catalog
		kind string
	)
	err := r.q.QueryRowContext(ctx, `SELECT id, name, kind FROM catalogs WHERE id = ?`, catalogID).
		Scan(&cat.ID, &cat.Name, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Catalog{}, fmt.Errorf("storage.GetCatalog: catalog %s: %w", catalogID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("storage.GetCatalog: %w", err)
	}
	cat.Kind = domain.CatalogKind(kind)
	cat.GroupKey = domain.GroupKeyFor(cat.Kind)

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM catalog_items WHERE catalog_id = ? AND active = 1 ORDER BY code`,
		catalogID)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("storage.GetCatalog: items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("storage.GetCatalog: scan item: %w", err)
		}
		cat.Items = append(cat.Items, it)
	}
	if err := rows.Err(); err != nil {
		return domain.Catalog{}, fmt.Errorf("storage.GetCatalog: rows: %w", err)
	}
	return cat, nil
}

func (r reader) GetItem(ctx context.Context, itemID string) (domain.CatalogItem, error) {
	it, err := scanItem(r.q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = ?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogItem{}, fmt.Errorf("storage.GetItem: item %s: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("storage.GetItem: %w", err)
	}
	return it, nil
}

// ListWagers lee tickets y jugadas en una sola consulta y los agrupa por ticket.
func (r reader) ListWagers(ctx context.Context, eventID string) ([]domain.Wager, error) {
	rows, err := r.q.QueryContext(ctx, `
        SELECT w.id, w.placed_at, l.item_id, l.amount, l.multiplier
        FROM wagers w
        JOIN wager_lines l ON l.wager_id = w.id
        WHERE w.event_id = ? AND w.voided = 0
        ORDER BY w.placed_at, w.id, l.line_no`, eventID)
	if err != nil {
		return nil, fmt.Errorf("storage.ListWagers: %w", err)
	}
	defer rows.Close()

	var out []domain.Wager
	for rows.Next() {
		var (
			id     string
			placed int64
			line   domain.WagerLine
			mult   decimal.NullDecimal
		)
		if err := rows.Scan(&id, &placed, &line.ItemID, &line.Amount, &mult); err != nil {
			return nil, fmt.Errorf("storage.ListWagers: scan: %w", err)
		}
		line.Multiplier = mult.Decimal // cero si la jugada no capturó multiplicador

		if n := len(out); n == 0 || out[n-1].ID != id {
			out = append(out, domain.Wager{ID: id, EventID: eventID, PlacedAt: fromMillis(placed)})
		}
		last := &out[len(out)-1]
		last.Lines = append(last.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.ListWagers: rows: %w", err)
	}
	return out, nil
}

func (r reader) ListWindowEvents(ctx context.Context, catalogID string, from, to time.Time) ([]domain.Event, error) {
	return r.queryEvents(ctx, "ListWindowEvents",
		`catalog_id = ? AND scheduled_at >= ? AND scheduled_at < ? ORDER BY scheduled_at`,
		catalogID, toMillis(from), toMillis(to))
}

func (r reader) ListRecentResolved(ctx context.Context, catalogID string, before time.Time, limit int) ([]domain.Event, error) {
	return r.queryEvents(ctx, "ListRecentResolved",
		`catalog_id = ? AND outcome_item_id IS NOT NULL AND status != 'cancelled' AND scheduled_at < ?
         ORDER BY scheduled_at DESC LIMIT ?`,
		catalogID, toMillis(before), limit)
}

func (r reader) ListResolvedBetween(ctx context.Context, catalogID string, from, to time.Time) ([]domain.Event, error) {
	return r.queryEvents(ctx, "ListResolvedBetween",
		`catalog_id = ? AND outcome_item_id IS NOT NULL AND status != 'cancelled'
         AND scheduled_at >= ? AND scheduled_at <= ? ORDER BY scheduled_at`,
		catalogID, toMillis(from), toMillis(to))
}

func (r reader) ListOpenCompoundWagers(ctx context.Context, catalogID string, at time.Time) ([]domain.CompoundWager, error) {
	rows, err := r.q.QueryContext(ctx, `
        SELECT id, catalog_id, target_1, target_2, target_3, stake, multiplier,
               start_event_id, start_at, expiry_event_id, expires_at, status
        FROM compound_wagers
        WHERE catalog_id = ? AND status = ? AND start_at <= ? AND expires_at >= ?
        ORDER BY id`,
		catalogID, string(domain.CompoundActive), toMillis(at), toMillis(at))
	if err != nil {
		return nil, fmt.Errorf("storage.ListOpenCompoundWagers: %w", err)
	}
	defer rows.Close()

	var out []domain.CompoundWager
	for rows.Next() {
		var (
			cw             domain.CompoundWager
			start, expires int64
			status         string
		)
		if err := rows.Scan(&cw.ID, &cw.CatalogID, &cw.Targets[0], &cw.Targets[1], &cw.Targets[2],
			&cw.Stake, &cw.Multiplier, &cw.StartEventID, &start, &cw.ExpiryEventID, &expires, &status); err != nil {
			return nil, fmt.Errorf("storage.ListOpenCompoundWagers: scan: %w", err)
		}
		cw.StartAt = fromMillis(start)
		cw.ExpiresAt = fromMillis(expires)
		cw.Status = domain.CompoundStatus(status)
		out = append(out, cw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.ListOpenCompoundWagers: rows: %w", err)
	}
	return out, nil
}
