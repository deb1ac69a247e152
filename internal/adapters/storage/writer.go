package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// ListClosingEvents devuelve los sorteos programados sin preselección que
// cierran en [from, to], en orden de hora.
func (s *SQLiteStorage) ListClosingEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	return reader{q: s.db}.queryEvents(ctx, "ListClosingEvents",
		`status = ? AND preselected_item_id IS NULL AND outcome_item_id IS NULL
         AND scheduled_at >= ? AND scheduled_at <= ? ORDER BY scheduled_at, id`,
		string(domain.EventScheduled), toMillis(from), toMillis(to))
}

// CommitPreselection es un UPDATE condicional: solo un llamador gana la
// carrera por un sorteo; el resto recibe domain.ErrAlreadyResolved.
func (s *SQLiteStorage) CommitPreselection(ctx context.Context, eventID, itemID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE events SET preselected_item_id = ?, status = ?, closed_at = ?
        WHERE id = ? AND status = ? AND preselected_item_id IS NULL AND outcome_item_id IS NULL`,
		itemID, string(domain.EventClosed), toMillis(at), eventID, string(domain.EventScheduled))
	if err != nil {
		return fmt.Errorf("storage.CommitPreselection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.CommitPreselection: rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := (reader{q: s.db}).GetEvent(ctx, eventID); err != nil {
		return fmt.Errorf("storage.CommitPreselection: %w", err)
	}
	return fmt.Errorf("storage.CommitPreselection: event %s: %w", eventID, domain.ErrAlreadyResolved)
}

// OverrideOutcome reemplaza el item comprometido del sorteo y escribe la fila
// de auditoría en la misma transacción.
func (s *SQLiteStorage) OverrideOutcome(ctx context.Context, ov domain.OutcomeOverride) (domain.OutcomeOverride, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ov, fmt.Errorf("storage.OverrideOutcome: begin tx: %w", err)
	}
	defer tx.Rollback()

	r := reader{q: tx}
	ev, err := r.GetEvent(ctx, ov.EventID)
	if err != nil {
		return ov, fmt.Errorf("storage.OverrideOutcome: %w", err)
	}
	if ev.IsCancelled() {
		return ov, fmt.Errorf("storage.OverrideOutcome: event %s: %w", ev.ID, domain.ErrEventCancelled)
	}
	item, err := r.GetItem(ctx, ov.NewItemID)
	if err != nil {
		return ov, fmt.Errorf("storage.OverrideOutcome: %w", err)
	}
	if item.CatalogID != ev.CatalogID {
		return ov, fmt.Errorf("storage.OverrideOutcome: item %s not in catalog %s: %w",
			item.ID, ev.CatalogID, domain.ErrNotFound)
	}

	ov.PreviousItemID = ev.CommittedItemID()
	column := "preselected_item_id"
	if ev.OutcomeItemID != "" {
		column = "outcome_item_id"
	}
	if _, err := tx.ExecContext(ctx, `UPDATE events SET `+column+` = ? WHERE id = ?`, ov.NewItemID, ev.ID); err != nil {
		return ov, fmt.Errorf("storage.OverrideOutcome: update event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO outcome_overrides (id, event_id, previous_item_id, new_item_id, actor, reason, at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ov.ID, ov.EventID, nullString(ov.PreviousItemID), ov.NewItemID, ov.Actor, ov.Reason, toMillis(ov.At),
	); err != nil {
		return ov, fmt.Errorf("storage.OverrideOutcome: insert audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ov, fmt.Errorf("storage.OverrideOutcome: commit: %w", err)
	}
	return ov, nil
}

// ListOverrides devuelve la auditoría de un sorteo, de la más vieja a la más nueva.
func (s *SQLiteStorage) ListOverrides(ctx context.Context, eventID string) ([]domain.OutcomeOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, event_id, previous_item_id, new_item_id, actor, reason, at
        FROM outcome_overrides WHERE event_id = ? ORDER BY at, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOverrides: %w", err)
	}
	defer rows.Close()

	var out []domain.OutcomeOverride
	for rows.Next() {
		var (
			ov   domain.OutcomeOverride
			prev sql.NullString
			at   int64
		)
		if err := rows.Scan(&ov.ID, &ov.EventID, &prev, &ov.NewItemID, &ov.Actor, &ov.Reason, &at); err != nil {
			return nil, fmt.Errorf("storage.ListOverrides: scan: %w", err)
		}
		ov.PreviousItemID = prev.String
		ov.At = fromMillis(at)
		out = append(out, ov)
	}
	return out, rows.Err()
}

// DeclareOutcome registra el resultado oficial del sorteo y actualiza el
// last_win del item. Lo usa el flujo de resolución y los tests.
func (s *SQLiteStorage) DeclareOutcome(ctx context.Context, eventID, itemID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.DeclareOutcome: begin tx: %w", err)
	}
	defer tx.Rollback()

	ev, err := reader{q: tx}.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("storage.DeclareOutcome: %w", err)
	}
	if ev.OutcomeItemID != "" {
		return fmt.Errorf("storage.DeclareOutcome: event %s: %w", eventID, domain.ErrAlreadyResolved)
	}
	if ev.IsCancelled() {
		return fmt.Errorf("storage.DeclareOutcome: event %s: %w", eventID, domain.ErrEventCancelled)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET outcome_item_id = ?, status = ? WHERE id = ?`,
		itemID, string(domain.EventResolved), eventID,
	); err != nil {
		return fmt.Errorf("storage.DeclareOutcome: update event: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE catalog_items SET last_win = MAX(COALESCE(last_win, 0), ?) WHERE id = ?`,
		toMillis(ev.ScheduledAt), itemID)
	if err != nil {
		return fmt.Errorf("storage.DeclareOutcome: update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.DeclareOutcome: item %s: %w", itemID, domain.ErrNotFound)
	}
	return tx.Commit()
}
