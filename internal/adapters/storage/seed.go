package storage

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// Escrituras de alta. En producción las hace el importador de ventas; aquí
// las usan el comando de carga inicial y los tests.

// SaveCatalog hace upsert del catálogo y de sus items.
func (s *SQLiteStorage) SaveCatalog(ctx context.Context, cat domain.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCatalog: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO catalogs (id, name, kind) VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET name = excluded.name, kind = excluded.kind`,
		cat.ID, cat.Name, string(cat.Kind),
	); err != nil {
		return fmt.Errorf("storage.SaveCatalog: upsert catalog: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO catalog_items (id, catalog_id, code, name, multiplier, last_win, active)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            code       = excluded.code,
            name       = excluded.name,
            multiplier = excluded.multiplier,
            last_win   = excluded.last_win,
            active     = excluded.active`)
	if err != nil {
		return fmt.Errorf("storage.SaveCatalog: prepare: %w", err)
	}
	defer stmt.Close()

	for _, it := range cat.Items {
		if _, err := stmt.ExecContext(ctx,
			it.ID, cat.ID, it.Code, it.Name, it.Multiplier.String(), nullMillis(it.LastWin), boolInt(it.Active),
		); err != nil {
			return fmt.Errorf("storage.SaveCatalog: item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// SaveEvent hace upsert de un sorteo.
func (s *SQLiteStorage) SaveEvent(ctx context.Context, e domain.Event) error {
	if e.Status == "" {
		e.Status = domain.EventScheduled
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO events (id, catalog_id, scheduled_at, status, preselected_item_id,
                            outcome_item_id, fixed_payout_cap, payout_percentage, closed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            scheduled_at        = excluded.scheduled_at,
            status              = excluded.status,
            preselected_item_id = excluded.preselected_item_id,
            outcome_item_id     = excluded.outcome_item_id,
            fixed_payout_cap    = excluded.fixed_payout_cap,
            payout_percentage   = excluded.payout_percentage,
            closed_at           = excluded.closed_at`,
		e.ID, e.CatalogID, toMillis(e.ScheduledAt), string(e.Status),
		nullString(e.PreselectedItemID), nullString(e.OutcomeItemID),
		e.FixedPayoutCap, e.PayoutPercentage, nullMillis(e.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveEvent: %w", err)
	}
	return nil
}

// SaveWager inserta un ticket con sus jugadas.
func (s *SQLiteStorage) SaveWager(ctx context.Context, w domain.Wager) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveWager: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wagers (id, event_id, voided, placed_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.EventID, boolInt(w.Voided), toMillis(w.PlacedAt),
	); err != nil {
		return fmt.Errorf("storage.SaveWager: insert wager: %w", err)
	}
	for i, l := range w.Lines {
		var mult any
		if l.Multiplier.IsPositive() {
			mult = l.Multiplier.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wager_lines (wager_id, line_no, item_id, amount, multiplier) VALUES (?, ?, ?, ?, ?)`,
			w.ID, i, l.ItemID, l.Amount.String(), mult,
		); err != nil {
			return fmt.Errorf("storage.SaveWager: line %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// SaveCompoundWager hace upsert de una tripleta.
func (s *SQLiteStorage) SaveCompoundWager(ctx context.Context, cw domain.CompoundWager) error {
	if cw.Status == "" {
		cw.Status = domain.CompoundActive
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO compound_wagers (id, catalog_id, target_1, target_2, target_3, stake, multiplier,
                                     start_event_id, start_at, expiry_event_id, expires_at, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		cw.ID, cw.CatalogID, cw.Targets[0], cw.Targets[1], cw.Targets[2],
		cw.Stake.String(), cw.Multiplier.String(),
		cw.StartEventID, toMillis(cw.StartAt), cw.ExpiryEventID, toMillis(cw.ExpiresAt), string(cw.Status),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCompoundWager: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
