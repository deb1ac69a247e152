package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// Fixture es la carga inicial en YAML: catálogos, sorteos, tickets y
// tripletas. Los montos van como texto para no perder precisión.
type Fixture struct {
	Catalogs []struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Kind  string `yaml:"kind"`
		Items []struct {
			ID         string     `yaml:"id"`
			Code       int        `yaml:"code"`
			Name       string     `yaml:"name"`
			Multiplier string     `yaml:"multiplier"`
			LastWin    *time.Time `yaml:"last_win"`
			Inactive   bool       `yaml:"inactive"`
		} `yaml:"items"`
	} `yaml:"catalogs"`

	Events []struct {
		ID          string    `yaml:"id"`
		CatalogID   string    `yaml:"catalog"`
		ScheduledAt time.Time `yaml:"scheduled_at"`
		Status      string    `yaml:"status"`
		Outcome     string    `yaml:"outcome"`
		FixedCap    string    `yaml:"fixed_payout_cap"`
		PayoutPct   string    `yaml:"payout_percentage"`
	} `yaml:"events"`

	Wagers []struct {
		ID       string    `yaml:"id"`
		EventID  string    `yaml:"event"`
		PlacedAt time.Time `yaml:"placed_at"`
		Voided   bool      `yaml:"voided"`
		Lines    []struct {
			ItemID     string `yaml:"item"`
			Amount     string `yaml:"amount"`
			Multiplier string `yaml:"multiplier"`
		} `yaml:"lines"`
	} `yaml:"wagers"`

	Compounds []struct {
		ID          string    `yaml:"id"`
		CatalogID   string    `yaml:"catalog"`
		Targets     [3]string `yaml:"targets"`
		Stake       string    `yaml:"stake"`
		Multiplier  string    `yaml:"multiplier"`
		StartEvent  string    `yaml:"start_event"`
		StartAt     time.Time `yaml:"start_at"`
		ExpiryEvent string    `yaml:"expiry_event"`
		ExpiresAt   time.Time `yaml:"expires_at"`
	} `yaml:"compounds"`
}

// LoadFixture lee un Fixture y lo persiste. Devuelve cuántos registros cargó.
func (s *SQLiteStorage) LoadFixture(ctx context.Context, r io.Reader) (int, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("storage.LoadFixture: parse: %w", err)
	}

	n := 0
	for _, c := range f.Catalogs {
		cat := domain.Catalog{ID: c.ID, Name: c.Name, Kind: domain.CatalogKind(c.Kind)}
		for _, it := range c.Items {
			mult, err := parseDecimal(it.Multiplier, "30")
			if err != nil {
				return n, fmt.Errorf("storage.LoadFixture: item %s: %w", it.ID, err)
			}
			cat.Items = append(cat.Items, domain.CatalogItem{
				ID: it.ID, CatalogID: c.ID, Code: it.Code, Name: it.Name,
				Multiplier: mult, LastWin: it.LastWin, Active: !it.Inactive,
			})
		}
		if err := s.SaveCatalog(ctx, cat); err != nil {
			return n, err
		}
		n += 1 + len(cat.Items)
	}

	for _, e := range f.Events {
		ev := domain.Event{
			ID: e.ID, CatalogID: e.CatalogID, ScheduledAt: e.ScheduledAt,
			Status: domain.EventStatus(e.Status), OutcomeItemID: e.Outcome,
		}
		var err error
		if ev.FixedPayoutCap, err = parseNullDecimal(e.FixedCap); err != nil {
			return n, fmt.Errorf("storage.LoadFixture: event %s: %w", e.ID, err)
		}
		if ev.PayoutPercentage, err = parseNullDecimal(e.PayoutPct); err != nil {
			return n, fmt.Errorf("storage.LoadFixture: event %s: %w", e.ID, err)
		}
		if ev.OutcomeItemID != "" && ev.Status == "" {
			ev.Status = domain.EventResolved
		}
		if err := s.SaveEvent(ctx, ev); err != nil {
			return n, err
		}
		n++
	}

	for _, w := range f.Wagers {
		wager := domain.Wager{ID: w.ID, EventID: w.EventID, PlacedAt: w.PlacedAt, Voided: w.Voided}
		for _, l := range w.Lines {
			amount, err := parseDecimal(l.Amount, "")
			if err != nil {
				return n, fmt.Errorf("storage.LoadFixture: wager %s: %w", w.ID, err)
			}
			mult, err := parseDecimal(l.Multiplier, "0")
			if err != nil {
				return n, fmt.Errorf("storage.LoadFixture: wager %s: %w", w.ID, err)
			}
			wager.Lines = append(wager.Lines, domain.WagerLine{ItemID: l.ItemID, Amount: amount, Multiplier: mult})
		}
		if err := s.SaveWager(ctx, wager); err != nil {
			return n, err
		}
		n++
	}

	for _, c := range f.Compounds {
		stake, err := parseDecimal(c.Stake, "")
		if err != nil {
			return n, fmt.Errorf("storage.LoadFixture: compound %s: %w", c.ID, err)
		}
		mult, err := parseDecimal(c.Multiplier, "")
		if err != nil {
			return n, fmt.Errorf("storage.LoadFixture: compound %s: %w", c.ID, err)
		}
		cw := domain.CompoundWager{
			ID: c.ID, CatalogID: c.CatalogID, Targets: c.Targets, Stake: stake, Multiplier: mult,
			StartEventID: c.StartEvent, StartAt: c.StartAt, ExpiryEventID: c.ExpiryEvent, ExpiresAt: c.ExpiresAt,
			Status: domain.CompoundActive,
		}
		if err := cw.Validate(); err != nil {
			return n, fmt.Errorf("storage.LoadFixture: %w", err)
		}
		if err := s.SaveCompoundWager(ctx, cw); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func parseDecimal(s, def string) (decimal.Decimal, error) {
	if s == "" {
		s = def
	}
	if s == "" {
		return decimal.Zero, errors.New("missing amount")
	}
	return decimal.NewFromString(s)
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
