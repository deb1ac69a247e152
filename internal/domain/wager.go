package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WagerLine es una jugada dentro de un ticket.
type WagerLine struct {
	ItemID     string
	Amount     decimal.Decimal
	Multiplier decimal.Decimal // capturado al momento de la venta (0 = usar el del item)
}

// Wager es un ticket vendido para un sorteo.
type Wager struct {
	ID       string
	EventID  string
	Voided   bool
	PlacedAt time.Time
	Lines    []WagerLine
}

// Total devuelve el monto total apostado en el ticket.
func (w Wager) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range w.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// CompoundStatus es el estado de una apuesta compuesta (tripleta).
type CompoundStatus string

const (
	CompoundActive  CompoundStatus = "active"
	CompoundWon     CompoundStatus = "won"
	CompoundExpired CompoundStatus = "expired"
)

// CompoundWager es una apuesta a tres items que deben salir todos dentro de
// una secuencia de sorteos [StartAt, ExpiresAt].
type CompoundWager struct {
	ID            string
	CatalogID     string
	Targets       [3]string
	Stake         decimal.Decimal
	Multiplier    decimal.Decimal
	StartEventID  string
	StartAt       time.Time
	ExpiryEventID string
	ExpiresAt     time.Time
	Status        CompoundStatus
}

// Payout devuelve el premio completo de la apuesta: stake × multiplicador.
func (c CompoundWager) Payout() decimal.Decimal {
	return c.Stake.Mul(c.Multiplier)
}

// HasTarget devuelve true si el item es uno de los tres objetivos.
func (c CompoundWager) HasTarget(itemID string) bool {
	for _, t := range c.Targets {
		if t == itemID {
			return true
		}
	}
	return false
}

// Covers devuelve true si el instante cae dentro de la ventana de la apuesta.
func (c CompoundWager) Covers(at time.Time) bool {
	return !at.Before(c.StartAt) && !at.After(c.ExpiresAt)
}

// Validate verifica que la apuesta tenga tres objetivos distintos y una ventana válida.
func (c CompoundWager) Validate() error {
	seen := make(map[string]bool, 3)
	for _, t := range c.Targets {
		if t == "" || seen[t] {
			return fmt.Errorf("compound wager %s: targets must be 3 distinct items: %w", c.ID, ErrMalformedRecord)
		}
		seen[t] = true
	}
	if c.ExpiresAt.Before(c.StartAt) {
		return fmt.Errorf("compound wager %s: expiry before start: %w", c.ID, ErrMalformedRecord)
	}
	return nil
}
