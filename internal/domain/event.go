package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus representa el ciclo de vida de un sorteo.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventClosed    EventStatus = "closed"
	EventResolved  EventStatus = "resolved"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// Event es un sorteo programado de un catálogo.
type Event struct {
	ID          string
	CatalogID   string
	ScheduledAt time.Time
	Status      EventStatus

	PreselectedItemID string // preselección manual o del optimizador ("" = ninguna)
	OutcomeItemID     string // resultado declarado ("" = sin resultado)

	// FixedPayoutCap tiene prioridad sobre PayoutPercentage cuando es > 0.
	FixedPayoutCap decimal.NullDecimal
	// PayoutPercentage en puntos porcentuales (70 = 70% de las ventas).
	PayoutPercentage decimal.NullDecimal

	ClosedAt *time.Time
}

// IsCancelled devuelve true si el sorteo fue cancelado.
func (e Event) IsCancelled() bool {
	return e.Status == EventCancelled
}

// IsResolved devuelve true si el sorteo ya tiene resultado declarado.
func (e Event) IsResolved() bool {
	return e.OutcomeItemID != "" && (e.Status == EventResolved || e.Status == EventPublished)
}

// CommittedItemID devuelve el item ya comprometido para el sorteo:
// el resultado si existe, si no la preselección. "" si no hay ninguno.
func (e Event) CommittedItemID() string {
	if e.OutcomeItemID != "" {
		return e.OutcomeItemID
	}
	return e.PreselectedItemID
}

// UsedItemIDs devuelve los items que el sorteo "consume" dentro de la ventana
// de exclusión: la preselección y el resultado (sin duplicados).
func (e Event) UsedItemIDs() []string {
	ids := make([]string, 0, 2)
	if e.PreselectedItemID != "" {
		ids = append(ids, e.PreselectedItemID)
	}
	if e.OutcomeItemID != "" && e.OutcomeItemID != e.PreselectedItemID {
		ids = append(ids, e.OutcomeItemID)
	}
	return ids
}

// HasFixedCap devuelve true si la casa configuró un tope fijo de pago.
func (e Event) HasFixedCap() bool {
	return e.FixedPayoutCap.Valid && e.FixedPayoutCap.Decimal.IsPositive()
}

// OutcomeOverride es el registro auditado de un cambio manual de resultado.
type OutcomeOverride struct {
	ID             string
	EventID        string
	PreviousItemID string
	NewItemID      string
	Actor          string
	Reason         string
	At             time.Time
}
