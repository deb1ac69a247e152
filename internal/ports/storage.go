package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// Reader expone las lecturas que necesita una corrida del optimizador.
// Dentro de Store.View todas las lecturas ven la misma foto de la base.
type Reader interface {
	// GetEvent devuelve el sorteo o domain.ErrNotFound.
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)

	// GetCatalog devuelve el catálogo con sus items activos ordenados por código,
	// o domain.ErrNotFound.
	GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error)

	// GetItem devuelve un item del catálogo aunque esté inactivo.
	GetItem(ctx context.Context, itemID string) (domain.CatalogItem, error)

	// ListWagers devuelve los tickets no anulados del sorteo con sus jugadas.
	ListWagers(ctx context.Context, eventID string) ([]domain.Wager, error)

	// ListWindowEvents devuelve los sorteos del catálogo con scheduled_at en [from, to).
	ListWindowEvents(ctx context.Context, catalogID string, from, to time.Time) ([]domain.Event, error)

	// ListRecentResolved devuelve hasta limit sorteos resueltos del catálogo
	// anteriores a before, del más nuevo al más viejo.
	ListRecentResolved(ctx context.Context, catalogID string, before time.Time, limit int) ([]domain.Event, error)

	// ListOpenCompoundWagers devuelve las tripletas activas del catálogo cuya
	// ventana incluye at.
	ListOpenCompoundWagers(ctx context.Context, catalogID string, at time.Time) ([]domain.CompoundWager, error)

	// ListResolvedBetween devuelve los sorteos resueltos del catálogo con
	// scheduled_at en [from, to].
	ListResolvedBetween(ctx context.Context, catalogID string, from, to time.Time) ([]domain.Event, error)
}

// Store es el almacenamiento de sorteos, catálogos y apuestas.
type Store interface {
	// View ejecuta fn dentro de una transacción de solo lectura.
	View(ctx context.Context, fn func(Reader) error) error

	// ListClosingEvents devuelve los sorteos programados, sin preselección,
	// con scheduled_at en [from, to].
	ListClosingEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error)

	// CommitPreselection fija el item preseleccionado y cierra el sorteo.
	// Devuelve domain.ErrAlreadyResolved si ya tenía preselección o resultado.
	CommitPreselection(ctx context.Context, eventID, itemID string, at time.Time) error

	// OverrideOutcome cambia el item comprometido del sorteo (resultado si ya
	// existe, si no la preselección) y registra la auditoría en la misma
	// transacción. Devuelve el registro con PreviousItemID completado.
	OverrideOutcome(ctx context.Context, ov domain.OutcomeOverride) (domain.OutcomeOverride, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
