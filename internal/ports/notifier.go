package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// Reporter presenta cada selección al operador.
type Reporter interface {
	// Report muestra la selección y, si existe, su ranking de candidatos.
	// En la implementación de consola, imprime una tabla formateada.
	Report(ctx context.Context, sel domain.Selection) error
}

// Recorder registra métricas de las selecciones.
type Recorder interface {
	RecordSelection(sel domain.Selection, elapsed time.Duration)
	RecordFailure(eventID string, err error)
}
