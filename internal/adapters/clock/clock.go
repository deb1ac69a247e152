package clock

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/drawbot/internal/ports"
)

// DefaultTimezone es la zona donde operan los sorteos.
const DefaultTimezone = "America/Caracas"

// Wall implementa ports.Clock con la hora del sistema en una zona fija.
type Wall struct {
	loc *time.Location
}

var _ ports.Clock = (*Wall)(nil)

// New carga la zona por nombre IANA. Vacío usa DefaultTimezone.
func New(tz string) (*Wall, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("clock.New: %w", err)
	}
	return &Wall{loc: loc}, nil
}

func (w *Wall) Now() time.Time { return time.Now().In(w.loc) }

func (w *Wall) Location() *time.Location { return w.loc }

// Fixed es un reloj detenido, útil en tests y en ejecuciones de replay.
type Fixed struct {
	T   time.Time
	Loc *time.Location
}

var _ ports.Clock = Fixed{}

func (f Fixed) Now() time.Time {
	return f.T.In(f.Location())
}

func (f Fixed) Location() *time.Location {
	if f.Loc == nil {
		return time.UTC
	}
	return f.Loc
}
