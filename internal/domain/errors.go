package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: sorteo, catálogo o item inexistente. Fatal para la selección.
	ErrNotFound = errors.New("not found")
	// ErrEventCancelled: no se selecciona resultado para un sorteo cancelado.
	ErrEventCancelled = errors.New("event cancelled")
	// ErrEmptyCatalog: el catálogo no tiene items activos.
	ErrEmptyCatalog = errors.New("catalog has no active items")
	// ErrMalformedRecord: un registro leído del store no cumple sus invariantes.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInvalidWeights: los pesos del scorer no suman 1.
	ErrInvalidWeights = errors.New("invalid scoring weights")
	// ErrAlreadyResolved: el sorteo ya tiene un resultado comprometido.
	ErrAlreadyResolved = errors.New("event already has a committed outcome")
)

// PartialDataError indica que falló la lectura de un único registro auxiliar
// (p.ej. el historial de una tripleta). Se recupera localmente excluyendo ese
// registro del cálculo.
type PartialDataError struct {
	Record string // "compound_wager", "history", ...
	ID     string
	Err    error
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("partial data: %s %s: %v", e.Record, e.ID, e.Err)
}

func (e *PartialDataError) Unwrap() error {
	return e.Err
}
