package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method indica por qué camino del orquestador se eligió el resultado.
type Method string

const (
	MethodOverride          Method = "override"
	MethodRandomIntelligent Method = "random_intelligent"
	MethodOptimized         Method = "optimized"
	MethodFallback          Method = "fallback"
)

// CapSource indica de dónde salió el tope de pago.
type CapSource string

const (
	CapFixed      CapSource = "fixed"
	CapPercentage CapSource = "percentage"
)

// ConstraintSnapshot es la foto de las restricciones financieras de la corrida.
type ConstraintSnapshot struct {
	TotalStake decimal.Decimal
	MaxPayout  decimal.Decimal
	CapSource  CapSource
	Percentage decimal.Decimal // porcentaje efectivo usado (puntos, 70 = 70%)
}

// Analysis es el payload de auditoría de una selección.
type Analysis struct {
	Constraints ConstraintSnapshot
	Candidates  []Candidate // ranking (optimized), pool (fallback, random)
	Rejected    []Candidate // items que no pasaron las restricciones, con su motivo
	Evaluated   int
	Passed      int
	NoSales     bool
	NeedsReview bool
	LastResort  bool // se ignoró la exclusión porque vació el catálogo
	Warnings    []string
	Elapsed     time.Duration
}

// Selection es el resultado de SelectOutcome.
type Selection struct {
	RunID      string
	EventID    string
	Method     Method
	Item       CatalogItem
	Analysis   *Analysis // nil en override
	SelectedAt time.Time
}

// NeedsReview devuelve true si un operador debe revisar la selección.
func (s Selection) NeedsReview() bool {
	return s.Analysis != nil && s.Analysis.NeedsReview
}
