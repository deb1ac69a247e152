package domain

import "github.com/shopspring/decimal"

// RejectReason explica por qué un item no sobrevivió a las restricciones duras.
type RejectReason string

const (
	RejectNone          RejectReason = ""
	RejectExcludedItem  RejectReason = "excluded_item"
	RejectExcludedGroup RejectReason = "excluded_group"
	RejectPayoutCap     RejectReason = "payout_cap"
	RejectNoLoss        RejectReason = "no_loss"
)

// CompoundDetail describe el efecto de un candidato sobre una tripleta abierta.
type CompoundDetail struct {
	WagerID    string
	NumbersHit int // objetivos ya resueltos dentro de la ventana (0–3)
	Completes  bool
	Payout     decimal.Decimal
}

// CompoundImpact agrega el efecto de un candidato sobre todas las tripletas abiertas.
type CompoundImpact struct {
	RelevantCount   int // tripletas que tienen al candidato como objetivo
	CompletingCount int // tripletas que el candidato completaría
	TotalLiability  decimal.Decimal
	Details         []CompoundDetail
}

// FactorScores son los cinco factores normalizados en [0,1].
type FactorScores struct {
	TicketCount      float64
	DaysSinceWin     float64
	Sequential       float64
	CompoundRisk     float64
	PayoutEfficiency float64
}

// Candidate es la evaluación de un item del catálogo dentro de una corrida.
type Candidate struct {
	Item         CatalogItem
	SalesAmount  decimal.Decimal
	TicketCount  int
	DirectPayout decimal.Decimal
	Compound     CompoundImpact
	TotalPayout  decimal.Decimal
	DaysSinceWin int // días desde la última salida; el cap si nunca salió

	Passed bool
	Reason RejectReason

	Factors FactorScores
	Score   float64
}
