package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Weights son los pesos del score final. Deben sumar 1.
type Weights struct {
	TicketCount      float64 `yaml:"ticket_count"`
	DaysSinceWin     float64 `yaml:"days_since_win"`
	Sequential       float64 `yaml:"sequential"`
	CompoundRisk     float64 `yaml:"compound_risk"`
	PayoutEfficiency float64 `yaml:"payout_efficiency"`
}

// DefaultWeights devuelve los pesos de producción.
func DefaultWeights() Weights {
	return Weights{
		TicketCount:      0.35,
		DaysSinceWin:     0.25,
		Sequential:       0.15,
		CompoundRisk:     0.15,
		PayoutEfficiency: 0.10,
	}
}

// Sum devuelve la suma de los cinco pesos.
func (w Weights) Sum() float64 {
	return w.TicketCount + w.DaysSinceWin + w.Sequential + w.CompoundRisk + w.PayoutEfficiency
}

// Validate verifica que ningún peso sea negativo y que sumen 1 (tolerancia 1e-9).
func (w Weights) Validate() error {
	for _, v := range []float64{w.TicketCount, w.DaysSinceWin, w.Sequential, w.CompoundRisk, w.PayoutEfficiency} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("negative or NaN weight %v: %w", v, ErrInvalidWeights)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights sum to %v: %w", sum, ErrInvalidWeights)
	}
	return nil
}

// Apply combina los factores en el score final.
func (w Weights) Apply(f FactorScores) float64 {
	return f.TicketCount*w.TicketCount +
		f.DaysSinceWin*w.DaysSinceWin +
		f.Sequential*w.Sequential +
		f.CompoundRisk*w.CompoundRisk +
		f.PayoutEfficiency*w.PayoutEfficiency
}

// TicketCountScore: tickets del candidato ÷ máximo de tickets entre items con ventas.
func TicketCountScore(count, maxCount int) float64 {
	if maxCount <= 0 || count <= 0 {
		return 0
	}
	return clamp01(float64(count) / float64(maxCount))
}

// DaysSinceWinScore: min(días, cap) / cap.
func DaysSinceWinScore(days, capDays int) float64 {
	if capDays <= 0 {
		return 1
	}
	if days < 0 {
		days = 0
	}
	return float64(min(days, capDays)) / float64(capDays)
}

// SequentialPenalty acumula la penalización por patrones numéricos:
//   - +0.4 por cada resultado del día a distancia 1 del candidato
//   - +0.2 por cada resultado del día a distancia 2
//   - +0.15 por cada progresión aritmética contra los últimos resultados
//
// recent va del más nuevo al más viejo. Para cada i < len-1 se compara
// d1 = recent[i]-recent[i+1] con d2 = code-recent[0]; hay match si |d1| = |d2| y d1 ≠ 0.
func SequentialPenalty(code int, windowCodes, recent []int) float64 {
	penalty := 0.0
	for _, c := range windowCodes {
		switch absInt(code - c) {
		case 1:
			penalty += 0.4
		case 2:
			penalty += 0.2
		}
	}
	if len(recent) >= 2 {
		d2 := code - recent[0]
		for i := 0; i < len(recent)-1; i++ {
			d1 := recent[i] - recent[i+1]
			if d1 != 0 && absInt(d1) == absInt(d2) {
				penalty += 0.15
			}
		}
	}
	return penalty
}

// SequentialScore: 1 − min(penalización, 1).
func SequentialScore(penalty float64) float64 {
	return 1 - math.Min(penalty, 1)
}

// CompoundRiskScore: 1 sin pasivo compuesto; si no, max(0, 1 − 2×pasivo/maxPayout).
func CompoundRiskScore(liability, maxPayout decimal.Decimal) float64 {
	if !liability.IsPositive() {
		return 1
	}
	if !maxPayout.IsPositive() {
		return 0
	}
	ratio := liability.Div(maxPayout).InexactFloat64()
	return math.Max(0, 1-2*ratio)
}

// PayoutEfficiencyScore premia usar el presupuesto de pago sin pegarse al tope:
// ratio ≤ 0.9 → ratio/0.9; si no, max(0, 1 − (ratio−0.9)×5). maxPayout = 0 → 0.5.
func PayoutEfficiencyScore(totalPayout, maxPayout decimal.Decimal) float64 {
	if !maxPayout.IsPositive() {
		return 0.5
	}
	ratio := totalPayout.Div(maxPayout).InexactFloat64()
	if ratio <= 0.9 {
		return clamp01(ratio / 0.9)
	}
	return math.Max(0, 1-(ratio-0.9)*5)
}

// MaxPayout calcula el tope de pago del sorteo.
//   - tope fijo configurado: min(totalStake, fixedCap)
//   - si no: min(totalStake, totalStake × pct/100)
func MaxPayout(totalStake decimal.Decimal, fixedCap decimal.NullDecimal, pct decimal.Decimal) (decimal.Decimal, CapSource) {
	if fixedCap.Valid && fixedCap.Decimal.IsPositive() {
		return decimal.Min(totalStake, fixedCap.Decimal), CapFixed
	}
	byPct := totalStake.Mul(pct).Div(decimal.NewFromInt(100))
	return decimal.Min(totalStake, byPct), CapPercentage
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
