package optimizer

import (
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// evaluation es la salida del evaluador de restricciones.
type evaluation struct {
	snapshot domain.ConstraintSnapshot
	passed   []domain.Candidate
	rejected []domain.Candidate
}

// evaluate aplica las restricciones duras a cada item del catálogo, en orden;
// el primer filtro que falla excluye el item:
//  1. exclusión del día (item o grupo)
//  2. tope de pago: directo + compuesto ≤ maxPayout
//  3. sin pérdida: directo + compuesto ≤ total apostado
func (o *Optimizer) evaluate(ec *eventContext, sales salesTotals, usage usageSet, compos compoundIndex) evaluation {
	pct := o.cfg.DefaultPayoutPct
	if ec.event.PayoutPercentage.Valid {
		pct = ec.event.PayoutPercentage.Decimal
	}
	maxPayout, src := domain.MaxPayout(sales.total, ec.event.FixedPayoutCap, pct)

	ev := evaluation{
		snapshot: domain.ConstraintSnapshot{
			TotalStake: sales.total,
			MaxPayout:  maxPayout,
			CapSource:  src,
			Percentage: pct,
		},
	}

	for _, it := range ec.catalog.Items {
		c := o.newCandidate(ec, it, sales, compos)
		c.Reason = check(ec.catalog, it, c.TotalPayout, usage, maxPayout, sales.total)
		c.Passed = c.Reason == domain.RejectNone
		if c.Passed {
			ev.passed = append(ev.passed, c)
		} else {
			ev.rejected = append(ev.rejected, c)
		}
	}
	return ev
}

func check(cat domain.Catalog, it domain.CatalogItem, total decimal.Decimal, usage usageSet, maxPayout, stake decimal.Decimal) domain.RejectReason {
	if r := usage.excluded(cat, it); r != domain.RejectNone {
		return r
	}
	if total.GreaterThan(maxPayout) {
		return domain.RejectPayoutCap
	}
	if total.GreaterThan(stake) {
		return domain.RejectNoLoss
	}
	return domain.RejectNone
}

func (o *Optimizer) newCandidate(ec *eventContext, it domain.CatalogItem, sales salesTotals, compos compoundIndex) domain.Candidate {
	s := sales.of(it.ID)
	imp := compos.impact(it.ID)

	days, ok := it.DaysSinceWin(ec.now)
	if !ok {
		days = o.cfg.DaysCap
	}

	return domain.Candidate{
		Item:         it,
		SalesAmount:  s.amount,
		TicketCount:  s.count,
		DirectPayout: s.payout,
		Compound:     imp,
		TotalPayout:  s.payout.Add(imp.TotalLiability),
		DaysSinceWin: days,
	}
}
