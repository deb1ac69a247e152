package optimizer

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// intelligentRandom elige un resultado cuando el sorteo no tiene ventas:
// descarta los items excluidos, toma el top por días sin salir (mínimo
// RandomMinPool), quita los vecinos (±1) de resultados del día y sortea
// uniformemente entre lo que queda.
func (o *Optimizer) intelligentRandom(ec *eventContext, usage usageSet) (domain.CatalogItem, *domain.Analysis) {
	analysis := &domain.Analysis{
		Constraints: domain.ConstraintSnapshot{
			TotalStake: decimal.Zero,
			MaxPayout:  decimal.Zero,
			CapSource:  domain.CapPercentage,
		},
		NoSales: true,
	}

	type ranked struct {
		item domain.CatalogItem
		days int
	}

	pool := make([]ranked, 0, len(ec.catalog.Items))
	for _, it := range ec.catalog.Items {
		if usage.excluded(ec.catalog, it) != domain.RejectNone {
			continue
		}
		pool = append(pool, ranked{item: it})
	}
	if len(pool) == 0 {
		analysis.LastResort = true
		analysis.NeedsReview = true
		for _, it := range ec.catalog.Items {
			pool = append(pool, ranked{item: it})
		}
	}
	analysis.Evaluated = len(ec.catalog.Items)

	for i := range pool {
		d, ok := pool[i].item.DaysSinceWin(ec.now)
		if !ok {
			d = o.cfg.NeverWonDays
		}
		pool[i].days = d
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].days != pool[j].days {
			return pool[i].days > pool[j].days
		}
		return pool[i].item.Code < pool[j].item.Code
	})

	n := int(math.Floor(float64(len(pool)) * o.cfg.RandomTopFraction))
	n = min(max(n, o.cfg.RandomMinPool), len(pool))
	top := pool[:n]

	draw := make([]ranked, 0, len(top))
	for _, r := range top {
		if !usage.nearUsed(r.item.Code) {
			draw = append(draw, r)
		}
	}
	if len(draw) == 0 {
		draw = top
	}

	for _, r := range draw {
		analysis.Candidates = append(analysis.Candidates, domain.Candidate{
			Item:         r.item,
			SalesAmount:  decimal.Zero,
			DirectPayout: decimal.Zero,
			TotalPayout:  decimal.Zero,
			DaysSinceWin: r.days,
			Passed:       true,
		})
	}
	analysis.Passed = len(draw)

	return draw[o.rng.IntN(len(draw))].item, analysis
}
