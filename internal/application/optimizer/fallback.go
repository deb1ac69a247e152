package optimizer

import (
	"sort"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// fallback relaja todas las restricciones salvo la exclusión del día y elige
// el item con menos ventas (menor exposición). Si la exclusión vació el
// catálogo, elige del catálogo completo. Siempre pide revisión.
func fallback(ev evaluation) (domain.CatalogItem, *domain.Analysis) {
	analysis := &domain.Analysis{
		Constraints: ev.snapshot,
		Rejected:    ev.rejected,
		Evaluated:   len(ev.rejected),
		NeedsReview: true,
	}

	pool := make([]domain.Candidate, 0, len(ev.rejected))
	for _, c := range ev.rejected {
		if c.Reason == domain.RejectPayoutCap || c.Reason == domain.RejectNoLoss {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		analysis.LastResort = true
		pool = append(pool, ev.rejected...)
	}

	sort.Slice(pool, func(i, j int) bool {
		if !pool[i].SalesAmount.Equal(pool[j].SalesAmount) {
			return pool[i].SalesAmount.LessThan(pool[j].SalesAmount)
		}
		return pool[i].Item.Code < pool[j].Item.Code
	})
	analysis.Candidates = pool

	return pool[0].Item, analysis
}
