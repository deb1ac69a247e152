package optimizer

import (
	"sort"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// rank puntúa los candidatos que pasaron las restricciones y los ordena por
// score descendente; los empates se resuelven por código ascendente.
func (o *Optimizer) rank(ec *eventContext, ev evaluation, sales salesTotals, usage usageSet) []domain.Candidate {
	recent := ec.recentCodes(o.cfg.SequentialWindow)
	maxPayout := ev.snapshot.MaxPayout

	ranked := make([]domain.Candidate, len(ev.passed))
	for i, c := range ev.passed {
		c.Factors = domain.FactorScores{
			TicketCount:      domain.TicketCountScore(c.TicketCount, sales.maxCount),
			DaysSinceWin:     domain.DaysSinceWinScore(c.DaysSinceWin, o.cfg.DaysCap),
			Sequential:       domain.SequentialScore(domain.SequentialPenalty(c.Item.Code, usage.codes, recent)),
			CompoundRisk:     domain.CompoundRiskScore(c.Compound.TotalLiability, maxPayout),
			PayoutEfficiency: domain.PayoutEfficiencyScore(c.TotalPayout, maxPayout),
		}
		c.Score = o.cfg.Weights.Apply(c.Factors)
		ranked[i] = c
	}

	sortCandidates(ranked)
	return ranked
}

func sortCandidates(cs []domain.Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Item.Code < cs[j].Item.Code
	})
}
