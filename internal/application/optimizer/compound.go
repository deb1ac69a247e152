package optimizer

import (
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// compoundIndex indexa las tripletas abiertas por objetivo. Los aciertos de
// cada tripleta dependen solo de sorteos ya resueltos, así que se calculan una
// vez por corrida y el impacto de cada candidato es una búsqueda.
type compoundIndex struct {
	byTarget map[string][]*compoundState
}

func indexCompounds(states []compoundState) compoundIndex {
	idx := compoundIndex{byTarget: make(map[string][]*compoundState)}
	for i := range states {
		st := &states[i]
		for _, t := range st.wager.Targets {
			idx.byTarget[t] = append(idx.byTarget[t], st)
		}
	}
	return idx
}

// impact calcula el efecto de declarar itemID sobre las tripletas abiertas.
// El candidato completa una tripleta si es un objetivo aún no acertado y los
// otros dos ya salieron; en ese caso suma el premio completo al pasivo.
func (idx compoundIndex) impact(itemID string) domain.CompoundImpact {
	imp := domain.CompoundImpact{TotalLiability: decimal.Zero}

	for _, st := range idx.byTarget[itemID] {
		imp.RelevantCount++
		detail := domain.CompoundDetail{
			WagerID:    st.wager.ID,
			NumbersHit: len(st.hit),
			Payout:     decimal.Zero,
		}
		if !st.hit[itemID] && otherTargetsHit(st, itemID) {
			detail.Completes = true
			detail.Payout = st.wager.Payout()
			imp.CompletingCount++
			imp.TotalLiability = imp.TotalLiability.Add(detail.Payout)
		}
		imp.Details = append(imp.Details, detail)
	}
	return imp
}

func otherTargetsHit(st *compoundState, itemID string) bool {
	for _, t := range st.wager.Targets {
		if t != itemID && !st.hit[t] {
			return false
		}
	}
	return true
}
