package optimizer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// itemSales son las ventas de un item en el sorteo.
type itemSales struct {
	amount decimal.Decimal
	count  int             // tickets que juegan el item
	payout decimal.Decimal // pago directo si el item sale
}

// salesTotals es la salida del agregador de ventas.
type salesTotals struct {
	byItem   map[string]itemSales
	total    decimal.Decimal
	maxCount int // máximo de tickets entre items con ventas
}

// aggregateSales reduce los tickets del sorteo a totales por item.
// Cero tickets es un estado válido: mapa vacío y total cero.
func aggregateSales(wagers []domain.Wager, items map[string]domain.CatalogItem) (salesTotals, error) {
	st := salesTotals{byItem: make(map[string]itemSales), total: decimal.Zero}

	for _, w := range wagers {
		if w.Voided {
			continue
		}
		seen := make(map[string]bool, len(w.Lines))
		for _, l := range w.Lines {
			if l.Amount.IsNegative() {
				return salesTotals{}, fmt.Errorf("wager %s: negative amount on item %s: %w",
					w.ID, l.ItemID, domain.ErrMalformedRecord)
			}
			mult := l.Multiplier
			if !mult.IsPositive() {
				it, ok := items[l.ItemID]
				if !ok {
					return salesTotals{}, fmt.Errorf("wager %s: line on unknown item %s without multiplier: %w",
						w.ID, l.ItemID, domain.ErrMalformedRecord)
				}
				mult = it.Multiplier
			}

			s := st.byItem[l.ItemID]
			s.amount = s.amount.Add(l.Amount)
			s.payout = s.payout.Add(l.Amount.Mul(mult))
			if !seen[l.ItemID] {
				s.count++
				seen[l.ItemID] = true
			}
			st.byItem[l.ItemID] = s
			st.total = st.total.Add(l.Amount)
		}
	}

	for _, s := range st.byItem {
		if s.count > st.maxCount {
			st.maxCount = s.count
		}
	}
	return st, nil
}

// of devuelve las ventas del item (cero si no tiene).
func (st salesTotals) of(itemID string) itemSales {
	s, ok := st.byItem[itemID]
	if !ok {
		return itemSales{amount: decimal.Zero, payout: decimal.Zero}
	}
	return s
}
