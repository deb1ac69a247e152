package optimizer

import (
	"sort"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// usageSet son los items y grupos ya usados en la ventana de exclusión.
type usageSet struct {
	items  map[string]bool
	groups map[int]bool
	codes  []int // códigos usados, ordenados
}

// trackUsage calcula la exclusión del día a partir de los otros sorteos de la
// ventana. Un item queda excluido si fue preselección o resultado de otro
// sorteo; en catálogos con grupos, también si otro item de su grupo lo fue.
func trackUsage(cat domain.Catalog, window []domain.Event, items map[string]domain.CatalogItem) usageSet {
	u := usageSet{items: make(map[string]bool), groups: make(map[int]bool)}

	for _, e := range window {
		for _, id := range e.UsedItemIDs() {
			if u.items[id] {
				continue
			}
			u.items[id] = true
			it, ok := items[id]
			if !ok {
				continue
			}
			u.codes = append(u.codes, it.Code)
			if g, ok := cat.GroupOf(it); ok {
				u.groups[g] = true
			}
		}
	}
	sort.Ints(u.codes)
	return u
}

// excluded devuelve el motivo de exclusión del item, o RejectNone.
func (u usageSet) excluded(cat domain.Catalog, it domain.CatalogItem) domain.RejectReason {
	if u.items[it.ID] {
		return domain.RejectExcludedItem
	}
	if g, ok := cat.GroupOf(it); ok && u.groups[g] {
		return domain.RejectExcludedGroup
	}
	return domain.RejectNone
}

// nearUsed devuelve true si el código está a distancia ≤ 1 de un código usado.
func (u usageSet) nearUsed(code int) bool {
	for _, c := range u.codes {
		if d := code - c; d >= -1 && d <= 1 {
			return true
		}
	}
	return false
}
