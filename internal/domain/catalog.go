package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogKind identifica el tipo de catálogo (animalitos, triples, ...).
type CatalogKind string

const (
	CatalogAnimal CatalogKind = "animal"
	CatalogTriple CatalogKind = "triple"
)

// GroupKeyFunc agrupa códigos de item. ok=false significa que el código no
// pertenece a ningún grupo.
type GroupKeyFunc func(code int) (prefix int, ok bool)

// HundredsGroup agrupa por centena: 100–199 → 1, 200–299 → 2, ...
func HundredsGroup(code int) (int, bool) {
	if code < 0 {
		return 0, false
	}
	return code / 100, true
}

// GroupKeyFor devuelve la capacidad de agrupación del tipo de catálogo, o nil
// si el tipo no agrupa sus items.
func GroupKeyFor(kind CatalogKind) GroupKeyFunc {
	switch kind {
	case CatalogTriple:
		return HundredsGroup
	default:
		return nil
	}
}

// Catalog es el conjunto fijo de resultados posibles de un juego.
type Catalog struct {
	ID       string
	Name     string
	Kind     CatalogKind
	Items    []CatalogItem // activos, ordenados por código
	GroupKey GroupKeyFunc  // nil = sin grupos
}

// Item busca un item activo por ID.
func (c Catalog) Item(id string) (CatalogItem, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return CatalogItem{}, false
}

// GroupOf devuelve el prefijo de grupo del item, si el catálogo agrupa.
func (c Catalog) GroupOf(item CatalogItem) (int, bool) {
	if c.GroupKey == nil {
		return 0, false
	}
	return c.GroupKey(item.Code)
}

// CatalogItem es un resultado posible (p.ej. un número).
type CatalogItem struct {
	ID         string
	CatalogID  string
	Code       int
	Name       string
	Multiplier decimal.Decimal
	LastWin    *time.Time // nil = nunca ha salido
	Active     bool
}

// DaysSinceWin devuelve los días completos desde la última vez que salió.
// ok=false si nunca ha salido.
func (i CatalogItem) DaysSinceWin(now time.Time) (days int, ok bool) {
	if i.LastWin == nil {
		return 0, false
	}
	d := int(now.Sub(*i.LastWin).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d, true
}
