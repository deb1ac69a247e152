package optimizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- aggregateSales ---

func TestAggregateSales_Empty(t *testing.T) {
	st, err := aggregateSales(nil, nil)
	require.NoError(t, err)
	assert.True(t, st.total.IsZero())
	assert.Empty(t, st.byItem)
	assert.Zero(t, st.maxCount)
	assert.True(t, st.of("x").amount.IsZero())
}

func TestAggregateSales_TotalsAndCounts(t *testing.T) {
	items := map[string]domain.CatalogItem{
		"a": {ID: "a", Multiplier: d("30")},
		"b": {ID: "b", Multiplier: d("30")},
	}
	wagers := []domain.Wager{
		{ID: "w1", Lines: []domain.WagerLine{
			{ItemID: "a", Amount: d("10"), Multiplier: d("40")},
			{ItemID: "a", Amount: d("5")}, // sin multiplicador capturado: usa el del item
			{ItemID: "b", Amount: d("2"), Multiplier: d("30")},
		}},
		{ID: "w2", Lines: []domain.WagerLine{{ItemID: "a", Amount: d("1"), Multiplier: d("40")}}},
		{ID: "void", Voided: true, Lines: []domain.WagerLine{{ItemID: "b", Amount: d("999"), Multiplier: d("30")}}},
	}

	st, err := aggregateSales(wagers, items)
	require.NoError(t, err)
	assert.True(t, st.total.Equal(d("18")))

	a := st.of("a")
	assert.True(t, a.amount.Equal(d("16")))
	assert.Equal(t, 2, a.count)
	assert.True(t, a.payout.Equal(d("590"))) // 10×40 + 5×30 + 1×40

	b := st.of("b")
	assert.Equal(t, 1, b.count)
	assert.True(t, b.payout.Equal(d("60")))
	assert.Equal(t, 2, st.maxCount)
}

func TestAggregateSales_MalformedLines(t *testing.T) {
	_, err := aggregateSales([]domain.Wager{{ID: "w", Lines: []domain.WagerLine{{ItemID: "a", Amount: d("-1")}}}}, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = aggregateSales([]domain.Wager{{ID: "w", Lines: []domain.WagerLine{{ItemID: "ghost", Amount: d("1")}}}}, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}

// --- trackUsage ---

func TestTrackUsage_ItemsGroupsAndCodes(t *testing.T) {
	cat := domain.Catalog{ID: "t", Kind: domain.CatalogTriple, GroupKey: domain.GroupKeyFor(domain.CatalogTriple)}
	items := map[string]domain.CatalogItem{
		"x": {ID: "x", Code: 123},
		"y": {ID: "y", Code: 456},
		"z": {ID: "z", Code: 101},
	}
	window := []domain.Event{
		{ID: "e1", PreselectedItemID: "x"},
		{ID: "e2", PreselectedItemID: "y", OutcomeItemID: "y"},
	}

	u := trackUsage(cat, window, items)
	assert.True(t, u.items["x"])
	assert.True(t, u.items["y"])
	assert.Equal(t, []int{123, 456}, u.codes)
	assert.Equal(t, domain.RejectExcludedGroup, u.excluded(cat, items["z"]))
	assert.Equal(t, domain.RejectExcludedItem, u.excluded(cat, items["x"]))
	assert.Equal(t, domain.RejectNone, u.excluded(cat, domain.CatalogItem{ID: "w", Code: 789}))

	assert.True(t, u.nearUsed(124))
	assert.True(t, u.nearUsed(455))
	assert.False(t, u.nearUsed(125))
}

func TestTrackUsage_NoGroupCapability(t *testing.T) {
	cat := domain.Catalog{ID: "a", Kind: domain.CatalogAnimal}
	items := map[string]domain.CatalogItem{"x": {ID: "x", Code: 12}}
	u := trackUsage(cat, []domain.Event{{ID: "e1", OutcomeItemID: "x"}}, items)
	assert.Empty(t, u.groups)
	assert.Equal(t, domain.RejectNone, u.excluded(cat, domain.CatalogItem{ID: "q", Code: 13}))
}

// --- compoundIndex ---

func TestCompoundIndex_Impact(t *testing.T) {
	twoHit := compoundState{
		wager: domain.CompoundWager{ID: "c1", Targets: [3]string{"a", "b", "c"}, Stake: d("10"), Multiplier: d("100")},
		hit:   map[string]bool{"a": true, "b": true},
	}
	oneHit := compoundState{
		wager: domain.CompoundWager{ID: "c2", Targets: [3]string{"a", "c", "d"}, Stake: d("5"), Multiplier: d("100")},
		hit:   map[string]bool{"a": true},
	}
	alsoTwoHit := compoundState{
		wager: domain.CompoundWager{ID: "c3", Targets: [3]string{"c", "e", "f"}, Stake: d("1"), Multiplier: d("200")},
		hit:   map[string]bool{"e": true, "f": true},
	}
	idx := indexCompounds([]compoundState{twoHit, oneHit, alsoTwoHit})

	c := idx.impact("c")
	assert.Equal(t, 3, c.RelevantCount)
	assert.Equal(t, 2, c.CompletingCount)
	assert.True(t, c.TotalLiability.Equal(d("1200")))
	require.Len(t, c.Details, 3)

	a := idx.impact("a")
	assert.Equal(t, 2, a.RelevantCount)
	assert.Zero(t, a.CompletingCount, "already hit targets never complete")

	none := idx.impact("zzz")
	assert.Zero(t, none.RelevantCount)
	assert.True(t, none.TotalLiability.IsZero())
}

func TestCompoundIndex_OrderIndependent(t *testing.T) {
	states := []compoundState{
		{wager: domain.CompoundWager{ID: "c1", Targets: [3]string{"a", "b", "c"}, Stake: d("1"), Multiplier: d("10")}, hit: map[string]bool{"a": true, "b": true}},
		{wager: domain.CompoundWager{ID: "c2", Targets: [3]string{"c", "d", "e"}, Stake: d("1"), Multiplier: d("10")}, hit: map[string]bool{"d": true, "e": true}},
	}
	idx := indexCompounds(states)
	first := idx.impact("c")
	_ = idx.impact("a")
	_ = idx.impact("d")
	again := idx.impact("c")
	assert.Equal(t, first, again)
}

// --- dayWindow ---

func TestDayWindow_UsesOperatingTimezone(t *testing.T) {
	loc := time.FixedZone("VET", -4*3600)
	// 02:30 UTC del 11 son las 22:30 del 10 en -04
	from, to := dayWindow(time.Date(2025, 3, 11, 2, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), to)
}
