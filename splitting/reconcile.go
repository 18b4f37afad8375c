package splitting

import (
	"sort"

	"github.com/shopspring/decimal"

	"instasplit/money"
)

// reconcile rounds each person's unrounded total to the currency's minor
// unit and distributes the leftover difference against the receipt total
// using largest-remainder ordering: people whose rounding discarded the most
// get the first penny. Ties keep group order. When more pennies than people
// need distributing the walk wraps around, so one person can absorb several.
func (e *Engine) reconcile(accounts map[string]*account) (map[string]decimal.Decimal, ReconciliationInfo) {
	currency := e.receipt.Currency
	target := decimal.NewFromFloat(e.receipt.Total)
	penny := money.MinorUnit(currency)

	type remainder struct {
		personID string
		fraction decimal.Decimal
	}

	rounded := make(map[string]decimal.Decimal, len(e.group.People))
	remainders := make([]remainder, 0, len(e.group.People))
	sumRounded := decimal.Zero
	for _, p := range e.group.People {
		total := accounts[p.ID].unroundedTotal()
		r := money.RoundDecimal(total, currency)
		rounded[p.ID] = r
		sumRounded = sumRounded.Add(r)
		remainders = append(remainders, remainder{
			personID: p.ID,
			fraction: total.Sub(r).Abs(),
		})
	}

	diff := target.Sub(sumRounded)
	pennies := diff.Div(penny).Round(0).IntPart()

	info := ReconciliationInfo{
		TargetTotal:     e.receipt.Total,
		CalculatedTotal: sumRounded.InexactFloat64(),
		Difference:      diff.InexactFloat64(),
		PenniesAdjusted: int(abs64(pennies)),
	}

	if pennies == 0 {
		return rounded, info
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].fraction.GreaterThan(remainders[j].fraction)
	})

	step := penny
	if pennies < 0 {
		step = penny.Neg()
	}
	for i := int64(0); i < abs64(pennies); i++ {
		id := remainders[i%int64(len(remainders))].personID
		rounded[id] = rounded[id].Add(step)
	}

	return rounded, info
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
