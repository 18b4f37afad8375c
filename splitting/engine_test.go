package splitting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func sptr(s string) *string { return &s }

func sumOwed(breakdowns []PersonBreakdown) float64 {
	total := 0.0
	for _, b := range breakdowns {
		total += b.TotalOwed
	}
	return total
}

func byPerson(t *testing.T, breakdowns []PersonBreakdown, id string) PersonBreakdown {
	t.Helper()
	for _, b := range breakdowns {
		if b.PersonID == id {
			return b
		}
	}
	t.Fatalf("no breakdown for person %q", id)
	return PersonBreakdown{}
}

func twoPeople() Group {
	return Group{People: []Person{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
	}}
}

func TestEvenSplitTwoPeople(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Pizza", Quantity: 1, TotalPrice: 20.0},
			{ID: "2", Name: "Salad", Quantity: 1, TotalPrice: 10.0},
		},
		Subtotal: fptr(30.0),
		Tax:      fptr(3.0),
		Tip:      fptr(6.0),
		Total:    39.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitEven, Shares: []AssignmentShare{{PersonID: "p1"}, {PersonID: "p2"}}},
		{ItemID: "2", SplitMode: SplitEven, Shares: []AssignmentShare{{PersonID: "p1"}, {PersonID: "p2"}}},
	}

	breakdowns, info, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, breakdowns, 2)

	assert.Equal(t, 19.50, breakdowns[0].TotalOwed)
	assert.Equal(t, 19.50, breakdowns[1].TotalOwed)
	assert.Equal(t, 39.0, info.TargetTotal)
	assert.InDelta(t, 0, info.Difference, 0.01)
}

func TestQuantitySplit(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Tacos", Quantity: 3, TotalPrice: 15.0},
		},
		Subtotal: fptr(15.0),
		Tax:      fptr(1.5),
		Tip:      fptr(3.0),
		Total:    19.5,
	}
	// Alice ate 2 tacos, Bob ate 1.
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitQuantity, Shares: []AssignmentShare{
			{PersonID: "p1", ShareQuantity: fptr(2)},
			{PersonID: "p2", ShareQuantity: fptr(1)},
		}},
	}

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	alice := byPerson(t, breakdowns, "p1")
	bob := byPerson(t, breakdowns, "p2")
	assert.InDelta(t, 10.0, alice.ItemsSubtotal, 1e-9)
	assert.InDelta(t, 5.0, bob.ItemsSubtotal, 1e-9)
	assert.InDelta(t, 19.5, sumOwed(breakdowns), 1e-9)
}

func TestQuantitySplitZeroTotalFallsBackToEven(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{{ID: "1", Name: "Fries", Quantity: 1, TotalPrice: 9.0}},
		Total: 9.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitQuantity, Shares: []AssignmentShare{
			{PersonID: "p1"},
			{PersonID: "p2"},
		}},
	}

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, 4.5, byPerson(t, breakdowns, "p1").ItemsSubtotal, 1e-9)
	assert.InDelta(t, 4.5, byPerson(t, breakdowns, "p2").ItemsSubtotal, 1e-9)
	require.NotEmpty(t, byPerson(t, breakdowns, "p1").ItemDetails)
	assert.Equal(t, "even", byPerson(t, breakdowns, "p1").ItemDetails[0].ShareMode)
}

func TestFractionSplit(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{{ID: "1", Name: "Platter", Quantity: 1, TotalPrice: 20.0}},
		Total: 20.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitFraction, Shares: []AssignmentShare{
			{PersonID: "p1", ShareFraction: fptr(0.5)},
			{PersonID: "p2", ShareFraction: fptr(0.5)},
		}},
	}

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, 10.0, byPerson(t, breakdowns, "p1").ItemsSubtotal, 1e-9)
	assert.InDelta(t, 10.0, byPerson(t, breakdowns, "p2").ItemsSubtotal, 1e-9)
	assert.InDelta(t, 20.0, sumOwed(breakdowns), 1e-9)
}

// Fractions are not required to sum to 1. With 0.3/0.3 only 60% of the item
// is allocated through subtotals; the reconciler still forces the grand total
// back to the receipt's declared total.
func TestFractionSplitUnderAllocated(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{{ID: "1", Name: "Platter", Quantity: 1, TotalPrice: 20.0}},
		Total: 20.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitFraction, Shares: []AssignmentShare{
			{PersonID: "p1", ShareFraction: fptr(0.3)},
			{PersonID: "p2", ShareFraction: fptr(0.3)},
		}},
	}

	breakdowns, info, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, 6.0, byPerson(t, breakdowns, "p1").ItemsSubtotal, 1e-9)
	assert.InDelta(t, 6.0, byPerson(t, breakdowns, "p2").ItemsSubtotal, 1e-9)
	// 8.00 of unallocated item cost comes back through penny distribution.
	assert.InDelta(t, 20.0, sumOwed(breakdowns), 1e-9)
	assert.Equal(t, 800, info.PenniesAdjusted)
}

func TestProportionalDiscount(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Burger", Quantity: 1, TotalPrice: 20.0},
			{ID: "2", Name: "Salad", Quantity: 1, TotalPrice: 10.0},
		},
		Subtotal:      fptr(30.0),
		DiscountTotal: fptr(-6.0),
		Tax:           fptr(2.4),
		Tip:           fptr(5.0),
		Total:         31.4,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", Shares: []AssignmentShare{{PersonID: "p1"}}},
		{ItemID: "2", Shares: []AssignmentShare{{PersonID: "p2"}}},
	}

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, -4.0, byPerson(t, breakdowns, "p1").DiscountShare, 0.01)
	assert.InDelta(t, -2.0, byPerson(t, breakdowns, "p2").DiscountShare, 0.01)
	assert.InDelta(t, 31.4, sumOwed(breakdowns), 1e-9)
}

func TestEvenDiscount(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Burger", Quantity: 1, TotalPrice: 20.0},
			{ID: "2", Name: "Salad", Quantity: 1, TotalPrice: 10.0},
		},
		Subtotal:      fptr(30.0),
		DiscountTotal: fptr(-6.0),
		Tax:           fptr(2.4),
		Tip:           fptr(5.0),
		Total:         31.4,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", Shares: []AssignmentShare{{PersonID: "p1"}}},
		{ItemID: "2", Shares: []AssignmentShare{{PersonID: "p2"}}},
	}
	options := DefaultOptions()
	options.DiscountMode = ChargeEven

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, options)
	require.NoError(t, err)

	assert.InDelta(t, -3.0, byPerson(t, breakdowns, "p1").DiscountShare, 0.01)
	assert.InDelta(t, -3.0, byPerson(t, breakdowns, "p2").DiscountShare, 0.01)
}

func TestProportionalTax(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Steak", Quantity: 1, TotalPrice: 100.0},
			{ID: "2", Name: "Pasta", Quantity: 1, TotalPrice: 50.0},
		},
		Subtotal: fptr(150.0),
		Tax:      fptr(15.0),
		Total:    165.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", Shares: []AssignmentShare{{PersonID: "p1"}}},
		{ItemID: "2", Shares: []AssignmentShare{{PersonID: "p2"}}},
	}

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, 10.0, byPerson(t, breakdowns, "p1").TaxShare, 0.01)
	assert.InDelta(t, 5.0, byPerson(t, breakdowns, "p2").TaxShare, 0.01)
}

func TestEvenTip(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Steak", Quantity: 1, TotalPrice: 100.0},
			{ID: "2", Name: "Pasta", Quantity: 1, TotalPrice: 50.0},
		},
		Subtotal: fptr(150.0),
		Tax:      fptr(15.0),
		Tip:      fptr(30.0),
		Total:    195.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", Shares: []AssignmentShare{{PersonID: "p1"}}},
		{ItemID: "2", Shares: []AssignmentShare{{PersonID: "p2"}}},
	}
	options := DefaultOptions()
	options.TipMode = ChargeEven

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, options)
	require.NoError(t, err)

	assert.InDelta(t, 15.0, byPerson(t, breakdowns, "p1").TipShare, 0.01)
	assert.InDelta(t, 15.0, byPerson(t, breakdowns, "p2").TipShare, 0.01)
}

func TestServiceFeeAlwaysProportional(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Pizza", Quantity: 1, TotalPrice: 20.0},
		},
		Subtotal:   fptr(20.0),
		Tax:        fptr(2.0),
		ServiceFee: fptr(3.0),
		Tip:        fptr(5.0),
		Total:      30.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitEven, Shares: []AssignmentShare{{PersonID: "p1"}, {PersonID: "p2"}}},
	}

	breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, 1.5, byPerson(t, breakdowns, "p1").FeeShare, 1e-9)
	assert.InDelta(t, 1.5, byPerson(t, breakdowns, "p2").FeeShare, 1e-9)
	assert.InDelta(t, 30.0, sumOwed(breakdowns), 1e-9)
}

func TestRoundingReconciliation(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Bowl", Quantity: 1, TotalPrice: 10.01},
			{ID: "2", Name: "Bowl", Quantity: 1, TotalPrice: 10.01},
			{ID: "3", Name: "Bowl", Quantity: 1, TotalPrice: 10.01},
		},
		Subtotal: fptr(30.03),
		Tax:      fptr(3.33),
		Tip:      fptr(6.67),
		Total:    40.03,
	}
	group := Group{People: []Person{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
		{ID: "p3", Name: "Charlie"},
	}}
	shares := []AssignmentShare{{PersonID: "p1"}, {PersonID: "p2"}, {PersonID: "p3"}}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitEven, Shares: shares},
		{ItemID: "2", SplitMode: SplitEven, Shares: shares},
		{ItemID: "3", SplitMode: SplitEven, Shares: shares},
	}

	breakdowns, info, err := Calculate(receipt, group, assignments, DefaultOptions())
	require.NoError(t, err)

	// Every unrounded share is an awkward repeating fraction; the sum must
	// still land on the target to the cent.
	assert.InDelta(t, 40.03, sumOwed(breakdowns), 1e-9)
	assert.LessOrEqual(t, info.PenniesAdjusted, 3)
	assert.Positive(t, info.PenniesAdjusted)
}

func TestZeroTipIdempotence(t *testing.T) {
	for _, tip := range []*float64{nil, fptr(0)} {
		receipt := Receipt{
			Items:    []ReceiptItem{{ID: "1", Name: "Pizza", Quantity: 1, TotalPrice: 20.0}},
			Subtotal: fptr(20.0),
			Tip:      tip,
			Total:    20.0,
		}
		assignments := []ItemAssignments{
			{ItemID: "1", SplitMode: SplitEven, Shares: []AssignmentShare{{PersonID: "p1"}, {PersonID: "p2"}}},
		}

		breakdowns, _, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
		require.NoError(t, err)
		for _, b := range breakdowns {
			assert.Zero(t, b.TipShare)
		}
		assert.InDelta(t, 20.0, sumOwed(breakdowns), 1e-9)
	}
}

func TestSinglePersonGetsAll(t *testing.T) {
	receipt := Receipt{
		Items:    []ReceiptItem{{ID: "1", Name: "Feast", Quantity: 1, TotalPrice: 50.0}},
		Subtotal: fptr(50.0),
		Tax:      fptr(5.0),
		Tip:      fptr(10.0),
		Total:    65.0,
	}
	group := Group{People: []Person{{ID: "p1", Name: "Alice"}}}
	assignments := []ItemAssignments{
		{ItemID: "1", Shares: []AssignmentShare{{PersonID: "p1"}}},
	}

	breakdowns, _, err := Calculate(receipt, group, assignments, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, breakdowns, 1)
	assert.Equal(t, 65.0, breakdowns[0].TotalOwed)
	require.Len(t, breakdowns[0].ItemDetails, 1)
	assert.Equal(t, "full", breakdowns[0].ItemDetails[0].ShareMode)
}

// An item missing from the assignments contributes nothing to anyone's
// subtotal, but the reconciler still balances against the full receipt total:
// the unassigned cost comes back as distributed pennies.
func TestUnassignedItem(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Pizza", Quantity: 1, TotalPrice: 10.0},
			{ID: "2", Name: "Mystery", Quantity: 1, TotalPrice: 5.0},
		},
		Total: 15.0,
	}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitEven, Shares: []AssignmentShare{{PersonID: "p1"}, {PersonID: "p2"}}},
	}

	breakdowns, info, err := Calculate(receipt, twoPeople(), assignments, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, 5.0, byPerson(t, breakdowns, "p1").ItemsSubtotal, 1e-9)
	assert.InDelta(t, 5.0, byPerson(t, breakdowns, "p2").ItemsSubtotal, 1e-9)
	assert.InDelta(t, 15.0, sumOwed(breakdowns), 1e-9)
	assert.Equal(t, 500, info.PenniesAdjusted)
}

func TestEmptyGroup(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{{ID: "1", Name: "Pizza", Quantity: 1, TotalPrice: 20.0}},
		Total: 20.0,
	}

	_, _, err := Calculate(receipt, Group{}, nil, DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyGroup)
}

func TestZeroMinorUnitCurrency(t *testing.T) {
	receipt := Receipt{
		Currency: sptr("JPY"),
		Items:    []ReceiptItem{{ID: "1", Name: "Ramen", Quantity: 1, TotalPrice: 1000}},
		Total:    1000,
	}
	group := Group{People: []Person{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
		{ID: "p3", Name: "Charlie"},
	}}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitEven, Shares: []AssignmentShare{
			{PersonID: "p1"}, {PersonID: "p2"}, {PersonID: "p3"},
		}},
	}

	breakdowns, _, err := Calculate(receipt, group, assignments, DefaultOptions())
	require.NoError(t, err)

	// Yen has no minor decimals: every share is a whole number and the sum
	// is still exact.
	for _, b := range breakdowns {
		assert.Equal(t, b.TotalOwed, float64(int64(b.TotalOwed)))
	}
	assert.InDelta(t, 1000.0, sumOwed(breakdowns), 1e-9)
}

// Exact balance must hold for every combination of charge modes.
func TestExactBalanceAcrossModes(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "Curry", Quantity: 1, TotalPrice: 13.37},
			{ID: "2", Name: "Naan", Quantity: 2, TotalPrice: 7.77},
			{ID: "3", Name: "Lassi", Quantity: 1, TotalPrice: 4.19},
		},
		Subtotal:      fptr(25.33),
		DiscountTotal: fptr(-2.53),
		Tax:           fptr(2.03),
		ServiceFee:    fptr(1.99),
		Tip:           fptr(4.56),
		Total:         31.38,
	}
	group := Group{People: []Person{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
		{ID: "p3", Name: "Charlie"},
	}}
	assignments := []ItemAssignments{
		{ItemID: "1", SplitMode: SplitEven, Shares: []AssignmentShare{
			{PersonID: "p1"}, {PersonID: "p2"}, {PersonID: "p3"},
		}},
		{ItemID: "2", SplitMode: SplitQuantity, Shares: []AssignmentShare{
			{PersonID: "p1", ShareQuantity: fptr(1)},
			{PersonID: "p2", ShareQuantity: fptr(1)},
		}},
		{ItemID: "3", Shares: []AssignmentShare{{PersonID: "p3"}}},
	}

	modes := []ChargeMode{ChargeProportional, ChargeEven}
	for _, tipMode := range modes {
		for _, discountMode := range modes {
			for _, taxMode := range modes {
				options := SplitOptions{TipMode: tipMode, DiscountMode: discountMode, TaxMode: taxMode}
				breakdowns, _, err := Calculate(receipt, group, assignments, options)
				require.NoError(t, err)
				assert.InDelta(t, 31.38, sumOwed(breakdowns), 1e-9,
					"tip=%s discount=%s tax=%s", tipMode, discountMode, taxMode)
			}
		}
	}
}

// Nobody has any items but the receipt still carries a tip: proportional
// allocation has nothing to scale by and leaves shares at zero, while even
// allocation still distributes.
func TestProportionalWithZeroSubtotalSkipped(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{{ID: "1", Name: "Pizza", Quantity: 1, TotalPrice: 20.0}},
		Tip:   fptr(10.0),
		Total: 30.0,
	}

	breakdowns, _, err := Calculate(receipt, twoPeople(), nil, DefaultOptions())
	require.NoError(t, err)
	for _, b := range breakdowns {
		assert.Zero(t, b.TipShare)
	}

	options := DefaultOptions()
	options.TipMode = ChargeEven
	breakdowns, _, err = Calculate(receipt, twoPeople(), nil, options)
	require.NoError(t, err)
	for _, b := range breakdowns {
		assert.InDelta(t, 5.0, b.TipShare, 1e-9)
	}
}

func TestItemDetailOrdering(t *testing.T) {
	receipt := Receipt{
		Items: []ReceiptItem{
			{ID: "1", Name: "First", Quantity: 1, TotalPrice: 5.0},
			{ID: "2", Name: "Second", Quantity: 1, TotalPrice: 5.0},
		},
		Total: 10.0,
	}
	group := Group{People: []Person{{ID: "p1", Name: "Alice"}}}
	assignments := []ItemAssignments{
		{ItemID: "2", Shares: []AssignmentShare{{PersonID: "p1"}}},
		{ItemID: "1", Shares: []AssignmentShare{{PersonID: "p1"}}},
	}

	breakdowns, _, err := Calculate(receipt, group, assignments, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, breakdowns[0].ItemDetails, 2)
	// Details follow receipt item order, not assignment order.
	assert.Equal(t, "First", breakdowns[0].ItemDetails[0].ItemName)
	assert.Equal(t, "Second", breakdowns[0].ItemDetails[1].ItemName)
}
