package splitting

import (
	"errors"

	"github.com/shopspring/decimal"

	"instasplit/money"
)

// ErrEmptyGroup is returned when a split is requested for a group with no
// people. The reconciler cannot distribute pennies over an empty group, so
// this is a hard precondition, not a degenerate-but-valid input.
var ErrEmptyGroup = errors.New("group must contain at least one person")

// Engine calculates a bill split for one receipt/group/assignment graph.
type Engine struct {
	receipt     Receipt
	group       Group
	assignments map[string]ItemAssignments
	options     SplitOptions
}

// account accumulates one person's unrounded shares across the stages.
type account struct {
	itemsSubtotal decimal.Decimal
	discountShare decimal.Decimal
	taxShare      decimal.Decimal
	feeShare      decimal.Decimal
	tipShare      decimal.Decimal
	details       []ItemDetail
}

func (a *account) unroundedTotal() decimal.Decimal {
	return a.itemsSubtotal.
		Add(a.discountShare).
		Add(a.taxShare).
		Add(a.feeShare).
		Add(a.tipShare)
}

// NewEngine builds an engine. Assignments are indexed by item id; when the
// same item appears twice the later entry wins.
func NewEngine(receipt Receipt, group Group, assignments []ItemAssignments, options SplitOptions) *Engine {
	byItem := make(map[string]ItemAssignments, len(assignments))
	for _, a := range assignments {
		byItem[a.ItemID] = a
	}
	return &Engine{
		receipt:     receipt,
		group:       group,
		assignments: byItem,
		options:     options,
	}
}

// Calculate runs the three stages and returns one breakdown per person, in
// group order, plus reconciliation diagnostics. The sum of all TotalOwed
// values equals the receipt total exactly at the currency's minor-unit scale.
func (e *Engine) Calculate() ([]PersonBreakdown, ReconciliationInfo, error) {
	if len(e.group.People) == 0 {
		return nil, ReconciliationInfo{}, ErrEmptyGroup
	}

	accounts := make(map[string]*account, len(e.group.People))
	for _, p := range e.group.People {
		accounts[p.ID] = &account{}
	}

	e.allocateItems(accounts)
	e.allocateDiscount(accounts)
	e.allocateTax(accounts)
	e.allocateFee(accounts)
	e.allocateTip(accounts)

	reconciled, info := e.reconcile(accounts)

	currency := e.receipt.Currency
	breakdowns := make([]PersonBreakdown, 0, len(e.group.People))
	for _, p := range e.group.People {
		acct := accounts[p.ID]
		breakdowns = append(breakdowns, PersonBreakdown{
			PersonID:      p.ID,
			PersonName:    p.Name,
			ItemsSubtotal: acct.itemsSubtotal.InexactFloat64(),
			DiscountShare: acct.discountShare.InexactFloat64(),
			TaxShare:      acct.taxShare.InexactFloat64(),
			FeeShare:      acct.feeShare.InexactFloat64(),
			TipShare:      acct.tipShare.InexactFloat64(),
			TotalOwed:     money.RoundDecimal(reconciled[p.ID], currency).InexactFloat64(),
			ItemDetails:   acct.details,
		})
	}

	return breakdowns, info, nil
}

// Calculate is a convenience wrapper over NewEngine().Calculate().
func Calculate(receipt Receipt, group Group, assignments []ItemAssignments, options SplitOptions) ([]PersonBreakdown, ReconciliationInfo, error) {
	return NewEngine(receipt, group, assignments, options).Calculate()
}
