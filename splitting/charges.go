package splitting

import "github.com/shopspring/decimal"

// The charge allocators each distribute one receipt-level amount across the
// group, reading the items-subtotal snapshot produced by allocateItems. Each
// pass writes exactly one share field and leaves everything else untouched,
// so the four passes are order-independent.

func (e *Engine) allocateDiscount(accounts map[string]*account) {
	e.allocateCharge(accounts, e.receipt.DiscountTotal, e.options.DiscountMode, func(a *account, v decimal.Decimal) {
		a.discountShare = v
	})
}

func (e *Engine) allocateTax(accounts map[string]*account) {
	e.allocateCharge(accounts, e.receipt.Tax, e.options.TaxMode, func(a *account, v decimal.Decimal) {
		a.taxShare = v
	})
}

// allocateFee is always proportional; there is no even option for service fees.
func (e *Engine) allocateFee(accounts map[string]*account) {
	e.allocateCharge(accounts, e.receipt.ServiceFee, ChargeProportional, func(a *account, v decimal.Decimal) {
		a.feeShare = v
	})
}

func (e *Engine) allocateTip(accounts map[string]*account) {
	e.allocateCharge(accounts, e.receipt.Tip, e.options.TipMode, func(a *account, v decimal.Decimal) {
		a.tipShare = v
	})
}

// allocateCharge distributes amount across the group. A nil or zero amount
// leaves every share at zero. Even mode divides by the group size, including
// people with no items. Proportional mode scales by items subtotal and is
// skipped when the subtotal sum is zero (nothing sane to be proportional to).
func (e *Engine) allocateCharge(accounts map[string]*account, amount *float64, mode ChargeMode, set func(*account, decimal.Decimal)) {
	if amount == nil || *amount == 0 {
		return
	}
	charge := decimal.NewFromFloat(*amount)

	if mode == ChargeEven {
		perPerson := charge.Div(decimal.NewFromInt(int64(len(e.group.People))))
		for _, acct := range accounts {
			set(acct, perPerson)
		}
		return
	}

	totalItems := decimal.Zero
	for _, acct := range accounts {
		totalItems = totalItems.Add(acct.itemsSubtotal)
	}
	if !totalItems.IsPositive() {
		return
	}
	for _, acct := range accounts {
		proportion := acct.itemsSubtotal.Div(totalItems)
		set(acct, proportion.Mul(charge))
	}
}
