package splitting

import "github.com/shopspring/decimal"

// allocateItems distributes each item's total price among its assigned
// people. Items without an assignment (or with no shares) contribute nothing
// to anyone: unassigned items are excluded from the split, not
// auto-distributed.
func (e *Engine) allocateItems(accounts map[string]*account) {
	for _, item := range e.receipt.Items {
		assignment, ok := e.assignments[item.ID]
		if !ok || len(assignment.Shares) == 0 {
			continue
		}

		itemTotal := decimal.NewFromFloat(item.TotalPrice)
		shares := assignment.Shares

		if len(shares) == 1 {
			acct, ok := accounts[shares[0].PersonID]
			if !ok {
				continue
			}
			acct.itemsSubtotal = acct.itemsSubtotal.Add(itemTotal)
			acct.details = append(acct.details, ItemDetail{
				ItemName:    item.Name,
				ItemTotal:   itemTotal.InexactFloat64(),
				PersonShare: itemTotal.InexactFloat64(),
				ShareMode:   "full",
			})
			continue
		}

		switch assignment.SplitMode {
		case SplitQuantity:
			e.splitByQuantity(item, shares, itemTotal, accounts)
		case SplitFraction:
			e.splitByFraction(item, shares, itemTotal, accounts)
		default:
			e.splitEvenly(item, shares, itemTotal, accounts)
		}
	}
}

func (e *Engine) splitEvenly(item ReceiptItem, shares []AssignmentShare, itemTotal decimal.Decimal, accounts map[string]*account) {
	numPeople := len(shares)
	shareAmount := itemTotal.Div(decimal.NewFromInt(int64(numPeople)))

	for _, share := range shares {
		acct, ok := accounts[share.PersonID]
		if !ok {
			continue
		}
		acct.itemsSubtotal = acct.itemsSubtotal.Add(shareAmount)
		acct.details = append(acct.details, ItemDetail{
			ItemName:    item.Name,
			ItemTotal:   itemTotal.InexactFloat64(),
			PersonShare: shareAmount.InexactFloat64(),
			ShareMode:   "even",
			NumPeople:   numPeople,
		})
	}
}

func (e *Engine) splitByQuantity(item ReceiptItem, shares []AssignmentShare, itemTotal decimal.Decimal, accounts map[string]*account) {
	totalQty := decimal.Zero
	for _, share := range shares {
		totalQty = totalQty.Add(shareQuantity(share))
	}

	if totalQty.IsZero() {
		e.splitEvenly(item, shares, itemTotal, accounts)
		return
	}

	for _, share := range shares {
		acct, ok := accounts[share.PersonID]
		if !ok {
			continue
		}
		qty := shareQuantity(share)
		shareAmount := qty.Div(totalQty).Mul(itemTotal)
		acct.itemsSubtotal = acct.itemsSubtotal.Add(shareAmount)

		qtyF := qty.InexactFloat64()
		totalQtyF := totalQty.InexactFloat64()
		acct.details = append(acct.details, ItemDetail{
			ItemName:      item.Name,
			ItemTotal:     itemTotal.InexactFloat64(),
			PersonShare:   shareAmount.InexactFloat64(),
			ShareMode:     "quantity",
			Quantity:      &qtyF,
			TotalQuantity: &totalQtyF,
		})
	}
}

// splitByFraction multiplies the item price by each share's fraction.
// Fractions are deliberately not normalized: if they sum below 1 the
// remainder of the item is simply not charged to anyone, and if they sum
// above 1 the item is over-allocated. Callers that want a strict sum must
// enforce it before building the assignment.
func (e *Engine) splitByFraction(item ReceiptItem, shares []AssignmentShare, itemTotal decimal.Decimal, accounts map[string]*account) {
	for _, share := range shares {
		acct, ok := accounts[share.PersonID]
		if !ok {
			continue
		}
		fraction := decimal.Zero
		if share.ShareFraction != nil {
			fraction = decimal.NewFromFloat(*share.ShareFraction)
		}
		shareAmount := fraction.Mul(itemTotal)
		acct.itemsSubtotal = acct.itemsSubtotal.Add(shareAmount)

		fractionF := fraction.InexactFloat64()
		acct.details = append(acct.details, ItemDetail{
			ItemName:    item.Name,
			ItemTotal:   itemTotal.InexactFloat64(),
			PersonShare: shareAmount.InexactFloat64(),
			ShareMode:   "fraction",
			Fraction:    &fractionF,
		})
	}
}

func shareQuantity(share AssignmentShare) decimal.Decimal {
	if share.ShareQuantity == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*share.ShareQuantity)
}
