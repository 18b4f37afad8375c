// Package splitting computes per-person bill splits with exact reconciliation.
//
// The engine runs three stages over an in-memory receipt/group/assignment
// graph: item allocation, receipt-level charge allocation (discount, tax,
// service fee, tip), and a final reconciliation pass that rounds to the
// currency's minor unit and distributes leftover pennies so the sum of all
// shares equals the receipt total exactly. All intermediate arithmetic uses
// shopspring/decimal; nothing is rounded before the reconciler.
//
// The engine is a pure computation: no I/O, no shared state across calls.
// It is safe to call concurrently as long as each call owns its inputs.
package splitting

// SplitMode controls how an item's price is divided among its shares.
type SplitMode string

const (
	// SplitEven divides the item price equally among the assigned people.
	SplitEven SplitMode = "even"
	// SplitQuantity divides proportionally to each share's quantity.
	SplitQuantity SplitMode = "quantity"
	// SplitFraction multiplies the item price by each share's fraction.
	SplitFraction SplitMode = "fraction"
)

// ChargeMode controls how a receipt-level charge (discount, tax, tip) is
// allocated across the group.
type ChargeMode string

const (
	// ChargeProportional allocates in proportion to each person's item subtotal.
	ChargeProportional ChargeMode = "proportional"
	// ChargeEven allocates equally among all people in the group.
	ChargeEven ChargeMode = "even"
)

// ReceiptItem is a single line item. TotalPrice is authoritative; UnitPrice
// is informational only.
type ReceiptItem struct {
	ID         string
	Name       string
	Quantity   float64
	UnitPrice  *float64
	TotalPrice float64
	Category   string
}

// Receipt is the validated input produced upstream (OCR/parsing/LLM). Total
// is the reconciliation target; the engine reproduces it exactly and never
// re-derives it from the other fields.
type Receipt struct {
	MerchantName  *string
	Currency      *string
	Items         []ReceiptItem
	Subtotal      *float64
	Tax           *float64
	ServiceFee    *float64
	DiscountTotal *float64 // negative by convention
	Tip           *float64
	Total         float64
}

// Person is one member of the group.
type Person struct {
	ID   string
	Name string
}

// Group is the set of people splitting the bill. IDs must be unique.
type Group struct {
	People []Person
}

// AssignmentShare is one person's stake in an item. ShareQuantity applies in
// quantity mode, ShareFraction in fraction mode; both are ignored otherwise.
type AssignmentShare struct {
	PersonID      string
	ShareQuantity *float64
	ShareFraction *float64
}

// ItemAssignments maps an item to its shares. SplitMode applies to the whole
// item: one policy per item, not one per share. Items with no assignment (or
// no shares) are excluded from the split entirely.
type ItemAssignments struct {
	ItemID    string
	SplitMode SplitMode
	Shares    []AssignmentShare
}

// SplitOptions selects the allocation policy per receipt-level charge.
// The service fee is always proportional and has no option.
type SplitOptions struct {
	TipMode      ChargeMode
	DiscountMode ChargeMode
	TaxMode      ChargeMode
}

// DefaultOptions returns proportional allocation for every charge.
func DefaultOptions() SplitOptions {
	return SplitOptions{
		TipMode:      ChargeProportional,
		DiscountMode: ChargeProportional,
		TaxMode:      ChargeProportional,
	}
}

// ItemDetail records how one item contributed to one person's subtotal.
type ItemDetail struct {
	ItemName      string   `json:"item_name"`
	ItemTotal     float64  `json:"item_total"`
	PersonShare   float64  `json:"person_share"`
	ShareMode     string   `json:"share_mode"`
	NumPeople     int      `json:"num_people,omitempty"`
	Quantity      *float64 `json:"quantity,omitempty"`
	TotalQuantity *float64 `json:"total_quantity,omitempty"`
	Fraction      *float64 `json:"fraction,omitempty"`
}

// PersonBreakdown is the final result for one person. Immutable once built.
type PersonBreakdown struct {
	PersonID      string
	PersonName    string
	ItemsSubtotal float64
	DiscountShare float64
	TaxShare      float64
	FeeShare      float64
	TipShare      float64
	TotalOwed     float64
	ItemDetails   []ItemDetail
}

// ReconciliationInfo reports how far the rounded totals were from the receipt
// total before penny redistribution. CalculatedTotal is the pre-adjustment
// sum; Difference is target minus calculated.
type ReconciliationInfo struct {
	TargetTotal     float64
	CalculatedTotal float64
	Difference      float64
	PenniesAdjusted int
}
