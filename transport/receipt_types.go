package transport

import (
	"instasplit/money"
	"instasplit/splitting"
)

// defaultUSD is used when a receipt has no stored currency
var defaultUSD = "USD"

// ReceiptItemDTO represents a single item in a receipt response
type ReceiptItemDTO struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Quantity   float64       `json:"quantity"`
	UnitPrice  *money.Amount `json:"unit_price,omitempty"`
	TotalPrice money.Amount  `json:"total_price"`
	Category   string        `json:"category,omitempty"`
}

// ExtractionInfo reports which pipeline stage produced the receipt and how
// confident it was.
type ExtractionInfo struct {
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// UploadReceiptResponse represents the response for receipt image upload
type UploadReceiptResponse struct {
	ReceiptID     string           `json:"receipt_id"`
	ImageURL      string           `json:"image_url"`
	MerchantName  *string          `json:"merchant_name,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Items         []ReceiptItemDTO `json:"items"`
	Subtotal      *money.Amount    `json:"subtotal,omitempty"`
	Tax           *money.Amount    `json:"tax,omitempty"`
	ServiceFee    *money.Amount    `json:"service_fee,omitempty"`
	DiscountTotal *money.Amount    `json:"discount_total,omitempty"`
	Tip           *money.Amount    `json:"tip,omitempty"`
	Total         money.Amount     `json:"total"`
	OCRText       *string          `json:"ocr_text,omitempty"`
	Extraction    ExtractionInfo   `json:"extraction"`
}

// AddUserToReceiptRequest represents the request body for adding a user to a receipt
type AddUserToReceiptRequest struct {
	Name string `json:"name"`
}

// ReceiptUserDTO represents a user attached to a receipt
type ReceiptUserDTO struct {
	ID        string `json:"id"`
	ReceiptID string `json:"receipt_id"`
	Name      string `json:"name"`
}

// AddUserToReceiptResponse represents the response after adding a user to a receipt
type AddUserToReceiptResponse struct {
	Message string         `json:"message"`
	User    ReceiptUserDTO `json:"user"`
}

// GetReceiptUsersResponse represents the response for GET receipt users
type GetReceiptUsersResponse struct {
	Users []ReceiptUserDTO `json:"users"`
}

// GetReceiptItemsResponse represents the response for GET receipt items
type GetReceiptItemsResponse struct {
	Items []ReceiptItemDTO `json:"items"`
}

// AssignShareInput is one person's stake in an item assignment request
type AssignShareInput struct {
	UserID        string   `json:"user_id"`
	ShareQuantity *float64 `json:"share_quantity,omitempty"`
	ShareFraction *float64 `json:"share_fraction,omitempty"`
}

// AssignItemRequest replaces the full set of shares for one item.
// An empty shares list clears the assignment.
type AssignItemRequest struct {
	SplitMode string             `json:"split_mode"`
	Shares    []AssignShareInput `json:"shares"`
}

// AssignItemResponse represents the response after assigning an item
type AssignItemResponse struct {
	Message   string `json:"message"`
	ItemID    string `json:"item_id"`
	SplitMode string `json:"split_mode"`
	NumShares int    `json:"num_shares"`
}

// AssignmentDTO represents one item's stored assignment
type AssignmentDTO struct {
	ItemID    string             `json:"item_id"`
	SplitMode string             `json:"split_mode"`
	Shares    []AssignShareInput `json:"shares"`
}

// GetReceiptResponse represents the full get receipt response
type GetReceiptResponse struct {
	ReceiptID     string           `json:"receipt_id"`
	MerchantName  *string          `json:"merchant_name,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Items         []ReceiptItemDTO `json:"items"`
	Users         []ReceiptUserDTO `json:"users"`
	Assignments   []AssignmentDTO  `json:"assignments"`
	Subtotal      *money.Amount    `json:"subtotal,omitempty"`
	Tax           *money.Amount    `json:"tax,omitempty"`
	ServiceFee    *money.Amount    `json:"service_fee,omitempty"`
	DiscountTotal *money.Amount    `json:"discount_total,omitempty"`
	Tip           *money.Amount    `json:"tip,omitempty"`
	Total         money.Amount     `json:"total"`
	ImageURL      *string          `json:"image_url,omitempty"`
}

// PatchReceiptRequest represents the request body for updating receipt charges
type PatchReceiptRequest struct {
	Subtotal      *float64 `json:"subtotal"`
	Tax           *float64 `json:"tax"`
	ServiceFee    *float64 `json:"service_fee"`
	DiscountTotal *float64 `json:"discount_total"`
	Tip           *float64 `json:"tip"`
	Total         *float64 `json:"total"`
}

// SplitItemInput is one receipt line item in a standalone split request
type SplitItemInput struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Quantity   float64  `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	TotalPrice float64  `json:"total_price"`
	Category   string   `json:"category,omitempty"`
}

// SplitReceiptInput is the receipt portion of a standalone split request
type SplitReceiptInput struct {
	MerchantName  *string          `json:"merchant_name,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	Items         []SplitItemInput `json:"items"`
	Subtotal      *float64         `json:"subtotal,omitempty"`
	Tax           *float64         `json:"tax,omitempty"`
	ServiceFee    *float64         `json:"service_fee,omitempty"`
	DiscountTotal *float64         `json:"discount_total,omitempty"`
	Tip           *float64         `json:"tip,omitempty"`
	Total         float64          `json:"total"`
}

// SplitPersonInput is one group member in a standalone split request
type SplitPersonInput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SplitAssignmentInput maps an item to its shares in a standalone split request
type SplitAssignmentInput struct {
	ItemID    string             `json:"item_id"`
	SplitMode string             `json:"split_mode,omitempty"`
	Shares    []AssignShareInput `json:"shares"`
}

// SplitOptionsInput selects the charge allocation modes; empty fields default
// to proportional.
type SplitOptionsInput struct {
	TipMode      string `json:"tip_mode,omitempty"`
	DiscountMode string `json:"discount_mode,omitempty"`
	TaxMode      string `json:"tax_mode,omitempty"`
}

// SplitRequest is the body of POST /split/calculate
type SplitRequest struct {
	Receipt     SplitReceiptInput      `json:"receipt"`
	People      []SplitPersonInput     `json:"people"`
	Assignments []SplitAssignmentInput `json:"assignments"`
	Options     SplitOptionsInput      `json:"options"`
}

// PersonBreakdownDTO is the per-person result of a split
type PersonBreakdownDTO struct {
	PersonID      string                 `json:"person_id"`
	PersonName    string                 `json:"person_name"`
	ItemsSubtotal money.Amount           `json:"items_subtotal"`
	DiscountShare money.Amount           `json:"discount_share"`
	TaxShare      money.Amount           `json:"tax_share"`
	FeeShare      money.Amount           `json:"fee_share"`
	TipShare      money.Amount           `json:"tip_share"`
	TotalOwed     money.Amount           `json:"total_owed"`
	ItemDetails   []splitting.ItemDetail `json:"item_details"`
}

// ReconciliationDTO reports the rounding adjustment the engine applied
type ReconciliationDTO struct {
	TargetTotal     float64 `json:"target_total"`
	CalculatedTotal float64 `json:"calculated_total"`
	Difference      float64 `json:"difference"`
	PenniesAdjusted int     `json:"pennies_adjusted"`
}

// SplitResponse is the result of a split calculation
type SplitResponse struct {
	Breakdowns        []PersonBreakdownDTO `json:"breakdowns"`
	Reconciliation    ReconciliationDTO    `json:"reconciliation"`
	CalculationTimeMS float64              `json:"calculation_time_ms"`
}
