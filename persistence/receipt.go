package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"instasplit/splitting"
)

// ReceiptRecord is a stored receipt with its line items.
type ReceiptRecord struct {
	ID            string
	MerchantName  *string
	Currency      *string
	Subtotal      *float64
	Tax           *float64
	ServiceFee    *float64
	DiscountTotal *float64
	Tip           *float64
	Total         float64
	ImageURL      *string
	OCRText       *string
	CreatedAt     time.Time
	Items         []ItemRecord
}

// ItemRecord is a stored receipt line item.
type ItemRecord struct {
	ID         string
	ReceiptID  string
	Name       string
	Quantity   float64
	UnitPrice  *float64
	TotalPrice float64
	Category   string
}

// SaveReceipt persists a parsed receipt and its items in one transaction,
// assigning fresh ULIDs throughout. The input item ids (from extraction) are
// replaced with the stored ones.
func (c *Client) SaveReceipt(ctx context.Context, receipt splitting.Receipt, imageURL, ocrText *string) (*ReceiptRecord, error) {
	receiptID := ulid.Make().String()

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO receipts (id, merchant_name, currency, subtotal, tax, service_fee, discount_total, tip, total, image_url, ocr_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
		RETURNING created_at
	`, receiptID, receipt.MerchantName, receipt.Currency, receipt.Subtotal, receipt.Tax,
		receipt.ServiceFee, receipt.DiscountTotal, receipt.Tip, receipt.Total, imageURL, ocrText).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert receipt: %w", err)
	}

	items := make([]ItemRecord, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		itemID := ulid.Make().String()
		_, err := tx.Exec(ctx, `
			INSERT INTO receipt_items (id, receipt_id, name, quantity, unit_price, total_price, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, itemID, receiptID, item.Name, item.Quantity, item.UnitPrice, item.TotalPrice, item.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to insert receipt item: %w", err)
		}

		items = append(items, ItemRecord{
			ID:         itemID,
			ReceiptID:  receiptID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Category:   item.Category,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &ReceiptRecord{
		ID:            receiptID,
		MerchantName:  receipt.MerchantName,
		Currency:      receipt.Currency,
		Subtotal:      receipt.Subtotal,
		Tax:           receipt.Tax,
		ServiceFee:    receipt.ServiceFee,
		DiscountTotal: receipt.DiscountTotal,
		Tip:           receipt.Tip,
		Total:         receipt.Total,
		ImageURL:      imageURL,
		OCRText:       ocrText,
		CreatedAt:     createdAt,
		Items:         items,
	}, nil
}

// GetReceipt loads one receipt and its items.
func (c *Client) GetReceipt(ctx context.Context, receiptID string) (*ReceiptRecord, error) {
	var record ReceiptRecord
	err := c.db.QueryRow(ctx, `
		SELECT id, merchant_name, currency, subtotal, tax, service_fee, discount_total, tip, total, image_url, ocr_text, created_at
		FROM receipts
		WHERE id = $1
	`, receiptID).Scan(&record.ID, &record.MerchantName, &record.Currency, &record.Subtotal,
		&record.Tax, &record.ServiceFee, &record.DiscountTotal, &record.Tip, &record.Total,
		&record.ImageURL, &record.OCRText, &record.CreatedAt)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("receipt %s: %w", receiptID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	items, err := c.GetReceiptItems(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	record.Items = items

	return &record, nil
}

// GetReceiptItems returns the receipt's items in insertion (id) order.
func (c *Client) GetReceiptItems(ctx context.Context, receiptID string) ([]ItemRecord, error) {
	rows, err := c.db.Query(ctx, `
		SELECT id, receipt_id, name, quantity, unit_price, total_price, category
		FROM receipt_items
		WHERE receipt_id = $1
		ORDER BY id ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt items: %w", err)
	}
	defer rows.Close()

	items := make([]ItemRecord, 0)
	for rows.Next() {
		var item ItemRecord
		err := rows.Scan(&item.ID, &item.ReceiptID, &item.Name, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt items: %w", err)
	}

	return items, nil
}

// ReceiptExists checks if a receipt exists.
func (c *Client) ReceiptExists(ctx context.Context, receiptID string) (bool, error) {
	var exists bool
	err := c.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM receipts WHERE id = $1)", receiptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check receipt existence: %w", err)
	}
	return exists, nil
}

// ChargePatch carries optional updates to a receipt's charge fields. Nil
// fields are left unchanged.
type ChargePatch struct {
	Subtotal      *float64
	Tax           *float64
	ServiceFee    *float64
	DiscountTotal *float64
	Tip           *float64
	Total         *float64
}

// UpdateReceiptCharges applies the non-nil fields of patch.
func (c *Client) UpdateReceiptCharges(ctx context.Context, receiptID string, patch ChargePatch) error {
	var setClauses []string
	var args []any
	add := func(column string, value *float64) {
		if value != nil {
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)+1))
			args = append(args, *value)
		}
	}
	add("subtotal", patch.Subtotal)
	add("tax", patch.Tax)
	add("service_fee", patch.ServiceFee)
	add("discount_total", patch.DiscountTotal)
	add("tip", patch.Tip)
	add("total", patch.Total)

	if len(setClauses) == 0 {
		return fmt.Errorf("at least one charge field must be provided")
	}

	args = append(args, receiptID)
	query := fmt.Sprintf("UPDATE receipts SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))
	result, err := c.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update receipt charges: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("receipt %s: %w", receiptID, ErrNotFound)
	}
	return nil
}

// ToReceipt converts a stored record into the engine's receipt type.
func (r *ReceiptRecord) ToReceipt() splitting.Receipt {
	items := make([]splitting.ReceiptItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, splitting.ReceiptItem{
			ID:         item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Category:   item.Category,
		})
	}
	return splitting.Receipt{
		MerchantName:  r.MerchantName,
		Currency:      r.Currency,
		Items:         items,
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		ServiceFee:    r.ServiceFee,
		DiscountTotal: r.DiscountTotal,
		Tip:           r.Tip,
		Total:         r.Total,
	}
}
