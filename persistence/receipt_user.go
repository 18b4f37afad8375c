package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"instasplit/splitting"
)

// UserRecord is one person attached to a receipt.
type UserRecord struct {
	ID        string
	ReceiptID string
	Name      string
	CreatedAt time.Time
}

// AssignmentRecord is one stored share of an item. The split mode is uniform
// per item; it is stored denormalized on every share row.
type AssignmentRecord struct {
	ID            string
	ReceiptUserID string
	ReceiptItemID string
	SplitMode     string
	ShareQuantity *float64
	ShareFraction *float64
	CreatedAt     time.Time
}

// AddUserToReceipt attaches a person to a receipt.
func (c *Client) AddUserToReceipt(ctx context.Context, receiptID, name string) (*UserRecord, error) {
	userID := ulid.Make().String()

	var createdAt time.Time
	err := c.db.QueryRow(ctx, `
		INSERT INTO receipt_users (id, receipt_id, name, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING created_at
	`, userID, receiptID, name).Scan(&createdAt)
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return nil, fmt.Errorf("receipt %s: %w", receiptID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to insert receipt user: %w", err)
	}

	return &UserRecord{
		ID:        userID,
		ReceiptID: receiptID,
		Name:      name,
		CreatedAt: createdAt,
	}, nil
}

// GetReceiptUsers returns the receipt's people in join order.
func (c *Client) GetReceiptUsers(ctx context.Context, receiptID string) ([]UserRecord, error) {
	rows, err := c.db.Query(ctx, `
		SELECT id, receipt_id, name, created_at
		FROM receipt_users
		WHERE receipt_id = $1
		ORDER BY created_at ASC, id ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt users: %w", err)
	}
	defer rows.Close()

	users := make([]UserRecord, 0)
	for rows.Next() {
		var user UserRecord
		if err := rows.Scan(&user.ID, &user.ReceiptID, &user.Name, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt user: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt users: %w", err)
	}

	return users, nil
}

// SetItemAssignment replaces the full set of shares for one item in a single
// transaction. An empty share list clears the assignment. Every share must
// reference a user on the same receipt as the item.
func (c *Client) SetItemAssignment(ctx context.Context, receiptID string, assignment splitting.ItemAssignments) error {
	var itemReceiptID string
	err := c.db.QueryRow(ctx, "SELECT receipt_id FROM receipt_items WHERE id = $1", assignment.ItemID).Scan(&itemReceiptID)
	if err != nil {
		if notFound(err) {
			return fmt.Errorf("item %s: %w", assignment.ItemID, ErrNotFound)
		}
		return fmt.Errorf("failed to look up item: %w", err)
	}
	if itemReceiptID != receiptID {
		return fmt.Errorf("item %s: %w", assignment.ItemID, ErrNotFound)
	}

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM receipt_user_items WHERE receipt_item_id = $1", assignment.ItemID); err != nil {
		return fmt.Errorf("failed to clear item assignment: %w", err)
	}

	mode := string(assignment.SplitMode)
	if mode == "" {
		mode = string(splitting.SplitEven)
	}

	for _, share := range assignment.Shares {
		var userReceiptID string
		err := tx.QueryRow(ctx, "SELECT receipt_id FROM receipt_users WHERE id = $1", share.PersonID).Scan(&userReceiptID)
		if err != nil {
			if notFound(err) {
				return fmt.Errorf("user %s: %w", share.PersonID, ErrNotFound)
			}
			return fmt.Errorf("failed to look up user: %w", err)
		}
		if userReceiptID != receiptID {
			return fmt.Errorf("user %s: %w", share.PersonID, ErrNotFound)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO receipt_user_items (id, receipt_user_id, receipt_item_id, split_mode, share_quantity, share_fraction, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		`, ulid.Make().String(), share.PersonID, assignment.ItemID, mode, share.ShareQuantity, share.ShareFraction)
		if err != nil {
			return fmt.Errorf("failed to insert item share: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetReceiptAssignments loads every share row for the receipt and groups them
// per item, in share insertion order.
func (c *Client) GetReceiptAssignments(ctx context.Context, receiptID string) ([]splitting.ItemAssignments, error) {
	rows, err := c.db.Query(ctx, `
		SELECT rui.receipt_item_id, rui.receipt_user_id, rui.split_mode, rui.share_quantity, rui.share_fraction
		FROM receipt_user_items rui
		JOIN receipt_items ri ON ri.id = rui.receipt_item_id
		WHERE ri.receipt_id = $1
		ORDER BY rui.receipt_item_id ASC, rui.created_at ASC, rui.id ASC
	`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt assignments: %w", err)
	}
	defer rows.Close()

	var assignments []splitting.ItemAssignments
	byItem := make(map[string]int)
	for rows.Next() {
		var itemID, userID, mode string
		var shareQty, shareFrac *float64
		if err := rows.Scan(&itemID, &userID, &mode, &shareQty, &shareFrac); err != nil {
			return nil, fmt.Errorf("failed to scan receipt assignment: %w", err)
		}

		idx, ok := byItem[itemID]
		if !ok {
			idx = len(assignments)
			byItem[itemID] = idx
			assignments = append(assignments, splitting.ItemAssignments{
				ItemID:    itemID,
				SplitMode: splitting.SplitMode(mode),
			})
		}
		assignments[idx].Shares = append(assignments[idx].Shares, splitting.AssignmentShare{
			PersonID:      userID,
			ShareQuantity: shareQty,
			ShareFraction: shareFrac,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt assignments: %w", err)
	}

	return assignments, nil
}

// LoadSplitInputs assembles everything the split engine needs for a stored
// receipt: the receipt itself, its group, and the grouped assignments.
func (c *Client) LoadSplitInputs(ctx context.Context, receiptID string) (splitting.Receipt, splitting.Group, []splitting.ItemAssignments, error) {
	record, err := c.GetReceipt(ctx, receiptID)
	if err != nil {
		return splitting.Receipt{}, splitting.Group{}, nil, err
	}

	users, err := c.GetReceiptUsers(ctx, receiptID)
	if err != nil {
		return splitting.Receipt{}, splitting.Group{}, nil, err
	}
	people := make([]splitting.Person, 0, len(users))
	for _, user := range users {
		people = append(people, splitting.Person{ID: user.ID, Name: user.Name})
	}

	assignments, err := c.GetReceiptAssignments(ctx, receiptID)
	if err != nil {
		return splitting.Receipt{}, splitting.Group{}, nil, err
	}

	return record.ToReceipt(), splitting.Group{People: people}, assignments, nil
}
