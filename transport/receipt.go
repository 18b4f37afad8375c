package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"instasplit/money"
	"instasplit/persistence"
	"instasplit/splitting"
)

// ReceiptHandler dispatches GET and PATCH on /receipts/{receipt_id}.
func (t *Transport) ReceiptHandler(w http.ResponseWriter, r *http.Request) {
	receiptID, ok := ParseReceiptIDPath(r.URL.Path)
	if !ok {
		t.writeError(w, NewValidationError("path", "invalid URL path format"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		t.getReceipt(w, r, receiptID)
	case http.MethodPatch:
		t.patchReceipt(w, r, receiptID)
	default:
		t.writeError(w, NewInvalidMethodError(r.Method))
	}
}

func (t *Transport) getReceipt(w http.ResponseWriter, r *http.Request, receiptID string) {
	ctx := r.Context()

	record, err := t.persistenceClient.GetReceipt(ctx, receiptID)
	if err != nil {
		t.writeError(w, err)
		return
	}
	users, err := t.persistenceClient.GetReceiptUsers(ctx, receiptID)
	if err != nil {
		t.writeError(w, err)
		return
	}
	assignments, err := t.persistenceClient.GetReceiptAssignments(ctx, receiptID)
	if err != nil {
		t.writeError(w, err)
		return
	}

	currency := record.Currency
	if currency == nil {
		currency = &defaultUSD
	}

	response := GetReceiptResponse{
		ReceiptID:     record.ID,
		MerchantName:  record.MerchantName,
		Currency:      record.Currency,
		Items:         toItemDTOs(record.Items, currency),
		Users:         toUserDTOs(users),
		Assignments:   toAssignmentDTOs(assignments),
		Subtotal:      money.Ptr(record.Subtotal, currency),
		Tax:           money.Ptr(record.Tax, currency),
		ServiceFee:    money.Ptr(record.ServiceFee, currency),
		DiscountTotal: money.Ptr(record.DiscountTotal, currency),
		Tip:           money.Ptr(record.Tip, currency),
		Total:         money.NewAmount(record.Total, currency),
		ImageURL:      record.ImageURL,
	}

	t.writeJSON(w, http.StatusOK, response)
}

func (t *Transport) patchReceipt(w http.ResponseWriter, r *http.Request, receiptID string) {
	var req PatchReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.writeError(w, NewValidationError("body", fmt.Sprintf("failed to parse request body: %v", err)))
		return
	}

	patch := persistence.ChargePatch{
		Subtotal:      req.Subtotal,
		Tax:           req.Tax,
		ServiceFee:    req.ServiceFee,
		DiscountTotal: req.DiscountTotal,
		Tip:           req.Tip,
		Total:         req.Total,
	}
	if patch == (persistence.ChargePatch{}) {
		t.writeError(w, NewValidationError("body", "at least one charge field is required"))
		return
	}

	if err := t.persistenceClient.UpdateReceiptCharges(r.Context(), receiptID, patch); err != nil {
		t.writeError(w, err)
		return
	}

	t.getReceipt(w, r, receiptID)
}

// ReceiptUsersHandler dispatches POST and GET on /receipts/{receipt_id}/users.
func (t *Transport) ReceiptUsersHandler(w http.ResponseWriter, r *http.Request) {
	receiptID, ok := ParseReceiptUsersPath(r.URL.Path)
	if !ok {
		t.writeError(w, NewValidationError("path", "invalid URL path format"))
		return
	}

	switch r.Method {
	case http.MethodPost:
		t.addUserToReceipt(w, r, receiptID)
	case http.MethodGet:
		t.getReceiptUsers(w, r, receiptID)
	default:
		t.writeError(w, NewInvalidMethodError(r.Method))
	}
}

func (t *Transport) addUserToReceipt(w http.ResponseWriter, r *http.Request, receiptID string) {
	var req AddUserToReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.writeError(w, NewValidationError("body", fmt.Sprintf("failed to parse request body: %v", err)))
		return
	}
	if req.Name == "" {
		t.writeError(w, NewValidationError("name", "name is required"))
		return
	}

	user, err := t.persistenceClient.AddUserToReceipt(r.Context(), receiptID, req.Name)
	if err != nil {
		t.writeError(w, err)
		return
	}

	t.writeJSON(w, http.StatusCreated, AddUserToReceiptResponse{
		Message: "User added to receipt successfully",
		User: ReceiptUserDTO{
			ID:        user.ID,
			ReceiptID: user.ReceiptID,
			Name:      user.Name,
		},
	})
}

func (t *Transport) getReceiptUsers(w http.ResponseWriter, r *http.Request, receiptID string) {
	exists, err := t.persistenceClient.ReceiptExists(r.Context(), receiptID)
	if err != nil {
		t.writeError(w, err)
		return
	}
	if !exists {
		t.writeError(w, fmt.Errorf("receipt %s: %w", receiptID, persistence.ErrNotFound))
		return
	}

	users, err := t.persistenceClient.GetReceiptUsers(r.Context(), receiptID)
	if err != nil {
		t.writeError(w, err)
		return
	}

	t.writeJSON(w, http.StatusOK, GetReceiptUsersResponse{Users: toUserDTOs(users)})
}

// ReceiptItemsHandler handles GET /receipts/{receipt_id}/items.
func (t *Transport) ReceiptItemsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		t.writeError(w, NewInvalidMethodError(r.Method))
		return
	}

	receiptID, ok := ParseReceiptItemsPath(r.URL.Path)
	if !ok {
		t.writeError(w, NewValidationError("path", "invalid URL path format"))
		return
	}

	record, err := t.persistenceClient.GetReceipt(r.Context(), receiptID)
	if err != nil {
		t.writeError(w, err)
		return
	}

	currency := record.Currency
	if currency == nil {
		currency = &defaultUSD
	}
	t.writeJSON(w, http.StatusOK, GetReceiptItemsResponse{Items: toItemDTOs(record.Items, currency)})
}

// AssignItemHandler handles PUT /receipts/{receipt_id}/items/{item_id}/assign.
// The request replaces the item's entire share set; an empty shares list
// clears the assignment.
func (t *Transport) AssignItemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		t.writeError(w, NewInvalidMethodError(r.Method))
		return
	}

	receiptID, itemID, ok := ParseItemAssignPath(r.URL.Path)
	if !ok {
		t.writeError(w, NewValidationError("path", "invalid URL path format"))
		return
	}

	var req AssignItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.writeError(w, NewValidationError("body", fmt.Sprintf("failed to parse request body: %v", err)))
		return
	}

	mode, err := parseSplitMode(req.SplitMode)
	if err != nil {
		t.writeError(w, err)
		return
	}

	shares := make([]splitting.AssignmentShare, 0, len(req.Shares))
	for _, share := range req.Shares {
		if share.UserID == "" {
			t.writeError(w, NewValidationError("shares", "user_id is required for every share"))
			return
		}
		shares = append(shares, splitting.AssignmentShare{
			PersonID:      share.UserID,
			ShareQuantity: share.ShareQuantity,
			ShareFraction: share.ShareFraction,
		})
	}

	assignment := splitting.ItemAssignments{ItemID: itemID, SplitMode: mode, Shares: shares}
	if err := t.persistenceClient.SetItemAssignment(r.Context(), receiptID, assignment); err != nil {
		t.writeError(w, err)
		return
	}

	t.writeJSON(w, http.StatusOK, AssignItemResponse{
		Message:   "Item assignment updated",
		ItemID:    itemID,
		SplitMode: string(mode),
		NumShares: len(shares),
	})
}

func toItemDTOs(items []persistence.ItemRecord, currency *string) []ReceiptItemDTO {
	dtos := make([]ReceiptItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, ReceiptItemDTO{
			ID:         item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  money.Ptr(item.UnitPrice, currency),
			TotalPrice: money.NewAmount(item.TotalPrice, currency),
			Category:   item.Category,
		})
	}
	return dtos
}

func toUserDTOs(users []persistence.UserRecord) []ReceiptUserDTO {
	dtos := make([]ReceiptUserDTO, 0, len(users))
	for _, user := range users {
		dtos = append(dtos, ReceiptUserDTO{
			ID:        user.ID,
			ReceiptID: user.ReceiptID,
			Name:      user.Name,
		})
	}
	return dtos
}

func toAssignmentDTOs(assignments []splitting.ItemAssignments) []AssignmentDTO {
	dtos := make([]AssignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		shares := make([]AssignShareInput, 0, len(a.Shares))
		for _, share := range a.Shares {
			shares = append(shares, AssignShareInput{
				UserID:        share.PersonID,
				ShareQuantity: share.ShareQuantity,
				ShareFraction: share.ShareFraction,
			})
		}
		dtos = append(dtos, AssignmentDTO{
			ItemID:    a.ItemID,
			SplitMode: string(a.SplitMode),
			Shares:    shares,
		})
	}
	return dtos
}
