package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"instasplit/money"
	"instasplit/splitting"
)

// CalculateSplitHandler handles POST /split/calculate: a standalone split over
// a receipt, group, and assignments supplied entirely in the request body.
// Nothing is read from or written to the database.
func (t *Transport) CalculateSplitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		t.writeError(w, NewInvalidMethodError(r.Method))
		return
	}

	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.writeError(w, NewValidationError("body", fmt.Sprintf("failed to parse request body: %v", err)))
		return
	}

	receipt := toSplitReceipt(req.Receipt)
	group := toSplitGroup(req.People)
	assignments, err := toSplitAssignments(req.Assignments)
	if err != nil {
		t.writeError(w, err)
		return
	}
	options, err := toSplitOptions(req.Options)
	if err != nil {
		t.writeError(w, err)
		return
	}

	if err := splitting.ValidateReferences(receipt, group, assignments); err != nil {
		t.writeError(w, err)
		return
	}

	start := time.Now()
	breakdowns, info, err := splitting.Calculate(receipt, group, assignments, options)
	if err != nil {
		t.writeError(w, err)
		return
	}
	observeSplit(time.Since(start))

	t.writeJSON(w, http.StatusOK, toSplitResponse(breakdowns, info, receipt.Currency, time.Since(start)))
}

// GetReceiptSplitHandler handles GET /receipts/{receipt_id}/split: loads the
// stored receipt, its people, and its assignments, and runs the engine over
// them. Charge modes come from query parameters (tip_mode, discount_mode,
// tax_mode), defaulting to proportional.
func (t *Transport) GetReceiptSplitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		t.writeError(w, NewInvalidMethodError(r.Method))
		return
	}

	receiptID, ok := ParseReceiptSplitPath(r.URL.Path)
	if !ok {
		t.writeError(w, NewValidationError("path", "invalid URL path format"))
		return
	}

	query := r.URL.Query()
	options, err := toSplitOptions(SplitOptionsInput{
		TipMode:      query.Get("tip_mode"),
		DiscountMode: query.Get("discount_mode"),
		TaxMode:      query.Get("tax_mode"),
	})
	if err != nil {
		t.writeError(w, err)
		return
	}

	receipt, group, assignments, err := t.persistenceClient.LoadSplitInputs(r.Context(), receiptID)
	if err != nil {
		t.writeError(w, err)
		return
	}

	start := time.Now()
	breakdowns, info, err := splitting.Calculate(receipt, group, assignments, options)
	if err != nil {
		t.writeError(w, err)
		return
	}
	observeSplit(time.Since(start))

	t.writeJSON(w, http.StatusOK, toSplitResponse(breakdowns, info, receipt.Currency, time.Since(start)))
}

func toSplitReceipt(input SplitReceiptInput) splitting.Receipt {
	items := make([]splitting.ReceiptItem, 0, len(input.Items))
	for _, item := range input.Items {
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
		MerchantName:  input.MerchantName,
		Currency:      input.Currency,
		Items:         items,
		Subtotal:      input.Subtotal,
		Tax:           input.Tax,
		ServiceFee:    input.ServiceFee,
		DiscountTotal: input.DiscountTotal,
		Tip:           input.Tip,
		Total:         input.Total,
	}
}

func toSplitGroup(people []SplitPersonInput) splitting.Group {
	group := splitting.Group{People: make([]splitting.Person, 0, len(people))}
	for _, p := range people {
		group.People = append(group.People, splitting.Person{ID: p.ID, Name: p.Name})
	}
	return group
}

func toSplitAssignments(inputs []SplitAssignmentInput) ([]splitting.ItemAssignments, error) {
	assignments := make([]splitting.ItemAssignments, 0, len(inputs))
	for _, input := range inputs {
		mode, err := parseSplitMode(input.SplitMode)
		if err != nil {
			return nil, err
		}
		shares := make([]splitting.AssignmentShare, 0, len(input.Shares))
		for _, share := range input.Shares {
			shares = append(shares, splitting.AssignmentShare{
				PersonID:      share.UserID,
				ShareQuantity: share.ShareQuantity,
				ShareFraction: share.ShareFraction,
			})
		}
		assignments = append(assignments, splitting.ItemAssignments{
			ItemID:    input.ItemID,
			SplitMode: mode,
			Shares:    shares,
		})
	}
	return assignments, nil
}

func toSplitOptions(input SplitOptionsInput) (splitting.SplitOptions, error) {
	options := splitting.DefaultOptions()
	var err error
	if options.TipMode, err = parseChargeMode("tip_mode", input.TipMode); err != nil {
		return options, err
	}
	if options.DiscountMode, err = parseChargeMode("discount_mode", input.DiscountMode); err != nil {
		return options, err
	}
	if options.TaxMode, err = parseChargeMode("tax_mode", input.TaxMode); err != nil {
		return options, err
	}
	return options, nil
}

func parseSplitMode(mode string) (splitting.SplitMode, error) {
	switch splitting.SplitMode(mode) {
	case "", splitting.SplitEven:
		return splitting.SplitEven, nil
	case splitting.SplitQuantity:
		return splitting.SplitQuantity, nil
	case splitting.SplitFraction:
		return splitting.SplitFraction, nil
	}
	return "", NewValidationError("split_mode", fmt.Sprintf("unknown split mode: %s", mode))
}

func parseChargeMode(field, mode string) (splitting.ChargeMode, error) {
	switch splitting.ChargeMode(mode) {
	case "", splitting.ChargeProportional:
		return splitting.ChargeProportional, nil
	case splitting.ChargeEven:
		return splitting.ChargeEven, nil
	}
	return "", NewValidationError(field, fmt.Sprintf("unknown charge mode: %s", mode))
}

func toSplitResponse(breakdowns []splitting.PersonBreakdown, info splitting.ReconciliationInfo, currency *string, elapsed time.Duration) SplitResponse {
	if currency == nil {
		currency = &defaultUSD
	}

	dtos := make([]PersonBreakdownDTO, 0, len(breakdowns))
	for _, b := range breakdowns {
		dtos = append(dtos, PersonBreakdownDTO{
			PersonID:      b.PersonID,
			PersonName:    b.PersonName,
			ItemsSubtotal: money.NewAmount(b.ItemsSubtotal, currency),
			DiscountShare: money.NewAmount(b.DiscountShare, currency),
			TaxShare:      money.NewAmount(b.TaxShare, currency),
			FeeShare:      money.NewAmount(b.FeeShare, currency),
			TipShare:      money.NewAmount(b.TipShare, currency),
			TotalOwed:     money.NewAmount(b.TotalOwed, currency),
			ItemDetails:   b.ItemDetails,
		})
	}

	return SplitResponse{
		Breakdowns: dtos,
		Reconciliation: ReconciliationDTO{
			TargetTotal:     info.TargetTotal,
			CalculatedTotal: info.CalculatedTotal,
			Difference:      info.Difference,
			PenniesAdjusted: info.PenniesAdjusted,
		},
		CalculationTimeMS: float64(elapsed.Microseconds()) / 1000,
	}
}
