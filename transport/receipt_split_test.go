package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransport() *Transport {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTransport(nil, nil, nil, log)
}

func fptr(v float64) *float64 { return &v }

func postSplit(t *testing.T, tr *Transport, req SplitRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/split/calculate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	tr.CalculateSplitHandler(w, r)
	return w
}

func splitFixture() SplitRequest {
	return SplitRequest{
		Receipt: SplitReceiptInput{
			Items: []SplitItemInput{
				{ID: "i1", Name: "Pizza", Quantity: 1, TotalPrice: 20.0},
				{ID: "i2", Name: "Salad", Quantity: 1, TotalPrice: 10.0},
			},
			Subtotal: fptr(30.0),
			Tax:      fptr(3.0),
			Tip:      fptr(6.0),
			Total:    39.0,
		},
		People: []SplitPersonInput{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob"},
		},
		Assignments: []SplitAssignmentInput{
			{ItemID: "i1", Shares: []AssignShareInput{{UserID: "p1"}, {UserID: "p2"}}},
			{ItemID: "i2", Shares: []AssignShareInput{{UserID: "p1"}, {UserID: "p2"}}},
		},
	}
}

func TestCalculateSplitHandler(t *testing.T) {
	w := postSplit(t, testTransport(), splitFixture())
	require.Equal(t, http.StatusOK, w.Code)

	var resp SplitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Breakdowns, 2)

	sum := 0.0
	for _, b := range resp.Breakdowns {
		sum += b.TotalOwed.Value
	}
	assert.InDelta(t, 39.0, sum, 1e-9)
	assert.Equal(t, 39.0, resp.Reconciliation.TargetTotal)
	assert.GreaterOrEqual(t, resp.CalculationTimeMS, 0.0)
}

func TestCalculateSplitHandlerUnknownItem(t *testing.T) {
	req := splitFixture()
	req.Assignments[0].ItemID = "missing"

	w := postSplit(t, testTransport(), req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "missing")
}

func TestCalculateSplitHandlerUnknownPerson(t *testing.T) {
	req := splitFixture()
	req.Assignments[1].Shares[0].UserID = "ghost"

	w := postSplit(t, testTransport(), req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateSplitHandlerEmptyGroup(t *testing.T) {
	req := splitFixture()
	req.People = nil
	req.Assignments = nil

	w := postSplit(t, testTransport(), req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateSplitHandlerBadMode(t *testing.T) {
	req := splitFixture()
	req.Options.TipMode = "sideways"

	w := postSplit(t, testTransport(), req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateSplitHandlerBadSplitMode(t *testing.T) {
	req := splitFixture()
	req.Assignments[0].SplitMode = "randomly"

	w := postSplit(t, testTransport(), req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateSplitHandlerRejectsGet(t *testing.T) {
	tr := testTransport()
	r := httptest.NewRequest(http.MethodGet, "/split/calculate", nil)
	w := httptest.NewRecorder()
	tr.CalculateSplitHandler(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCalculateSplitHandlerQuantityMode(t *testing.T) {
	req := SplitRequest{
		Receipt: SplitReceiptInput{
			Items: []SplitItemInput{{ID: "i1", Name: "Tacos", Quantity: 3, TotalPrice: 15.0}},
			Total: 15.0,
		},
		People: []SplitPersonInput{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob"},
		},
		Assignments: []SplitAssignmentInput{
			{ItemID: "i1", SplitMode: "quantity", Shares: []AssignShareInput{
				{UserID: "p1", ShareQuantity: fptr(2)},
				{UserID: "p2", ShareQuantity: fptr(1)},
			}},
		},
	}

	w := postSplit(t, testTransport(), req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SplitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Breakdowns, 2)
	assert.Equal(t, 10.0, resp.Breakdowns[0].TotalOwed.Value)
	assert.Equal(t, 5.0, resp.Breakdowns[1].TotalOwed.Value)
}
