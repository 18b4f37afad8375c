package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanGeminiJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanGeminiJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanGeminiJSON(`Here you go: {"a":1} hope that helps`))
	assert.Equal(t, `{"a":1}`, cleanGeminiJSON(`{"a":1}`))
}

func TestGeminiToReceipt(t *testing.T) {
	price := 12.5
	parsed := geminiReceipt{
		Currency: "USD",
		Items: []geminiReceiptItem{
			{Name: "Burger", Quantity: 1, TotalPrice: &price, Category: "food"},
			{Name: "  ", Quantity: 1, TotalPrice: &price},
			{Name: "No Price", Quantity: 1},
		},
		Total: 12.5,
	}

	receipt, err := geminiToReceipt(parsed)
	require.NoError(t, err)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, "Burger", receipt.Items[0].Name)
	assert.NotEmpty(t, receipt.Items[0].ID)
	assert.Equal(t, 12.5, receipt.Total)
}

func TestGeminiToReceiptDerivesTotalFromUnitPrice(t *testing.T) {
	unit := 3.0
	parsed := geminiReceipt{
		Items: []geminiReceiptItem{
			{Name: "Taco", Quantity: 4, UnitPrice: &unit},
		},
		Total: 12.0,
	}

	receipt, err := geminiToReceipt(parsed)
	require.NoError(t, err)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, 12.0, receipt.Items[0].TotalPrice)
	require.NotNil(t, receipt.Currency)
	assert.Equal(t, "USD", *receipt.Currency)
}

func TestGeminiToReceiptRequiresTotal(t *testing.T) {
	_, err := geminiToReceipt(geminiReceipt{})
	require.Error(t, err)
}

func TestMoneyFromText(t *testing.T) {
	amount, ok := moneyFromText("$1,234.56")
	require.True(t, ok)
	assert.Equal(t, 1234.56, amount)

	_, ok = moneyFromText("no numbers here")
	assert.False(t, ok)
}

func TestParseQuantity(t *testing.T) {
	assert.Equal(t, 2, parseQuantity("2"))
	assert.Equal(t, 3, parseQuantity("2.6 units"))
	assert.Equal(t, 1, parseQuantity(""))
	assert.Equal(t, 1, parseQuantity("0"))
}
