package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/auth/credentials"
	"github.com/oklog/ulid/v2"
	"google.golang.org/genai"

	"instasplit/splitting"
)

type geminiReceiptItem struct {
	Name       string   `json:"name"`
	Quantity   float64  `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`
	Category   string   `json:"category,omitempty"`
}

type geminiReceipt struct {
	MerchantName  *string             `json:"merchant_name"`
	Currency      string              `json:"currency"`
	Items         []geminiReceiptItem `json:"items"`
	Subtotal      *float64            `json:"subtotal"`
	Tax           *float64            `json:"tax"`
	ServiceFee    *float64            `json:"service_fee"`
	DiscountTotal *float64            `json:"discount_total"`
	Tip           *float64            `json:"tip"`
	Total         float64             `json:"total"`
}

const geminiExtractionPrompt = `You are a precise receipt data extraction assistant. Extract structured data from receipt OCR text into strict JSON.

Output ONLY valid JSON matching this exact schema:
{
  "merchant_name": "string or null",
  "currency": "USD",
  "items": [
    {
      "name": "item name",
      "quantity": 1.0,
      "unit_price": 10.50 or null,
      "total_price": 10.50,
      "category": "food|drink|fee|discount|tax|tip|unknown"
    }
  ],
  "subtotal": 50.00 or null,
  "tax": 5.00 or null,
  "service_fee": 2.00 or null,
  "discount_total": -5.00 or null,
  "tip": 10.00 or null,
  "total": 62.00
}

Rules:
1. Extract ALL line items as separate entries
2. quantity defaults to 1.0 if not specified
3. total is REQUIRED and must be the final amount
4. All prices should be positive except discount_total (negative)
5. If a field is unclear, use null (not 0)
6. Return ONLY the JSON object, no markdown, no explanation

Receipt OCR text:
---
%s
---`

// ExtractReceiptWithGemini asks Gemini on Vertex AI to turn OCR text into a
// full structured receipt. This is the fallback path for receipts the
// deterministic parser could not handle with enough confidence.
func ExtractReceiptWithGemini(ctx context.Context, ocrText string) (*splitting.Receipt, error) {
	if strings.TrimSpace(ocrText) == "" {
		return nil, fmt.Errorf("ocr text is empty")
	}

	credsJSON := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	if credsJSON == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS_JSON environment variable is not set")
	}

	projectID := os.Getenv("GCP_PROJECT_ID")
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID environment variable is not set")
	}

	location := os.Getenv("VERTEX_AI_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(credsJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:     projectID,
		Location:    location,
		Backend:     genai.BackendVertexAI,
		Credentials: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}

	prompt := fmt.Sprintf(geminiExtractionPrompt, ocrText)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0)),
		TopP:            genai.Ptr(float32(0.95)),
		MaxOutputTokens: 4096,
	}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	responseText := extractGeminiText(resp)
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var parsed geminiReceipt
	if err := json.Unmarshal([]byte(cleanGeminiJSON(responseText)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse Gemini JSON: %w", err)
	}

	return geminiToReceipt(parsed)
}

func geminiToReceipt(parsed geminiReceipt) (*splitting.Receipt, error) {
	if parsed.Total <= 0 {
		return nil, fmt.Errorf("gemini extraction missing receipt total")
	}

	items := make([]splitting.ReceiptItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}

		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}

		var totalPrice float64
		unitPrice := item.UnitPrice
		switch {
		case item.TotalPrice != nil:
			totalPrice = *item.TotalPrice
		case unitPrice != nil:
			totalPrice = *unitPrice * qty
		default:
			continue
		}
		if totalPrice <= 0 {
			continue
		}

		category := item.Category
		if category == "" {
			category = "unknown"
		}

		items = append(items, splitting.ReceiptItem{
			ID:         ulid.Make().String(),
			Name:       strings.TrimSpace(item.Name),
			Quantity:   qty,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
			Category:   category,
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("gemini extraction produced no items")
	}

	currency := parsed.Currency
	if currency == "" {
		currency = "USD"
	}

	return &splitting.Receipt{
		MerchantName:  parsed.MerchantName,
		Currency:      &currency,
		Items:         items,
		Subtotal:      parsed.Subtotal,
		Tax:           parsed.Tax,
		ServiceFee:    parsed.ServiceFee,
		DiscountTotal: parsed.DiscountTotal,
		Tip:           parsed.Tip,
		Total:         parsed.Total,
	}, nil
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	return strings.TrimSpace(resp.Text())
}

func cleanGeminiJSON(input string) string {
	cleaned := strings.TrimSpace(input)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end >= start {
		return cleaned[start : end+1]
	}

	return cleaned
}
