// Package extraction turns raw OCR text into a structured receipt.
//
// The deterministic parser runs first: regex field extraction plus line-item
// heuristics, scored with a confidence value. When the score falls below the
// caller's threshold the LLM extractor takes over.
package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"instasplit/splitting"
)

// Confidence scores one extraction attempt. Overall is the mean of the
// per-field scores, averaged with the OCR engine's own confidence.
type Confidence struct {
	Overall float64            `json:"overall"`
	Fields  map[string]float64 `json:"fields"`
}

var (
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)total[\s:]*\$?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`(?im)amount due[\s:]*\$?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`(?im)balance[\s:]*\$?\s*(\d+\.?\d*)`),
	}
	subtotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)sub[\s-]?total[\s:]*\$?\s*(\d+\.?\d*)`),
	}
	taxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)tax[\s:]*\$?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`(?im)sales tax[\s:]*\$?\s*(\d+\.?\d*)`),
	}
	tipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)tip[\s:]*\$?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`(?im)gratuity[\s:]*\$?\s*(\d+\.?\d*)`),
	}

	itemPattern    = regexp.MustCompile(`^(.+?)\s+\$?\s*(\d+\.?\d{0,2})$`)
	addressPattern = regexp.MustCompile(`(?i)\d+\s+(st|street|ave|avenue|rd|road|blvd)`)
	numericOnly    = regexp.MustCompile(`^\d+$`)
	hasDigit       = regexp.MustCompile(`\d`)
)

// metadata keywords that disqualify a line from being a line item
var metadataKeywords = []string{"total", "tax", "tip", "subtotal", "gratuity", "payment", "change"}

// Parser extracts receipt fields from OCR text with regexes and heuristics.
// The zero value is ready to use.
type Parser struct{}

// Parse builds a receipt from OCR text. It returns nil when the text is too
// short or when no total or no items could be found; the confidence then
// reports which precondition failed. ocrConfidence is the OCR engine's own
// score and is averaged into the overall confidence.
func (p *Parser) Parse(ocrText string, ocrConfidence float64) (*splitting.Receipt, Confidence) {
	if len(strings.TrimSpace(ocrText)) < 10 {
		return nil, Confidence{Fields: map[string]float64{"text_length": 0}}
	}

	lines := strings.Split(ocrText, "\n")

	merchant := extractMerchantName(lines)
	total := extractField(ocrText, totalPatterns)
	subtotal := extractField(ocrText, subtotalPatterns)
	tax := extractField(ocrText, taxPatterns)
	tip := extractField(ocrText, tipPatterns)
	items := extractItems(lines)

	if total == nil || len(items) == 0 {
		fields := map[string]float64{"has_total": 0, "has_items": 0}
		if total != nil {
			fields["has_total"] = 1
		}
		if len(items) > 0 {
			fields["has_items"] = 1
		}
		return nil, Confidence{Fields: fields}
	}

	currency := "USD"
	receipt := &splitting.Receipt{
		MerchantName: merchant,
		Currency:     &currency,
		Items:        items,
		Subtotal:     subtotal,
		Tax:          tax,
		Tip:          tip,
		Total:        *total,
	}

	confidence := scoreReceipt(receipt, ocrText)
	confidence.Overall = (confidence.Overall + ocrConfidence) / 2
	confidence.Fields["ocr_confidence"] = ocrConfidence

	return receipt, confidence
}

// extractField returns the first capture group of the first pattern that
// matches, as a float.
func extractField(text string, patterns []*regexp.Regexp) *float64 {
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}

// extractMerchantName assumes the merchant is one of the first three lines,
// skipping bare numbers and anything that looks like a street address.
func extractMerchantName(lines []string) *string {
	limit := len(lines)
	if limit > 3 {
		limit = 3
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if line == "" || len(line) <= 3 || numericOnly.MatchString(line) {
			continue
		}
		if addressPattern.MatchString(line) {
			continue
		}
		return &line
	}
	return nil
}

func extractItems(lines []string) []splitting.ReceiptItem {
	var items []splitting.ReceiptItem

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isMetadataLine(line) {
			continue
		}

		match := itemPattern.FindStringSubmatch(line)
		if len(match) < 3 {
			continue
		}
		name := strings.TrimSpace(match[1])
		price, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}

		// Sanity bounds for a single line item.
		if price < 0.01 || price > 500 {
			continue
		}

		items = append(items, splitting.ReceiptItem{
			ID:         ulid.Make().String(),
			Name:       name,
			Quantity:   1,
			UnitPrice:  &price,
			TotalPrice: price,
			Category:   classifyItem(name),
		})
	}

	return items
}

func isMetadataLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range metadataKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func classifyItem(name string) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "drink", "soda", "juice", "coffee", "tea", "water", "beer", "wine"):
		return "drink"
	case containsAny(lower, "fee", "service", "delivery"):
		return "fee"
	case containsAny(lower, "discount", "coupon", "promo"):
		return "discount"
	default:
		return "food"
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// scoreReceipt rates the extraction on four signals: a total was found, a
// reasonable item count, the item sum landing near the subtotal, and the
// share of OCR lines that carry digits.
func scoreReceipt(receipt *splitting.Receipt, text string) Confidence {
	fields := make(map[string]float64, 4)

	if receipt.Total > 0 {
		fields["total"] = 1
	} else {
		fields["total"] = 0
	}

	if n := len(receipt.Items); n > 0 {
		fields["items"] = min(1, float64(n)/5)
	} else {
		fields["items"] = 0
	}

	itemsSum := 0.0
	for _, item := range receipt.Items {
		itemsSum += item.TotalPrice
	}
	if receipt.Subtotal != nil {
		diff := itemsSum - *receipt.Subtotal
		if diff < 0 {
			diff = -diff
		}
		tolerance := *receipt.Subtotal * 0.1
		if tolerance < 1 {
			tolerance = 1
		}
		fields["items_sum_match"] = max(0, 1-diff/tolerance)
	} else {
		fields["items_sum_match"] = 0.5
	}

	numericLines, totalLines := 0, 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		totalLines++
		if hasDigit.MatchString(line) {
			numericLines++
		}
	}
	if totalLines > 0 {
		fields["text_quality"] = min(1, float64(numericLines)/float64(totalLines))
	} else {
		fields["text_quality"] = 0
	}

	sum := 0.0
	for _, v := range fields {
		sum += v
	}

	return Confidence{Overall: sum / float64(len(fields)), Fields: fields}
}
