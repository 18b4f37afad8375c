package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"

	"instasplit/extraction"
	"instasplit/money"
	"instasplit/persistence"
	"instasplit/splitting"
	"instasplit/storage"
)

// extractionResult is the outcome of the receipt extraction pipeline.
type extractionResult struct {
	receipt    *splitting.Receipt
	ocrText    string
	method     string
	confidence float64
}

// extractReceipt runs the staged pipeline over raw image bytes: Vision OCR,
// then Document AI (when enabled), then the deterministic parser, then Gemini
// when the parser's confidence falls below the threshold. A low-confidence
// parser result is still used if Gemini fails.
func (t *Transport) extractReceipt(ctx context.Context, fileData []byte, contentType string) *extractionResult {
	ocrText, ocrConfidence, err := t.visionClient.ExtractText(ctx, fileData)
	if err != nil {
		t.log.Error("OCR failed", "error", err)
		return nil
	}

	result := &extractionResult{ocrText: ocrText}

	if t.useDocumentAI {
		docReceipt, err := storage.ProcessReceiptWithDocumentAI(ctx, fileData, contentType)
		if err != nil {
			t.log.Error("Document AI processing failed", "error", err)
		} else if receipt := docReceipt.ToReceipt(); receipt != nil {
			result.receipt = receipt
			result.method = "document_ai"
			result.confidence = ocrConfidence
			return result
		}
	}

	var parser extraction.Parser
	receipt, confidence := parser.Parse(ocrText, ocrConfidence)
	if receipt != nil && confidence.Overall >= t.confidenceThreshold {
		result.receipt = receipt
		result.method = "parser"
		result.confidence = confidence.Overall
		return result
	}

	t.log.Info("parser confidence below threshold, falling back to LLM",
		"confidence", confidence.Overall, "threshold", t.confidenceThreshold)

	llmReceipt, err := storage.ExtractReceiptWithGemini(ctx, ocrText)
	if err != nil {
		t.log.Error("Gemini extraction failed", "error", err)
		if receipt != nil {
			result.receipt = receipt
			result.method = "parser"
			result.confidence = confidence.Overall
			return result
		}
		return result
	}

	result.receipt = llmReceipt
	result.method = "llm"
	result.confidence = confidence.Overall
	return result
}

// UploadReceiptHandler handles receipt image uploads
// Expects multipart/form-data with:
//   - "image": the receipt image file
//
// The image is stored in GCS, run through the extraction pipeline, and the
// resulting receipt persisted.
func (t *Transport) UploadReceiptHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, contentType, err := t.validateReceiptImageRequest(w, r)
	if err != nil {
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		t.writeError(w, fmt.Errorf("failed to read image file: %w", err))
		return
	}

	uploadID := ulid.Make().String()
	imageURL, err := t.gcsClient.UploadReceiptImage(ctx, bytes.NewReader(fileData), uploadID, contentType)
	if err != nil {
		t.writeError(w, fmt.Errorf("failed to upload image: %w", err))
		return
	}

	receipt := splitting.Receipt{}
	var ocrText *string
	info := ExtractionInfo{Method: "none"}
	if result := t.extractReceipt(ctx, fileData, contentType); result != nil {
		if result.ocrText != "" {
			ocrText = &result.ocrText
		}
		if result.receipt != nil {
			receipt = *result.receipt
			info = ExtractionInfo{Method: result.method, Confidence: result.confidence}
		}
	}

	savedReceipt, err := t.persistenceClient.SaveReceipt(ctx, receipt, &imageURL, ocrText)
	if err != nil {
		t.writeError(w, fmt.Errorf("failed to save receipt: %w", err))
		return
	}

	t.log.Info("receipt uploaded",
		"receipt_id", savedReceipt.ID,
		"items", len(savedReceipt.Items),
		"extraction_method", info.Method)

	t.writeJSON(w, http.StatusCreated, buildUploadReceiptResponse(savedReceipt, imageURL, ocrText, info))
}

func buildUploadReceiptResponse(savedReceipt *persistence.ReceiptRecord, imageURL string, ocrText *string, info ExtractionInfo) UploadReceiptResponse {
	currency := savedReceipt.Currency
	if currency == nil {
		currency = &defaultUSD
	}

	return UploadReceiptResponse{
		ReceiptID:     savedReceipt.ID,
		ImageURL:      imageURL,
		MerchantName:  savedReceipt.MerchantName,
		Currency:      savedReceipt.Currency,
		Items:         toItemDTOs(savedReceipt.Items, currency),
		Subtotal:      money.Ptr(savedReceipt.Subtotal, currency),
		Tax:           money.Ptr(savedReceipt.Tax, currency),
		ServiceFee:    money.Ptr(savedReceipt.ServiceFee, currency),
		DiscountTotal: money.Ptr(savedReceipt.DiscountTotal, currency),
		Tip:           money.Ptr(savedReceipt.Tip, currency),
		Total:         money.NewAmount(savedReceipt.Total, currency),
		OCRText:       ocrText,
		Extraction:    info,
	}
}

func (t *Transport) validateReceiptImageRequest(w http.ResponseWriter, r *http.Request) (file io.ReadCloser, contentType string, err error) {
	if r.Method != http.MethodPost {
		err = NewInvalidMethodError(r.Method)
		t.writeError(w, err)
		return nil, "", err
	}

	err = r.ParseMultipartForm(10 << 20) // 10MB
	if err != nil {
		validationErr := NewValidationError("form", fmt.Sprintf("failed to parse multipart form: %v", err))
		t.writeError(w, validationErr)
		return nil, "", validationErr
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		validationErr := NewValidationError("image", fmt.Sprintf("failed to get image file: %v", err))
		t.writeError(w, validationErr)
		return nil, "", validationErr
	}

	if header.Size > 10<<20 {
		validationErr := NewValidationError("image", "image file too large (max 10MB)")
		t.writeError(w, validationErr)
		return nil, "", validationErr
	}

	contentType = header.Header.Get("Content-Type")
	if contentType != "" {
		validTypes := map[string]bool{
			"image/jpeg": true,
			"image/jpg":  true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		}
		if !validTypes[contentType] {
			validationErr := NewValidationError("image", fmt.Sprintf("invalid image type: %s", contentType))
			t.writeError(w, validationErr)
			return nil, "", validationErr
		}
	}
	return file, contentType, nil
}
