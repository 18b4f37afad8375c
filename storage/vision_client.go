package storage

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/apiv1"
	"google.golang.org/api/option"
	pb "google.golang.org/genproto/googleapis/cloud/vision/v1"
)

// VisionClient wraps the Cloud Vision image annotator for receipt OCR.
type VisionClient struct {
	client *vision.ImageAnnotatorClient
}

func NewVisionClient(ctx context.Context) (*VisionClient, error) {
	credsJSON := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	if credsJSON == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS_JSON environment variable is not set")
	}

	client, err := vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}

	return &VisionClient{
		client: client,
	}, nil
}

func (c *VisionClient) Close() error {
	return c.client.Close()
}

// ExtractText runs DOCUMENT_TEXT_DETECTION over raw image bytes and returns
// the full text plus the mean page confidence (0 when the API reports none).
// DOCUMENT_TEXT_DETECTION handles the dense layout of receipts better than
// plain TEXT_DETECTION.
func (c *VisionClient) ExtractText(ctx context.Context, imageData []byte) (string, float64, error) {
	image := &pb.Image{
		Content: imageData,
	}

	response, err := c.client.DetectDocumentText(ctx, image, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to detect document text: %w", err)
	}
	if response == nil || response.GetText() == "" {
		return "", 0, fmt.Errorf("no text detected in image")
	}

	confidence := 0.0
	if pages := response.GetPages(); len(pages) > 0 {
		sum := float64(0)
		for _, page := range pages {
			sum += float64(page.GetConfidence())
		}
		confidence = sum / float64(len(pages))
	}

	return response.GetText(), confidence, nil
}
