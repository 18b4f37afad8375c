package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSClient uploads receipt images to Google Cloud Storage.
type GCSClient struct {
	client     *storage.Client
	bucketName string
}

func NewGCSClient(ctx context.Context) (*GCSClient, error) {
	credsJSON := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	if credsJSON == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS_JSON environment variable is not set")
	}

	bucketName := os.Getenv("GCS_BUCKET_NAME")
	if bucketName == "" {
		bucketName = "instasplit-receipts"
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// UploadReceiptImage streams an image to the bucket under
// receipts/{receiptID}{ext} and returns its public URL.
func (c *GCSClient) UploadReceiptImage(ctx context.Context, reader io.Reader, receiptID string, contentType string) (string, error) {
	objectName := objectName(receiptID, contentType)
	object := c.client.Bucket(c.bucketName).Object(objectName)

	writer := object.NewWriter(ctx)
	writer.ContentType = contentType
	if writer.ContentType == "" {
		writer.ContentType = "image/jpeg"
	}
	writer.Metadata = map[string]string{
		"receipt_id":  receiptID,
		"uploaded_at": time.Now().Format(time.RFC3339),
	}

	if _, err := io.Copy(writer, reader); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload receipt image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName), nil
}

func (c *GCSClient) Close() error {
	return c.client.Close()
}

func objectName(receiptID string, contentType string) string {
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg", "image/jpg", "":
		ext = ".jpg"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	default:
		if e := filepath.Ext(contentType); e != "" {
			ext = e
		}
	}
	return fmt.Sprintf("receipts/%s%s", receiptID, ext)
}
