package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"instasplit/persistence"
	"instasplit/storage"
)

// Transport wires the HTTP handlers to their dependencies. The vision and
// GCS clients may be nil when the service runs without upload support (for
// example when only /split/calculate is needed).
type Transport struct {
	persistenceClient *persistence.Client
	gcsClient         *storage.GCSClient
	visionClient      *storage.VisionClient
	log               *slog.Logger

	// useDocumentAI enables the Document AI extraction stage before the
	// deterministic parser runs.
	useDocumentAI bool
	// confidenceThreshold is the minimum parser confidence below which the
	// Gemini fallback runs.
	confidenceThreshold float64
}

type Option func(*Transport)

// WithDocumentAI enables the Document AI stage of the extraction pipeline.
func WithDocumentAI() Option {
	return func(t *Transport) { t.useDocumentAI = true }
}

// WithConfidenceThreshold overrides the default 0.7 parser threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(t *Transport) { t.confidenceThreshold = threshold }
}

func NewTransport(persistenceClient *persistence.Client, gcsClient *storage.GCSClient, visionClient *storage.VisionClient, log *slog.Logger, opts ...Option) *Transport {
	t := &Transport{
		persistenceClient:   persistenceClient,
		gcsClient:           gcsClient,
		visionClient:        visionClient,
		log:                 log,
		confidenceThreshold: 0.7,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// writeJSON writes v as the response body with the given status.
func (t *Transport) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.log.Error("failed to encode response", "error", err)
	}
}
