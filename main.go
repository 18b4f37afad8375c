package main

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"instasplit/logging"
	"instasplit/persistence"
	"instasplit/storage"
	tr "instasplit/transport"
)

func main() {
	ctx := context.Background()
	log := logging.Setup()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Error("DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	persistenceClient, err := persistence.NewClient(ctx, databaseURL)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer persistenceClient.Close()

	if err := persistenceClient.RunMigrations(ctx); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database initialized")

	gcsClient, err := storage.NewGCSClient(ctx)
	if err != nil {
		log.Error("failed to create GCS client", "error", err)
		os.Exit(1)
	}
	defer gcsClient.Close()

	visionClient, err := storage.NewVisionClient(ctx)
	if err != nil {
		log.Error("failed to create Vision client", "error", err)
		os.Exit(1)
	}
	defer visionClient.Close()

	var opts []tr.Option
	if os.Getenv("DOCUMENT_AI_PROCESSOR_ID") != "" {
		opts = append(opts, tr.WithDocumentAI())
	}
	if raw := os.Getenv("CONFIDENCE_THRESHOLD"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			log.Error("invalid CONFIDENCE_THRESHOLD", "value", raw, "error", err)
			os.Exit(1)
		}
		opts = append(opts, tr.WithConfidenceThreshold(threshold))
	}

	httpTransport := tr.NewTransport(persistenceClient, gcsClient, visionClient, log, opts...)

	http.HandleFunc("/receipts/image", tr.WithMetrics("upload_receipt", httpTransport.UploadReceiptHandler))
	http.HandleFunc("/split/calculate", tr.WithMetrics("calculate_split", httpTransport.CalculateSplitHandler))

	http.HandleFunc("/receipts/", tr.WithMetrics("receipts", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case pathIsItemAssign(path):
			httpTransport.AssignItemHandler(w, r)
		case pathIsReceiptUsers(path):
			httpTransport.ReceiptUsersHandler(w, r)
		case pathIsReceiptItems(path):
			httpTransport.ReceiptItemsHandler(w, r)
		case pathIsReceiptSplit(path):
			httpTransport.GetReceiptSplitHandler(w, r)
		case pathIsReceiptID(path):
			httpTransport.ReceiptHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	http.Handle("/metrics", tr.MetricsHandler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	log.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func pathIsItemAssign(path string) bool {
	_, _, ok := tr.ParseItemAssignPath(path)
	return ok
}

func pathIsReceiptUsers(path string) bool {
	_, ok := tr.ParseReceiptUsersPath(path)
	return ok
}

func pathIsReceiptItems(path string) bool {
	_, ok := tr.ParseReceiptItemsPath(path)
	return ok
}

func pathIsReceiptSplit(path string) bool {
	_, ok := tr.ParseReceiptSplitPath(path)
	return ok
}

func pathIsReceiptID(path string) bool {
	_, ok := tr.ParseReceiptIDPath(path)
	return ok
}
