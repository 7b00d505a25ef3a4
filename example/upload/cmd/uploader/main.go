package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kroma-labs/formwire-go/example/upload/internal/api"
	"github.com/kroma-labs/formwire-go/example/upload/internal/config"
	"github.com/kroma-labs/formwire-go/example/upload/internal/telemetry"

	"github.com/kroma-labs/formwire-go/formenc"
	sampler "github.com/kroma-labs/formwire-go/telemetry"
)

func main() {
	ctx := context.Background()

	// 1. Setup OpenTelemetry Metrics
	shutdownMetrics, err := telemetry.Setup(ctx)
	if err != nil {
		log.Fatalf("Failed to setup OTel: %v", err)
	}
	defer shutdownMetrics(ctx)

	// 2. Start Prometheus Metrics Server
	metricsServer := &http.Server{Addr: config.MetricsPort}
	go func() {
		log.Printf("Starting Prometheus metrics server on %s", config.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Metrics server failed: %v", err)
		}
	}()

	// 3. Start the Mock API
	apiServer := api.New()
	go func() {
		log.Printf("Starting mock API on %s", config.APIAddr)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Mock API failed: %v", err)
		}
	}()

	// 4. Build the Client Stack: body encoder + telemetry sampler
	encoder := formenc.New(
		formenc.WithCharset(config.Charset),
		formenc.WithDebug(true),
	)
	requestSampler := sampler.New(
		sampler.WithRequestIDHeader(config.RequestIDHeader),
	)
	client := &http.Client{
		Transport: requestSampler.Transport(nil),
		Timeout:   10 * time.Second,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(config.UploadInterval) * time.Second)
	defer ticker.Stop()

	fmt.Println("✅ Upload example app started!")
	fmt.Println("📊 Prometheus metrics: http://localhost:2112/metrics")
	fmt.Println("Press Ctrl+C to stop...")

	charges := 0
	for {
		select {
		case <-ticker.C:
			charges++

			// Alternate between a plain charge and a file upload so both
			// body encodings show up in the metrics
			if charges%2 == 1 {
				if err := createCharge(ctx, client, encoder, charges); err != nil {
					log.Printf("Failed to create charge: %v", err)
				}
			} else {
				if err := uploadEvidence(ctx, client, encoder, charges); err != nil {
					log.Printf("Failed to upload evidence: %v", err)
				}
			}
			log.Printf("✓ Request cycle %d completed (queued samples: %d)",
				charges, requestSampler.Count())

		case <-sigChan:
			fmt.Println("\n🛑 Shutting down gracefully...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiServer.Shutdown(ctx); err != nil {
				log.Printf("Mock API shutdown error: %v", err)
			}
			if err := metricsServer.Shutdown(ctx); err != nil {
				log.Printf("Metrics server shutdown error: %v", err)
			}
			return
		}
	}
}

// createCharge posts a urlencoded charge body built from nested params.
func createCharge(ctx context.Context, client *http.Client, encoder *formenc.Encoder, seq int) error {
	content, err := encoder.BuildContent(map[string]any{
		"amount":   2000 + seq,
		"currency": "usd",
		"metadata": map[string]any{
			"order_id": fmt.Sprintf("order_%d", seq),
			"source":   "uploader-example",
		},
		"items": []any{
			map[string]any{"plan": "gold"},
			map[string]any{"plan": "silver"},
		},
	})
	if err != nil {
		return err
	}

	return post(ctx, client, config.APIBaseURL+"/v1/charges", content)
}

// uploadEvidence posts a multipart body carrying an in-memory file.
func uploadEvidence(ctx context.Context, client *http.Client, encoder *formenc.Encoder, seq int) error {
	report := fmt.Sprintf("evidence report #%d\ngenerated at %s\n", seq, time.Now().Format(time.RFC3339))

	content, err := encoder.BuildContent(map[string]any{
		"purpose": "dispute_evidence",
		"file":    formenc.BlobFromReader(fmt.Sprintf("evidence_%d.txt", seq), strings.NewReader(report)),
	})
	if err != nil {
		return err
	}

	return post(ctx, client, config.APIBaseURL+"/v1/files", content)
}

// post sends a built body and drains the response.
func post(ctx context.Context, client *http.Client, url string, content formenc.Content) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, content.Reader())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", content.ContentType())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
