package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/scriptor/internal/models"
)

// fastRetryPolicy keeps retry semantics but removes real backoff waits.
func fastRetryPolicy() *RetryPolicy {
	p := NewRetryPolicy()
	p.InitialBackoff = time.Millisecond
	p.MaxBackoff = 5 * time.Millisecond
	return p
}

func newTestClient(serverURL string) *Client {
	return NewClient("test-key",
		WithBaseURL(serverURL),
		WithRetryPolicy(fastRetryPolicy()),
		WithRateLimit(1000),
	)
}

func TestValidateAPIKey_Invalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid api key"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.ValidateAPIKey(context.Background())
	if err != nil {
		t.Fatalf("Invalid key must be a result, not an error: %v", err)
	}
	if result.Valid {
		t.Error("Expected invalid result")
	}
	if result.Reason != "invalid api key" {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestValidateAPIKey_EmptyKeyNoNetwork(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL), WithRetryPolicy(fastRetryPolicy()))

	result, err := client.ValidateAPIKey(context.Background())
	if err != nil {
		t.Fatalf("ValidateAPIKey failed: %v", err)
	}
	if result.Valid {
		t.Error("Empty key must be invalid")
	}
	if requests.Load() != 0 {
		t.Errorf("Empty key validation made %d network calls", requests.Load())
	}
}

func TestValidateAPIKey_Cached(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewEncoder(w).Encode(models.ModelsResponse{Data: []models.ModelInfo{{ID: "ocr-1"}}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	for i := 0; i < 3; i++ {
		result, err := client.ValidateAPIKey(context.Background())
		if err != nil {
			t.Fatalf("ValidateAPIKey failed: %v", err)
		}
		if !result.Valid {
			t.Fatal("Expected valid result")
		}
	}

	if requests.Load() != 1 {
		t.Errorf("Expected 1 request, validation cache missed: %d requests", requests.Load())
	}
}

func TestValidateAPIKey_TransportFailureRetriesThenFails(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.ValidateAPIKey(context.Background())
	if err == nil {
		t.Fatal("Expected error after retry exhaustion")
	}
	if !models.IsKind(err, models.ErrServiceUnavailable) {
		t.Errorf("Expected service_unavailable, got %v", models.KindOf(err))
	}
	if got := requests.Load(); got != int64(NewRetryPolicy().MaxAttempts) {
		t.Errorf("Expected %d attempts, got %d", NewRetryPolicy().MaxAttempts, got)
	}

	// Transport failures are not cached: the next call tries again.
	client.ValidateAPIKey(context.Background())
	if got := requests.Load(); got <= int64(NewRetryPolicy().MaxAttempts) {
		t.Errorf("Failed validation was cached: %d requests total", got)
	}
}

func TestProcessDocument_Success(t *testing.T) {
	var captured models.OCRRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ocr" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization header = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&captured)

		idx := 0
		json.NewEncoder(w).Encode(models.OCRResponse{
			Model: "test-ocr",
			Pages: []models.OCRPage{{Index: &idx, Markdown: "Hello"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.ProcessDocument(context.Background(), []byte("%PDF-1.4 test"), "report.pdf",
		models.SubmissionOptions{Model: "custom-model", IncludeImages: true})
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if len(resp.Pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(resp.Pages))
	}

	if captured.Model != "custom-model" {
		t.Errorf("Model = %q", captured.Model)
	}
	if !captured.IncludeImageBase64 {
		t.Error("IncludeImageBase64 not set")
	}
	if captured.Document.Type != models.DocumentTypeURL {
		t.Errorf("Document type = %q", captured.Document.Type)
	}
	if captured.Document.DocumentName != "report.pdf" {
		t.Errorf("Document name = %q", captured.Document.DocumentName)
	}
	if !strings.HasPrefix(captured.Document.DocumentURL, "data:") ||
		!strings.Contains(captured.Document.DocumentURL, ";base64,") {
		t.Errorf("Payload is not a data URL: %.60s", captured.Document.DocumentURL)
	}
}

func TestProcessDocument_EmptyContent(t *testing.T) {
	client := NewClient("test-key")
	_, err := client.ProcessDocument(context.Background(), nil, "x.pdf", models.SubmissionOptions{})
	if err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestProcessDocument_RetryThenSuccess(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		idx := 0
		json.NewEncoder(w).Encode(models.OCRResponse{
			Pages: []models.OCRPage{{Index: &idx, Markdown: "ok"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.ProcessDocument(context.Background(), []byte("doc"), "doc.pdf", models.SubmissionOptions{})
	if err != nil {
		t.Fatalf("Expected retry to recover: %v", err)
	}
	if len(resp.Pages) != 1 {
		t.Errorf("Expected 1 page, got %d", len(resp.Pages))
	}
	if requests.Load() != 2 {
		t.Errorf("Expected 2 requests, got %d", requests.Load())
	}
}

func TestProcessDocument_ErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantKind     models.ErrorKind
		wantRequests int64
	}{
		{"unauthorized fails immediately", http.StatusUnauthorized, models.ErrInvalidCredentials, 1},
		{"bad request not retried", http.StatusBadRequest, models.ErrMalformedResponse, 1},
		{"server errors retried then surfaced", http.StatusInternalServerError, models.ErrServiceUnavailable, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			_, err := client.ProcessDocument(context.Background(), []byte("doc"), "doc.pdf", models.SubmissionOptions{})
			if err == nil {
				t.Fatal("Expected error")
			}
			if !models.IsKind(err, tt.wantKind) {
				t.Errorf("Kind = %v, want %v", models.KindOf(err), tt.wantKind)
			}
			if requests.Load() != tt.wantRequests {
				t.Errorf("Requests = %d, want %d", requests.Load(), tt.wantRequests)
			}
		})
	}
}

func TestProcessDocument_Cancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		// Drain the body so the server detects the client disconnect;
		// request-context cancellation is not delivered while an unread
		// body blocks the connection's background read.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.ProcessDocument(ctx, []byte("doc"), "doc.pdf", models.SubmissionOptions{})
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if !strings.Contains(err.Error(), context.Canceled.Error()) {
		t.Errorf("Expected canceled error, got %v", err)
	}
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := NewRetryPolicy()

	tests := []struct {
		name    string
		attempt int
		status  int
		want    bool
	}{
		{"retryable 503", 0, 503, true},
		{"retryable 429", 1, 429, true},
		{"client error 400", 0, 400, false},
		{"client error 404", 0, 404, false},
		{"attempts exhausted", 3, 503, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.attempt, tt.status, nil); got != tt.want {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tt.attempt, tt.status, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_BackoffBounded(t *testing.T) {
	p := NewRetryPolicy()

	for attempt := 0; attempt < 10; attempt++ {
		backoff := p.CalculateBackoff(attempt)
		if backoff <= 0 {
			t.Errorf("Attempt %d: non-positive backoff %v", attempt, backoff)
		}
		// Cap plus 25% jitter headroom
		if backoff > p.MaxBackoff+p.MaxBackoff/4 {
			t.Errorf("Attempt %d: backoff %v exceeds cap", attempt, backoff)
		}
	}
}
