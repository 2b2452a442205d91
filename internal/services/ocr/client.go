// Package ocr provides a client for the document recognition API.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scriptor/internal/interfaces"
	"github.com/ternarybob/scriptor/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the recognition API.
	DefaultBaseURL = "https://api.mistral.ai"

	// DefaultTimeout is the default HTTP timeout for a single request.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2

	// DefaultModel is the recognition model used when none is requested.
	DefaultModel = "mistral-ocr-latest"

	ocrEndpoint    = "/v1/ocr"
	modelsEndpoint = "/v1/models"
)

// Client is a recognition API client. A client validates its key at most
// once and caches the outcome for its lifetime; a new client re-validates.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	logger      arbor.ILogger
	limiter     *rate.Limiter
	retryPolicy *RetryPolicy

	mu         sync.Mutex
	validation *models.KeyValidation
}

// Compile-time interface assertion
var _ interfaces.OCRClient = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL. Empty values leave the default in
// place.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Zero or negative values leave the
// default limiter in place.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithRetryPolicy sets a custom retry policy.
func WithRetryPolicy(policy *RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithModel sets the default recognition model. Empty values leave the
// default in place.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a new recognition API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:      arbor.NewLogger(),
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retryPolicy: NewRetryPolicy(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error response from the recognition API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("recognition API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// ValidateAPIKey checks the configured key against the model listing
// endpoint. The outcome is cached: repeated calls on the same client return
// the first result without touching the network. A rejected key is a normal
// result; only transport failures return an error, and those are not cached.
func (c *Client) ValidateAPIKey(ctx context.Context) (*models.KeyValidation, error) {
	c.mu.Lock()
	if c.validation != nil {
		cached := *c.validation
		c.mu.Unlock()
		return &cached, nil
	}
	c.mu.Unlock()

	if c.apiKey == "" {
		result := &models.KeyValidation{Valid: false, Reason: "api key is empty"}
		c.storeValidation(result)
		return result, nil
	}

	c.logger.Debug().
		Str("url", c.baseURL+modelsEndpoint).
		Msg("Validating recognition API key")

	var result models.KeyValidation
	_, err := c.retryPolicy.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
		status, body, err := c.doRequest(ctx, http.MethodGet, modelsEndpoint, nil)
		if err != nil {
			return status, err
		}
		switch {
		case status >= 200 && status < 300:
			result = models.KeyValidation{Valid: true}
			return status, nil
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			result = models.KeyValidation{Valid: false, Reason: apiMessage(body, status)}
			return status, nil
		default:
			return status, &APIError{StatusCode: status, Message: apiMessage(body, status), Endpoint: modelsEndpoint}
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, models.NewPipelineError(models.ErrServiceUnavailable, "ocr.validate_key", err)
	}

	c.logger.Debug().
		Bool("valid", result.Valid).
		Msg("API key validation complete")

	c.storeValidation(&result)
	return &result, nil
}

func (c *Client) storeValidation(result *models.KeyValidation) {
	c.mu.Lock()
	c.validation = result
	c.mu.Unlock()
}

// ProcessDocument submits document content for recognition and returns the
// raw service response. The content is sent inline as a base64 data URL.
// Transient failures retry per the client's retry policy; authentication
// and other client errors fail immediately.
func (c *Client) ProcessDocument(ctx context.Context, content []byte, filename string, opts models.SubmissionOptions) (*models.OCRResponse, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("document content is empty")
	}

	model := opts.Model
	if model == "" {
		model = c.model
	}

	payload := models.OCRRequest{
		Model: model,
		Document: models.DocumentPayload{
			Type:         models.DocumentTypeURL,
			DocumentURL:  dataURL(content),
			DocumentName: filename,
		},
		IncludeImageBase64: opts.IncludeImages,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.logger.Debug().
		Str("model", model).
		Str("filename", filename).
		Int("size", len(content)).
		Msg("Submitting document for recognition")

	var respBody []byte
	_, err = c.retryPolicy.ExecuteWithRetry(ctx, c.logger, func() (int, error) {
		status, body, err := c.doRequest(ctx, http.MethodPost, ocrEndpoint, reqBody)
		if err != nil {
			return status, err
		}
		if status < 200 || status >= 300 {
			return status, &APIError{StatusCode: status, Message: apiMessage(body, status), Endpoint: ocrEndpoint}
		}
		respBody = body
		return status, nil
	})
	if err != nil {
		return nil, classifySubmitError(err)
	}

	var result models.OCRResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, models.NewPipelineError(models.ErrMalformedResponse, "ocr.process",
			fmt.Errorf("failed to decode response: %w", err))
	}

	c.logger.Debug().
		Int("pages", len(result.Pages)).
		Str("model", result.Model).
		Msg("Recognition response received")

	return &result, nil
}

// classifySubmitError maps a failed submission onto the pipeline error
// taxonomy.
func classifySubmitError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return models.NewPipelineError(models.ErrInvalidCredentials, "ocr.process", err)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusRequestTimeout && apiErr.StatusCode != http.StatusTooManyRequests:
			// The service rejected the request outright; retrying would recur.
			return models.NewPipelineError(models.ErrMalformedResponse, "ocr.process", err)
		}
	}

	return models.NewPipelineError(models.ErrServiceUnavailable, "ocr.process", err)
}

// doRequest performs one HTTP request and returns the status code and body.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// apiMessage extracts a human-readable message from an error response body.
func apiMessage(body []byte, statusCode int) string {
	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(statusCode)
	}
	if len(text) > 512 {
		text = text[:512]
	}
	return text
}

// dataURL encodes content as a base64 data URL with a sniffed content type.
func dataURL(content []byte) string {
	mime := mimetype.Detect(content)
	return fmt.Sprintf("data:%s;base64,%s", mime.String(), base64.StdEncoding.EncodeToString(content))
}
