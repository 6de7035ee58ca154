// Package customer validates customer references against the customer
// service over HTTP. It owns the retry policy for transient failures so
// that callers only ever see one of the three ValidationResult outcomes.
package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ecomsvc/order-events/internal/pkg/config"
)

// Client performs the synchronous existence check for a customer ID.
// It retries 503/504 responses and transport-level failures up to
// maxRetries extra attempts with exponential backoff and jitter; every
// other status maps directly to a result.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
}

func NewClient(cfg config.CustomerAPI) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
	}
}

// Validate looks up the customer by ID. It never returns an error: every
// reachable HTTP status and every transport failure maps to exactly one
// ValidationResult.
func (c *Client) Validate(ctx context.Context, customerID int) ValidationResult {
	ctx, span := otel.Tracer("customer").Start(ctx, "customer.validate")
	defer span.End()
	span.SetAttributes(attribute.Int("customer.id", customerID))

	url := fmt.Sprintf("%s/api/v1/customers/%d", c.baseURL, customerID)

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, retryable, err := c.attempt(ctx, url)
		if err == nil {
			return result
		}
		lastErr = err
		if !retryable || attempt >= c.maxRetries || ctx.Err() != nil {
			return ServiceUnavailable{Err: lastErr}
		}

		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return ServiceUnavailable{Err: ctx.Err()}
		}
	}
}

// attempt issues a single GET. A non-nil error means the attempt did not
// produce a usable result; retryable reports whether the retry policy
// applies (connection/timeout failures and 503/504 only).
func (c *Client) attempt(ctx context.Context, url string) (ValidationResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("customer: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Connection refused, DNS failure, or timeout. All transport
		// errors fall under the transient policy.
		return nil, true, fmt.Errorf("customer: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		snapshot := map[string]any{}
		// A body that fails to decode still confirms existence; the
		// snapshot is advisory.
		_ = json.NewDecoder(resp.Body).Decode(&snapshot)
		return Found{Snapshot: snapshot}, false, nil

	case resp.StatusCode == http.StatusNotFound:
		return NotFound{Message: "customer not found"}, false, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return NotFound{Message: errorMessage(resp)}, false, nil

	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, true, fmt.Errorf("customer: service responded %d", resp.StatusCode)

	default:
		// Remaining 5xx: the service is up but broken; retrying will not
		// help within this request's budget.
		return nil, false, fmt.Errorf("customer: service responded %d", resp.StatusCode)
	}
}

// backoff returns baseDelay doubled per attempt plus up to 50% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay << attempt
	jitter := time.Duration(rand.Int64N(int64(delay)/2 + 1))
	return delay + jitter
}

// errorMessage pulls the server's explanation out of a 4xx body, falling
// back to the status text.
func errorMessage(resp *http.Response) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}
