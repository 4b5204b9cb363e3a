package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single test call.
	DefaultTimeout = 5 * time.Second

	// MessageDisabled is reported for inactive webhooks.
	MessageDisabled = "Webhook is disabled"

	snippetLimit = 200
)

var testPayload = []byte(`{"test": true}`)

// Result describes one test invocation. Failures are reported here, never as errors.
type Result struct {
	Success     bool   `json:"success"`
	StatusCode  int    `json:"status_code,omitempty"`
	ElapsedMs   int64  `json:"response_time_ms"`
	BodySnippet string `json:"response_text,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Invoker sends test payloads to webhook URLs.
type Invoker struct {
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewInvoker creates an invoker with the given per-call timeout. limiter may be nil.
func NewInvoker(timeout time.Duration, limiter *rate.Limiter) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		timeout: timeout,
	}
}

// Invoke posts {"test": true} to url. An inactive webhook returns a disabled result
// without any network call. Waiting for the limiter counts against the call timeout.
func (i *Invoker) Invoke(ctx context.Context, url string, active bool) (result Result) {
	if !active {
		metrics.WebhookTests.WithLabelValues(metrics.OutcomeDisabled).Inc()
		return Result{Success: false, Message: MessageDisabled}
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during webhook test", slog.String("url", url), slog.Any("panic", r))
			result = Result{
				Success:   false,
				ElapsedMs: time.Since(started).Milliseconds(),
				Error:     fmt.Sprintf("panic: %v", r),
			}
		}
		outcome := metrics.OutcomeFailure
		if result.Success {
			outcome = metrics.OutcomeSuccess
		}
		metrics.WebhookTests.WithLabelValues(outcome).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return failure(started, err)
		}
		started = time.Now()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(testPayload))
	if err != nil {
		return failure(started, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return failure(started, err)
	}
	defer resp.Body.Close()

	// Read a little more than needed so a multi-byte rune at the boundary is not cut short.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLimit*4))

	return Result{
		Success:     true,
		StatusCode:  resp.StatusCode,
		ElapsedMs:   time.Since(started).Milliseconds(),
		BodySnippet: snippet(string(body)),
	}
}

func failure(started time.Time, err error) Result {
	return Result{
		Success:   false,
		ElapsedMs: time.Since(started).Milliseconds(),
		Error:     err.Error(),
	}
}

// snippet returns at most the first snippetLimit characters of s.
func snippet(s string) string {
	count := 0
	for idx := range s {
		if count == snippetLimit {
			return s[:idx]
		}
		count++
	}
	return s
}
