// Package gateway is the HTTP client for the SignAware backend API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"signaware-client/internal/shared/metrics"
	"signaware-client/internal/shared/telemetry"
)

var tracer = otel.Tracer("signaware.internal.gateway")

const (
	defaultTimeout    = 60 * time.Second
	defaultRetryDelay = 300 * time.Millisecond
	maxErrorBodyBytes = 64 << 10
)

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// Config controls the backend location and upload limits.
type Config struct {
	BaseURL          string
	MaxFileSize      int64
	AllowedFileTypes []string
	Timeout          time.Duration
}

// Client calls the backend API. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenSource
	maxFileSize int64
	allowed     []string
	metrics     *metrics.Metrics
	retryDelay  time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records per-endpoint call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetryDelay sets the pause before retrying an idempotent call.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// New builds a Client. tokens may be nil for unauthenticated use.
func New(cfg Config, tokens TokenSource, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	allowed := make([]string, 0, len(cfg.AllowedFileTypes))
	for _, ext := range cfg.AllowedFileTypes {
		if ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")); ext != "" {
			allowed = append(allowed, ext)
		}
	}
	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		tokens:      tokens,
		maxFileSize: cfg.MaxFileSize,
		allowed:     allowed,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the versioned API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) bearer() string {
	if c.tokens == nil {
		return ""
	}
	return strings.TrimSpace(c.tokens.Token())
}

// call is one JSON request. name labels spans and metrics.
type call struct {
	name     string
	method   string
	endpoint string
	body     any
	out      any
}

func (c *Client) do(ctx context.Context, cl call) error {
	err := c.doOnce(ctx, cl)
	if err == nil || cl.method != http.MethodGet || !shouldRetry(err) {
		return err
	}
	telemetry.Warn("gateway.retry", map[string]any{
		"endpoint": cl.name,
		"attempt":  1,
		"error":    err.Error(),
	})
	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return &TransportError{Message: "request cancelled", Err: ctx.Err()}
	}
	return c.doOnce(ctx, cl)
}

func (c *Client) doOnce(ctx context.Context, cl call) (err error) {
	ctx, span := tracer.Start(ctx, "gateway."+cl.name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("gateway.endpoint", cl.endpoint),
	)
	start := time.Now()
	status := 0
	defer func() {
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.ObserveGatewayCall(cl.name, status, time.Since(start).Seconds())
	}()

	var body io.Reader
	if cl.body != nil {
		payload, mErr := json.Marshal(cl.body)
		if mErr != nil {
			return fmt.Errorf("encode %s request: %w", cl.name, mErr)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.endpoint, body)
	if err != nil {
		return &TransportError{Message: "invalid request: " + err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.Error("gateway.request.failed", map[string]any{"endpoint": cl.name, "error": err.Error()})
		return networkError(err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		msg := errorMessage(raw, fmt.Sprintf("HTTP error! status: %d", resp.StatusCode))
		telemetry.Error("gateway.request.rejected", map[string]any{
			"endpoint": cl.name,
			"status":   resp.StatusCode,
			"message":  msg,
		})
		return &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}

	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &TransportError{StatusCode: resp.StatusCode, Message: "Invalid response format", Err: err}
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func networkError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &TransportError{Message: "request cancelled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return &TransportError{Message: "request timed out", Err: err}
	}
	return &TransportError{Message: "Network error. Please check your connection.", Err: err}
}

// errorMessage extracts error | message | detail from a JSON error body. Each
// may be a string or an object with a message field.
func errorMessage(raw []byte, fallback string) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallback
	}
	for _, key := range []string{"error", "message", "detail"} {
		if msg := rawMessage(body[key]); msg != "" {
			return msg
		}
	}
	return fallback
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Msg
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				parts = append(parts, item.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
