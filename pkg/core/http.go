package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/osmterrain/pkg/monitoring"
	"github.com/NERVsystems/osmterrain/pkg/tracing"
)

// DefaultUserAgent identifies the builder to tile and Overpass servers
const DefaultUserAgent = "osmterrain/0.1.0"

// maxErrorBody bounds how much of an error response is kept for messages
const maxErrorBody = 512

// NewHTTPClient returns a pooled client with the given timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Requester performs rate-limited, traced and metered requests against
// one external service. Requests are made once; a non-200 status is
// returned as a ServiceError.
type Requester struct {
	Service   string
	Client    *http.Client
	Limiter   *rate.Limiter // nil disables rate limiting
	UserAgent string
	Logger    *slog.Logger
}

// UserAgentFor appends a contact address to the default user agent
func UserAgentFor(contact string) string {
	if contact == "" {
		return DefaultUserAgent
	}
	return fmt.Sprintf("%s (%s)", DefaultUserAgent, contact)
}

// NewRequester creates a requester allowing rps requests per second
func NewRequester(service string, client *http.Client, rps float64, logger *slog.Logger) *Requester {
	if client == nil {
		client = NewHTTPClient(30 * time.Second)
	}
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Requester{
		Service:   service,
		Client:    client,
		Limiter:   limiter,
		UserAgent: DefaultUserAgent,
		Logger:    logger.With("service", service),
	}
}

// waitForRateLimit blocks until the limiter admits the request
func (r *Requester) waitForRateLimit(ctx context.Context) error {
	if r.Limiter == nil || r.Limiter.Allow() {
		return nil
	}

	startWait := time.Now()
	tracing.AddEvent(ctx, "rate_limit_wait",
		trace.WithAttributes(attribute.String(tracing.AttrRateLimitService, r.Service)),
	)

	err := r.Limiter.Wait(ctx)

	waitDuration := time.Since(startWait)
	monitoring.RecordRateLimitWait(r.Service, waitDuration)
	tracing.SetAttributes(ctx,
		attribute.String(tracing.AttrRateLimitService, r.Service),
		attribute.Int64(tracing.AttrRateLimitWaitMs, waitDuration.Milliseconds()),
	)
	return err
}

// Do sends the request and returns the response on HTTP 200. The caller
// closes the body.
func (r *Requester) Do(ctx context.Context, req *http.Request, operation string) (*http.Response, error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("http.request %s %s", r.Service, operation),
		trace.WithAttributes(
			attribute.String(tracing.AttrHTTPMethod, req.Method),
			attribute.String(tracing.AttrServiceName, r.Service),
			attribute.String(tracing.AttrServiceOperation, operation),
			attribute.String("http.host", req.URL.Host),
		),
	)
	defer span.End()

	if err := r.waitForRateLimit(ctx); err != nil {
		monitoring.RecordError(r.Service, "rate_limit_wait_error")
		span.SetStatus(codes.Error, "rate limit wait cancelled")
		return nil, err
	}

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", r.UserAgent)

	start := time.Now()
	resp, err := r.Client.Do(req)
	duration := time.Since(start)

	if err != nil {
		monitoring.RecordExternalServiceRequest(r.Service, operation, duration, false)
		monitoring.RecordError(r.Service, "request_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		r.Logger.Error("request failed", "operation", operation, "url", req.URL.Host+req.URL.Path, "error", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewError(ErrNetworkError, err.Error()).
			WithGuidance("Check your internet connection and try again.")
	}

	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		monitoring.RecordExternalServiceRequest(r.Service, operation, duration, false)
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		r.Logger.Warn("request returned error status",
			"operation", operation,
			"status", resp.StatusCode,
			"url", req.URL.Host+req.URL.Path)

		msg := fmt.Sprintf("HTTP status %d", resp.StatusCode)
		if len(body) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, body)
		}
		return nil, ServiceError(r.Service, resp.StatusCode, msg)
	}

	monitoring.RecordExternalServiceRequest(r.Service, operation, duration, true)
	span.SetStatus(codes.Ok, "")
	r.Logger.Debug("request successful",
		"operation", operation,
		"duration", duration,
		"content_type", resp.Header.Get("Content-Type"))
	return resp, nil
}
