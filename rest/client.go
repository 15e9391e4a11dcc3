// Package rest provides the HTTP transport for FHIR operations.
//
// A Client posts raw request bodies to "<base>/<path>" and returns the raw
// response body. Non-success responses become *txclient.OperationFailedError
// carrying the server's OperationOutcome when one is present. The client
// never retries and never caches.
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/pkg/logger"
)

const (
	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"

	// maxResponseSize bounds how much of a response body is read (64MB).
	maxResponseSize = 64 * 1024 * 1024

	tracerName = "github.com/gofhir/txclient/rest"
)

// Client executes FHIR operations against one server base URL.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	opts       *txclient.Options
	limiter    *rate.Limiter
	tracer     trace.Tracer
	log        *logger.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...txclient.Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	o := txclient.Apply(opts...)

	httpClient := o.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.Timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		opts:       o,
		tracer:     o.TracerProvider.Tracer(tracerName),
		log:        o.Logger,
	}
	if o.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.RateLimit), o.RateBurst)
	}
	return c, nil
}

// BaseURL returns the server base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Version returns the FHIR version negotiated with the server.
func (c *Client) Version() txclient.FHIRVersion {
	return c.opts.Version
}

// Execute sends body to path with method and returns the raw response body.
// path is relative to the base URL, e.g. "ValueSet/123/$expand".
func (c *Client) Execute(ctx context.Context, path, method string, body []byte) ([]byte, error) {
	operation := operationName(path)
	method = strings.ToUpper(method)

	ctx, span := c.tracer.Start(ctx, "fhir "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("fhir.operation", operation),
			attribute.String("fhir.path", path),
			attribute.String("http.method", method),
		),
	)
	defer span.End()

	start := time.Now()
	raw, status, err := c.do(ctx, path, method, body)
	elapsed := time.Since(start)

	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if m := c.opts.Metrics; m != nil {
		m.RecordRequest(operation, elapsed, err == nil)
		m.RecordBytes(len(body), len(raw))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Debug("%s %s failed after %v: %v", method, path, elapsed, err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	c.log.Debug("%s %s -> %d (%d bytes, %v)", method, path, status, len(raw), elapsed)
	return raw, nil
}

// do performs the round trip. status is zero when no response was received.
func (c *Client) do(ctx context.Context, path, method string, body []byte) ([]byte, int, error) {
	fail := func(status int, outcome *txclient.OperationOutcome, err error) ([]byte, int, error) {
		return nil, status, &txclient.OperationFailedError{
			Operation:  path,
			Method:     method,
			StatusCode: status,
			Outcome:    outcome,
			Err:        err,
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(0, nil, fmt.Errorf("rate limit: %w", err))
		}
	}

	var reqBody io.Reader = http.NoBody
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reqBody)
	if err != nil {
		return fail(0, nil, fmt.Errorf("failed to create request: %w", err))
	}
	c.setHeaders(req, len(body) > 0)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, nil, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fail(resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, parseOutcome(raw), nil)
	}
	return raw, resp.StatusCode, nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	mediaType := c.opts.Version.MediaType()
	req.Header.Set("Accept", mediaType)
	if hasBody {
		req.Header.Set("Content-Type", mediaType)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if c.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.BearerToken)
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
}

// parseOutcome returns the OperationOutcome in raw, or nil if raw is not one.
func parseOutcome(raw []byte) *txclient.OperationOutcome {
	if len(raw) == 0 {
		return nil
	}
	var oo txclient.OperationOutcome
	if err := json.Unmarshal(raw, &oo); err != nil {
		return nil
	}
	if oo.ResourceType != txclient.ResourceTypeOperationOutcome {
		return nil
	}
	return &oo
}

// operationName returns the "$name" segment of path, or path itself.
func operationName(path string) string {
	if i := strings.LastIndex(path, "$"); i >= 0 {
		return path[i:]
	}
	return path
}

// Parse decodes a raw resource into out. Types implementing json.Unmarshaler
// decode themselves, so their errors come back unchanged.
func Parse(raw []byte, out any) error {
	if u, ok := out.(json.Unmarshaler); ok {
		return u.UnmarshalJSON(raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %T: %w", out, err)
	}
	return nil
}
