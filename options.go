package txclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gofhir/txclient/pkg/logger"
)

const (
	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "gofhir-txclient/" + ClientVersion

	// ClientVersion is the version of this module.
	ClientVersion = "0.3.0"
)

// Option configures a terminology client.
type Option func(*Options)

// Options holds all configuration for a terminology client.
type Options struct {
	// Transport
	HTTPClient *http.Client
	Timeout    time.Duration
	Version    FHIRVersion
	UserAgent  string
	Headers    map[string]string

	// BearerToken is sent as "Authorization: Bearer <token>" when set.
	BearerToken string

	// Client-side rate limit in requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Observability
	Logger         *logger.Logger
	TracerProvider trace.TracerProvider
	Metrics        *Metrics
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Timeout:        DefaultTimeout,
		Version:        R4,
		UserAgent:      DefaultUserAgent,
		Headers:        make(map[string]string),
		RateBurst:      1,
		Logger:         logger.Nop(),
		TracerProvider: otel.GetTracerProvider(),
	}
}

// Apply returns DefaultOptions with opts applied in order.
func Apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// --- Transport Options ---

// WithHTTPClient sets a custom HTTP client. It is used as is: WithTimeout
// only applies to the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithTimeout sets the HTTP timeout. Use 0 for no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithVersion sets the FHIR version negotiated with the server.
// Unsupported versions are ignored.
func WithVersion(v FHIRVersion) Option {
	return func(o *Options) {
		if v.IsValid() {
			o.Version = v
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *Options) {
		if ua != "" {
			o.UserAgent = ua
		}
	}
}

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		o.Headers[key] = value
	}
}

// WithBearerToken sets the bearer token used for authorization.
func WithBearerToken(token string) Option {
	return func(o *Options) {
		o.BearerToken = token
	}
}

// WithRateLimit limits outgoing requests to rps per second with the given burst.
// Use rps <= 0 to disable limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Options) {
		o.RateLimit = rps
		if burst > 0 {
			o.RateBurst = burst
		}
	}
}

// --- Observability Options ---

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		if tp != nil {
			o.TracerProvider = tp
		}
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}
