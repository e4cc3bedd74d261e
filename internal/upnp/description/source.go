package description

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
)

// Default fetch settings.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultRetryMax     = 2
	DefaultRetryWaitMin = 200 * time.Millisecond
	DefaultRetryWaitMax = 2 * time.Second

	// DefaultMaxBodyBytes caps a description document. Real descriptions
	// are a few kilobytes; SCPDs of large media servers stay well under this.
	DefaultMaxBodyBytes = 1 << 20
)

// Source retrieves and parses a description document.
type Source interface {
	Fetch(ctx context.Context, location string) (*Document, error)
}

// Logger is the logging interface used by HTTPSource.
// It matches retryablehttp.LeveledLogger and *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// FetchObserver is notified after every fetch attempt sequence completes.
type FetchObserver func(location string, elapsed time.Duration, err error)

// HTTPConfig configures an HTTPSource. Zero durations and sizes take the
// defaults above; RetryMax is used as given.
type HTTPConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// HTTPSource fetches description documents over HTTP, retrying connection
// failures and 5xx responses.
//
// Thread Safety:
//   - Fetch is safe for concurrent use once the source is configured.
type HTTPSource struct {
	client    *retryablehttp.Client
	maxBody   int64
	userAgent string
	observer  FetchObserver
}

// NewHTTPSource creates an HTTPSource. logger may be nil.
func NewHTTPSource(cfg HTTPConfig, logger Logger) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = DefaultRetryWaitMin
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = max(DefaultRetryWaitMax, cfg.RetryWaitMin)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "GrayLogic-UPnP/1.0 UPnP/1.0"
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.HTTPClient.Timeout = cfg.Timeout
	if logger != nil {
		client.Logger = retryablehttp.LeveledLogger(logger)
	} else {
		client.Logger = nil
	}

	return &HTTPSource{
		client:    client,
		maxBody:   cfg.MaxBodyBytes,
		userAgent: cfg.UserAgent,
	}
}

// SetObserver registers a callback invoked after each Fetch.
// Must be called before the source is shared between goroutines.
func (s *HTTPSource) SetObserver(fn FetchObserver) {
	s.observer = fn
}

// Fetch retrieves and parses the document at location.
//
// Errors:
//   - upnp.ErrInvalidArgument: location is not a valid URL
//   - upnp.ErrFetch: transport failure or non-2xx status (404 also matches upnp.ErrNotFound)
//   - upnp.ErrMalformedDescription: body too large or not valid XML
func (s *HTTPSource) Fetch(ctx context.Context, location string) (*Document, error) {
	start := time.Now()
	doc, err := s.fetch(ctx, location)
	if s.observer != nil {
		s.observer(location, time.Since(start), err)
	}
	return doc, err
}

func (s *HTTPSource) fetch(ctx context.Context, location string) (*Document, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: location %q: %w", upnp.ErrInvalidArgument, location, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/xml, application/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", upnp.ErrFetch, location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %w: %s", upnp.ErrFetch, upnp.ErrNotFound, location)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", upnp.ErrFetch, location, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", upnp.ErrFetch, location, err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", upnp.ErrMalformedDescription, location, s.maxBody)
	}

	doc, err := ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", location, err)
	}
	return doc, nil
}
