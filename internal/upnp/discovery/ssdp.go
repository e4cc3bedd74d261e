package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/huin/goupnp/httpu"
	"github.com/huin/goupnp/ssdp"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
)

// Search defaults.
const (
	DefaultMaxWaitSeconds = 2
	DefaultNumSends       = 3
)

// Response is one answer to an M-SEARCH.
type Response struct {
	// Type is the search target the device answered for (the ST header).
	Type string `json:"type"`

	// Location is the URL of the root device description.
	Location string `json:"location"`

	USN    string `json:"usn,omitempty"`
	Server string `json:"server,omitempty"`
}

// Searcher finds description locations.
//
// With no targets, Search returns every answer whose type is a standard
// device type. Otherwise it searches for each target in turn.
type Searcher interface {
	Search(ctx context.Context, targets ...string) ([]Response, error)
}

// HTTPUClient sends HTTP-over-UDP requests bounded by the request
// context. *httpu.HTTPUClient satisfies it.
type HTTPUClient interface {
	ssdp.HTTPUClientCtx
}

// SSDPConfig configures an SSDPSearcher. Zero values take the defaults.
type SSDPConfig struct {
	// MaxWaitSeconds is the MX value: how long devices may delay their answer.
	MaxWaitSeconds int

	// NumSends is how many copies of each M-SEARCH are sent; UDP is lossy.
	NumSends int
}

// SSDPSearcher implements Searcher with SSDP multicast search.
type SSDPSearcher struct {
	client   HTTPUClient
	maxWait  int
	numSends int
	logger   Logger
}

// NewSSDPSearcher opens a UDP socket for multicast search.
// Call Close when done.
func NewSSDPSearcher(cfg SSDPConfig, logger Logger) (*SSDPSearcher, error) {
	client, err := httpu.NewHTTPUClient()
	if err != nil {
		return nil, fmt.Errorf("opening SSDP socket: %w", err)
	}
	return NewSSDPSearcherWithClient(client, cfg, logger), nil
}

// NewSSDPSearcherWithClient creates a searcher over an existing client.
func NewSSDPSearcherWithClient(client HTTPUClient, cfg SSDPConfig, logger Logger) *SSDPSearcher {
	if cfg.MaxWaitSeconds < 1 {
		cfg.MaxWaitSeconds = DefaultMaxWaitSeconds
	}
	if cfg.NumSends < 1 {
		cfg.NumSends = DefaultNumSends
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &SSDPSearcher{
		client:   client,
		maxWait:  cfg.MaxWaitSeconds,
		numSends: cfg.NumSends,
		logger:   logger,
	}
}

// Search implements Searcher.
func (s *SSDPSearcher) Search(ctx context.Context, targets ...string) ([]Response, error) {
	filter := len(targets) == 0
	if filter {
		targets = []string{ssdp.SSDPAll}
	}

	seen := make(map[Response]struct{})
	var out []Response
	for _, target := range targets {
		raw, err := s.searchOne(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("ssdp search %s: %w", target, err)
		}

		for _, r := range raw {
			resp, ok := toResponse(r)
			if r.Body != nil {
				r.Body.Close()
			}
			if !ok {
				continue
			}
			if filter && !strings.HasPrefix(resp.Type, upnp.DeviceSchemaPrefix) {
				continue
			}
			key := Response{Type: resp.Type, Location: resp.Location}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, resp)
		}
		s.logger.Debug("ssdp search complete", "target", target, "answers", len(raw))
	}
	return out, nil
}

// searchOne sends one M-SEARCH. RawSearch derives MX from the context
// deadline, which also bounds how long answers are collected.
func (s *SSDPSearcher) searchOne(ctx context.Context, target string) ([]*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.maxWait+1)*time.Second)
	defer cancel()
	return ssdp.RawSearch(ctx, s.client, target, s.numSends)
}

// Close releases the underlying socket if the client owns one.
func (s *SSDPSearcher) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func toResponse(r *http.Response) (Response, bool) {
	loc, err := r.Location()
	if err != nil {
		return Response{}, false
	}
	st := strings.TrimSpace(r.Header.Get("ST"))
	if st == "" {
		return Response{}, false
	}
	return Response{
		Type:     st,
		Location: loc.String(),
		USN:      r.Header.Get("USN"),
		Server:   r.Header.Get("Server"),
	}, true
}
