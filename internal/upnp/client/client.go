// Package client assembles the description fetcher, document cache, tree
// builder and SSDP discoverer from configuration.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/discovery"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
)

// Logger is satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client holds the wired UPnP components.
type Client struct {
	Kinds   *schema.Registry
	HTTP    *description.HTTPSource
	Cache   *description.CachingSource // nil when fetch.cache_size is 0
	Source  description.Source
	Builder *control.Builder

	disc   config.DiscoveryConfig
	logger Logger

	mu         sync.Mutex
	searcher   *discovery.SSDPSearcher
	discoverer *discovery.Discoverer
}

// New wires the fetch pipeline. No sockets are opened until Discoverer is
// called.
func New(fetch config.FetchConfig, disc config.DiscoveryConfig, logger Logger) (*Client, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	httpSrc := description.NewHTTPSource(description.HTTPConfig{
		Timeout:      time.Duration(fetch.Timeout) * time.Second,
		RetryMax:     fetch.RetryMax,
		RetryWaitMin: time.Duration(fetch.RetryWaitMin) * time.Millisecond,
		RetryWaitMax: time.Duration(fetch.RetryWaitMax) * time.Millisecond,
		MaxBodyBytes: fetch.MaxBodyBytes,
	}, logger)

	c := &Client{
		Kinds:  schema.NewRegistry(schema.WithStrict(disc.StrictTypes)),
		HTTP:   httpSrc,
		Source: httpSrc,
		disc:   disc,
		logger: logger,
	}

	if fetch.CacheSize > 0 {
		cache, err := description.NewCachingSource(httpSrc, fetch.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating description cache: %w", err)
		}
		c.Cache = cache
		c.Source = cache
	}

	c.Builder = control.NewBuilder(c.Source, c.Kinds,
		control.WithServiceFactory(&control.DefaultServiceFactory{Source: c.Source, LoadSCPD: fetch.LoadSCPD}),
		control.WithLogger(logger),
	)
	return c, nil
}

// Discoverer returns the SSDP discoverer, opening the search socket on
// first use.
func (c *Client) Discoverer() (*discovery.Discoverer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discoverer != nil {
		return c.discoverer, nil
	}

	searcher, err := discovery.NewSSDPSearcher(discovery.SSDPConfig{
		MaxWaitSeconds: c.disc.MaxWait,
		NumSends:       c.disc.NumSends,
	}, c.logger)
	if err != nil {
		return nil, err
	}
	c.searcher = searcher
	c.discoverer = c.NewDiscoverer(searcher)
	return c.discoverer, nil
}

// NewDiscoverer builds a discoverer over any searcher with the configured
// concurrency and URLBase handling.
func (c *Client) NewDiscoverer(searcher discovery.Searcher) *discovery.Discoverer {
	return discovery.NewDiscoverer(searcher, c.Builder,
		discovery.WithConcurrency(c.disc.Concurrency),
		discovery.WithURLBase(c.disc.UseURLBase),
		discovery.WithLogger(c.logger),
	)
}

// Close releases the SSDP socket if one was opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searcher == nil {
		return nil
	}
	err := c.searcher.Close()
	c.searcher, c.discoverer = nil, nil
	return err
}
