package discovery

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
)

// DefaultConcurrency bounds the number of description fetches in flight.
const DefaultConcurrency = 4

// Logger defines the logging interface used by this package.
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

// Discoverer searches for devices and builds a tree for each answer.
type Discoverer struct {
	searcher    Searcher
	builder     *control.Builder
	concurrency int
	useURLBase  bool
	logger      Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithConcurrency sets how many trees are built at once.
func WithConcurrency(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithURLBase builds trees with Builder.FromLocation, honouring URLBase,
// instead of Builder.Create.
func WithURLBase(enabled bool) Option {
	return func(d *Discoverer) {
		d.useURLBase = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(d *Discoverer) {
		d.logger = l
	}
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(searcher Searcher, builder *control.Builder, opts ...Option) *Discoverer {
	d := &Discoverer{
		searcher:    searcher,
		builder:     builder,
		concurrency: DefaultConcurrency,
		logger:      noopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search runs the search for kinds (every standard device type when none
// are given) and returns one response per distinct location.
func (d *Discoverer) Search(ctx context.Context, kinds ...*schema.Kind) ([]Response, error) {
	targets := make([]string, 0, len(kinds))
	for _, k := range kinds {
		targets = append(targets, k.URN)
	}

	responses, err := d.searcher.Search(ctx, targets...)
	if err != nil {
		return nil, err
	}

	// Every device and service of a tree answers with the same location;
	// the tree only needs building once.
	seen := make(map[string]struct{}, len(responses))
	out := responses[:0:0]
	for _, r := range responses {
		if _, dup := seen[r.Location]; dup {
			continue
		}
		seen[r.Location] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

// Discover searches and builds a device tree for every distinct location.
// The first failure cancels the remaining builds and is returned with no
// devices. Devices are returned in response order.
func (d *Discoverer) Discover(ctx context.Context, kinds ...*schema.Kind) ([]*control.Device, error) {
	responses, err := d.Search(ctx, kinds...)
	if err != nil {
		return nil, err
	}

	devices := make([]*control.Device, len(responses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, r := range responses {
		i, r := i, r
		g.Go(func() error {
			dev, err := d.build(gctx, r.Location)
			if err != nil {
				return fmt.Errorf("building %s: %w", r.Location, err)
			}
			devices[i] = dev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return devices, nil
}

// Result is the outcome of building one response.
type Result struct {
	Response Response
	Device   *control.Device
	Err      error
}

// DiscoverEach searches and builds every distinct location, calling fn once
// per response whether or not the build succeeded. Calls to fn are
// serialised. Only a search failure is returned.
func (d *Discoverer) DiscoverEach(ctx context.Context, fn func(Result), kinds ...*schema.Kind) error {
	responses, err := d.Search(ctx, kinds...)
	if err != nil {
		return err
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.concurrency)
	for _, r := range responses {
		r := r
		g.Go(func() error {
			dev, err := d.build(ctx, r.Location)
			if err != nil {
				d.logger.Warn("device description failed", "location", r.Location, "type", r.Type, "error", err)
			}
			mu.Lock()
			defer mu.Unlock()
			fn(Result{Response: r, Device: dev, Err: err})
			return nil
		})
	}
	return g.Wait()
}

func (d *Discoverer) build(ctx context.Context, location string) (*control.Device, error) {
	if d.useURLBase {
		return d.builder.FromLocation(ctx, location)
	}
	return d.builder.Create(ctx, location)
}
