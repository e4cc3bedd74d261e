package schema

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
)

// Registry resolves device type URNs to kinds.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Registration of an unseen
//     name is serialised, so concurrent discovery of the same type yields
//     exactly one Kind.
type Registry struct {
	mu     sync.RWMutex
	kinds  map[string]*Kind
	strict bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes Resolve reject device types that do not follow the
// standard schema pattern instead of registering the raw URN as a kind.
func WithStrict(strict bool) Option {
	return func(r *Registry) {
		r.strict = strict
	}
}

// NewRegistry creates a Registry preloaded with the well-known device kinds.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		kinds: make(map[string]*Kind, len(wellKnown)),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, name := range wellKnown {
		r.kinds[name] = &Kind{
			Name:     name,
			URN:      KindURN(name),
			Standard: true,
		}
	}
	return r
}

// Strict reports whether non-standard device types are rejected.
func (r *Registry) Strict() bool {
	return r.strict
}

// Resolve returns the Kind for a deviceType URN, registering it on first sight.
//
// A URN outside the standard pattern fails with upnp.ErrUnknownType in strict
// mode. Otherwise the whole URN becomes the kind name and URN.
func (r *Registry) Resolve(deviceType string) (*Kind, error) {
	deviceType = strings.TrimSpace(deviceType)
	if deviceType == "" {
		return nil, fmt.Errorf("%w: empty device type", upnp.ErrInvalidArgument)
	}

	name, _, ok := ParseType(deviceType)
	urn := ""
	if ok {
		urn = KindURN(name)
	} else {
		if r.strict {
			return nil, fmt.Errorf("%w: %q", upnp.ErrUnknownType, deviceType)
		}
		name, urn = deviceType, deviceType
	}

	r.mu.RLock()
	kind, found := r.kinds[name]
	r.mu.RUnlock()
	if found {
		return kind, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have registered the name between the two locks.
	if kind, found = r.kinds[name]; found {
		return kind, nil
	}
	kind = &Kind{Name: name, URN: urn}
	r.kinds[name] = kind
	return kind, nil
}

// Lookup returns the registered Kind for a type name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[name]
	return kind, ok
}

// Kinds returns every registered kind sorted by name.
func (r *Registry) Kinds() []*Kind {
	r.mu.RLock()
	kinds := make([]*Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		kinds = append(kinds, k)
	}
	r.mu.RUnlock()

	slices.SortFunc(kinds, func(a, b *Kind) int {
		return strings.Compare(a.Name, b.Name)
	})
	return kinds
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}
