package control

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
)

// Logger defines the logging interface used by the Builder.
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

// Builder constructs Device trees from description documents.
//
// Thread Safety:
//   - A Builder holds no per-build state. Concurrent builds share only the
//     schema registry, which is itself safe for concurrent use.
type Builder struct {
	source   description.Source
	registry *schema.Registry
	services ServiceFactory
	logger   Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithServiceFactory replaces the default service factory.
func WithServiceFactory(f ServiceFactory) BuilderOption {
	return func(b *Builder) {
		b.services = f
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder that fetches documents from source and
// resolves device kinds through registry.
func NewBuilder(source description.Source, registry *schema.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{
		source:   source,
		registry: registry,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.services == nil {
		b.services = &DefaultServiceFactory{Source: source}
	}
	return b
}

// Create fetches the description at location and builds its device tree.
// The tree's base URL is location + "/"; URLBase is not consulted.
func (b *Builder) Create(ctx context.Context, location string) (*Device, error) {
	doc, err := b.fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	devEl, err := rootDevice(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	base, err := locationBase(location)
	if err != nil {
		return nil, err
	}
	return b.buildRoot(ctx, devEl, base, location)
}

// FromLocation fetches the description at location and builds its device
// tree. The base URL is the document's URLBase when present, otherwise
// location + "/".
func (b *Builder) FromLocation(ctx context.Context, location string) (*Device, error) {
	doc, err := b.fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	devEl, err := rootDevice(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	base, err := urlBase(doc.Root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	if base == nil {
		if base, err = locationBase(location); err != nil {
			return nil, err
		}
	}
	return b.buildRoot(ctx, devEl, base, location)
}

// FromElement builds a device tree from an already parsed device element.
// base is the URL inherited from the enclosing description and must be an
// absolute URL.
func (b *Builder) FromElement(ctx context.Context, el *description.Element, base *url.URL) (*Device, error) {
	if el == nil {
		return nil, fmt.Errorf("%w: device element is required", upnp.ErrInvalidArgument)
	}
	if base == nil {
		return nil, fmt.Errorf("%w: base URL is required with a device element", upnp.ErrInvalidArgument)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("%w: base URL %q is not absolute", upnp.ErrInvalidArgument, base)
	}
	return b.buildRoot(ctx, el, base, "")
}

func (b *Builder) fetch(ctx context.Context, location string) (*description.Document, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("%w: location is required", upnp.ErrInvalidArgument)
	}
	doc, err := b.source.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// buildRoot builds the tree and checks tree-wide constraints.
func (b *Builder) buildRoot(ctx context.Context, el *description.Element, base *url.URL, location string) (*Device, error) {
	root, err := b.build(ctx, el, base, nil)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var dupErr error
	root.Walk(func(d *Device) bool {
		if _, dup := seen[d.Name]; dup {
			dupErr = fmt.Errorf("%w: duplicate UDN %s", upnp.ErrMalformedDescription, d.Name)
			return false
		}
		seen[d.Name] = struct{}{}
		d.Location = location
		return true
	})
	if dupErr != nil {
		return nil, dupErr
	}

	b.logger.Debug("device tree built",
		"udn", root.Name,
		"type", root.Type,
		"devices", len(root.devices),
		"services", len(root.services),
	)
	return root, nil
}

// build constructs one device and, recursively, its embedded devices.
func (b *Builder) build(ctx context.Context, el *description.Element, base *url.URL, parent *Device) (*Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Embedded devices normally inherit the base; a URLBase on the device
	// element itself overrides it for its subtree.
	override, err := urlBase(el)
	if err != nil {
		return nil, err
	}
	if override != nil {
		base = override
	}

	d := &Device{URL: base, parent: parent}
	if err := parseAttributes(d, el); err != nil {
		return nil, err
	}

	if d.Kind, err = b.registry.Resolve(d.Type); err != nil {
		return nil, fmt.Errorf("device %s: %w", d.Name, err)
	}
	_, d.Version, _ = schema.ParseType(d.Type)
	if !d.Kind.Standard && d.Kind.Name == d.Type {
		b.logger.Warn("non-standard device type", "udn", d.Name, "type", d.Type)
	}

	for _, subEl := range el.ChildrenNS(upnp.DeviceNamespace, "deviceList", "device") {
		sub, err := b.build(ctx, subEl, d.URL, d)
		if err != nil {
			return nil, fmt.Errorf("embedded in %s: %w", d.Name, err)
		}
		d.subDevices = append(d.subDevices, sub)
	}
	d.devices = flattenDevices(d.subDevices)

	for _, svcEl := range el.ChildrenNS(upnp.DeviceNamespace, "serviceList", "service") {
		svc, err := b.services.NewService(ctx, svcEl, d.URL)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", d.Name, err)
		}
		if svc == nil {
			return nil, fmt.Errorf("device %s: %w: service factory returned no service", d.Name, upnp.ErrMalformedDescription)
		}
		if svc.device == nil {
			svc.device = d
		}
		d.subServices = append(d.subServices, svc)
	}
	d.services = collectServices(d.subServices, d.devices)

	return d, nil
}

// parseAttributes fills the descriptive fields of d from a device element.
func parseAttributes(d *Device, el *description.Element) error {
	required := []struct {
		name string
		dst  *string
	}{
		{"deviceType", &d.Type},
		{"UDN", &d.Name},
		{"friendlyName", &d.FriendlyName},
		{"manufacturer", &d.Manufacturer},
		{"modelName", &d.ModelName},
	}
	for _, f := range required {
		v, ok := el.ChildText(f.name)
		if !ok || v == "" {
			return fmt.Errorf("%w: device missing %s", upnp.ErrMalformedDescription, f.name)
		}
		*f.dst = v
	}

	d.ModelDescription, _ = el.ChildText("modelDescription")
	d.ModelNumber, _ = el.ChildText("modelNumber")
	d.SerialNumber, _ = el.ChildText("serialNumber")
	d.UPC, _ = el.ChildText("UPC")

	var err error
	if d.ManufacturerURL, err = parseOptionalURL(el, "manufacturerURL"); err != nil {
		return err
	}
	if d.ModelURL, err = parseOptionalURL(el, "modelURL"); err != nil {
		return err
	}
	if d.PresentationURL, err = parseOptionalURL(el, "presentationURL"); err != nil {
		return err
	}
	return nil
}

// rootDevice returns the root device element of a description document.
func rootDevice(doc *description.Document) (*description.Element, error) {
	if doc == nil || doc.Root == nil || doc.Root.Local() != "root" {
		return nil, fmt.Errorf("%w: missing root element", upnp.ErrMalformedDescription)
	}
	el := doc.Root.Child("device")
	if el == nil {
		return nil, fmt.Errorf("%w: missing device element", upnp.ErrMalformedDescription)
	}
	if t, ok := el.ChildText("deviceType"); !ok || t == "" {
		return nil, fmt.Errorf("%w: device missing deviceType", upnp.ErrMalformedDescription)
	}
	return el, nil
}

// urlBase parses the URLBase child of el. It returns nil when there is none.
func urlBase(el *description.Element) (*url.URL, error) {
	u, err := parseOptionalURL(el, "URLBase")
	if err != nil || u == nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: URLBase %q is not absolute", upnp.ErrMalformedDescription, u)
	}
	return u, nil
}

// locationBase derives the default base URL, location + "/".
func locationBase(location string) (*url.URL, error) {
	u, err := url.Parse(location + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: location %q: %w", upnp.ErrInvalidArgument, location, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: location %q is not absolute", upnp.ErrInvalidArgument, location)
	}
	return u, nil
}
