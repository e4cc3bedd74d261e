package control

import (
	"net/url"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
)

// Device is one node of a UPnP device tree.
type Device struct {
	// Name is the Unique Device Name (UDN), e.g. "uuid:4d696e69-444c-164e-9d41-b827eb54e2d1".
	Name string

	// Type is the deviceType URN as declared by the description.
	Type string

	// Kind is the registered schema kind for Type. Devices of different
	// versions of the same schema share one Kind.
	Kind *schema.Kind

	// Version is the schema version carried by Type, or 0 when Type is not
	// a standard device URN.
	Version int

	FriendlyName     string
	Manufacturer     string
	ManufacturerURL  *url.URL
	ModelDescription string
	ModelName        string
	ModelNumber      string
	ModelURL         *url.URL
	PresentationURL  *url.URL
	SerialNumber     string
	UPC              string

	// URL is the base against which relative service URLs are resolved.
	URL *url.URL

	// Location is the description URL the tree was fetched from.
	// It is set on every node of a tree built from a location.
	Location string

	parent      *Device
	subDevices  []*Device
	devices     []*Device
	subServices []*Service
	services    []*Service
}

// SubDevices returns the devices embedded directly in d, in document order.
func (d *Device) SubDevices() []*Device {
	return append([]*Device(nil), d.subDevices...)
}

// Devices returns every descendant of d, depth first: each sub-device
// followed by its own descendants.
func (d *Device) Devices() []*Device {
	return append([]*Device(nil), d.devices...)
}

// SubServices returns the services declared directly on d.
func (d *Device) SubServices() []*Service {
	return append([]*Service(nil), d.subServices...)
}

// Services returns the services of d followed by those of its descendants,
// with duplicates removed (first occurrence wins).
func (d *Device) Services() []*Service {
	return append([]*Service(nil), d.services...)
}

// Parent returns the device d is embedded in, or nil for a root device.
func (d *Device) Parent() *Device {
	return d.parent
}

// IsRoot reports whether d is the root of its tree.
func (d *Device) IsRoot() bool {
	return d.parent == nil
}

// Root returns the root device of d's tree.
func (d *Device) Root() *Device {
	cur := d
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Walk calls fn for d and then each descendant in depth-first order.
// Walking stops when fn returns false.
func (d *Device) Walk(fn func(*Device) bool) {
	if !fn(d) {
		return
	}
	for _, dev := range d.devices {
		if !fn(dev) {
			return
		}
	}
}

// FindDevice returns the device in d's tree (including d) with the given UDN.
func (d *Device) FindDevice(udn string) (*Device, bool) {
	var found *Device
	d.Walk(func(dev *Device) bool {
		if dev.Name == udn {
			found = dev
			return false
		}
		return true
	})
	return found, found != nil
}

// ServicesByType returns the services reachable from d whose serviceType
// equals urn.
func (d *Device) ServicesByType(urn string) []*Service {
	var out []*Service
	for _, s := range d.services {
		if s.Type == urn {
			out = append(out, s)
		}
	}
	return out
}

// Service returns the service reachable from d with the given serviceId.
func (d *Device) Service(serviceID string) (*Service, bool) {
	for _, s := range d.services {
		if s.ID == serviceID {
			return s, true
		}
	}
	return nil, false
}

// ResolveURL resolves ref against the device's base URL.
func (d *Device) ResolveURL(ref *url.URL) *url.URL {
	if ref == nil {
		return nil
	}
	if d.URL == nil {
		return ref
	}
	return d.URL.ResolveReference(ref)
}
