package upnp

import "errors"

// Schema prefixes and XML namespaces defined by the UPnP Device Architecture 1.0.
const (
	// DeviceSchemaPrefix prefixes every standard deviceType URN.
	DeviceSchemaPrefix = "urn:schemas-upnp-org:device"

	// ServiceSchemaPrefix prefixes every standard serviceType URN.
	ServiceSchemaPrefix = "urn:schemas-upnp-org:service"

	// DeviceNamespace is the default namespace of device description documents.
	DeviceNamespace = "urn:schemas-upnp-org:device-1-0"

	// ServiceNamespace is the default namespace of SCPD documents.
	ServiceNamespace = "urn:schemas-upnp-org:service-1-0"
)

// Error kinds.
var (
	// ErrFetch is returned when a description document cannot be retrieved:
	// the location is unreachable, the connection fails, or the response is not 2xx.
	ErrFetch = errors.New("upnp: description fetch failed")

	// ErrNotFound is returned alongside ErrFetch when the location answered 404.
	ErrNotFound = errors.New("upnp: description not found")

	// ErrMalformedDescription is returned when a required element is missing,
	// a URL-typed element does not parse, or the document is not valid XML.
	ErrMalformedDescription = errors.New("upnp: malformed description")

	// ErrInvalidArgument is returned when a constructor is called without the
	// inputs its contract requires.
	ErrInvalidArgument = errors.New("upnp: invalid argument")

	// ErrUnknownType is returned in strict mode when a deviceType does not
	// follow the urn:schemas-upnp-org:device:<Name>:<version> pattern.
	ErrUnknownType = errors.New("upnp: unknown device type")
)
