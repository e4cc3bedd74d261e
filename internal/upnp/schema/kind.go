package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
)

// Kind describes one device schema.
type Kind struct {
	// Name is the type segment of the URN, e.g. "MediaServer".
	Name string

	// URN is the version 1 schema URN for the kind and the SSDP search
	// target used to find devices of this kind.
	URN string

	// Standard is true for kinds registered at startup from the built-in table.
	Standard bool
}

// String returns the kind name.
func (k *Kind) String() string {
	return k.Name
}

// KindURN returns the version 1 device schema URN for a type name.
func KindURN(name string) string {
	return fmt.Sprintf("%s:%s:1", upnp.DeviceSchemaPrefix, name)
}

// ParseType splits a device type URN of the form
// urn:schemas-upnp-org:device:<Name>:<version> into its name and version.
//
// ok is false when the URN does not carry the device schema prefix or has no
// name segment. A version that is not an integer is reported as 1.
func ParseType(deviceType string) (name string, version int, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(deviceType), upnp.DeviceSchemaPrefix+":")
	if !found {
		return "", 0, false
	}

	name, ver, found := strings.Cut(rest, ":")
	if !found || name == "" {
		return "", 0, false
	}

	if i := strings.IndexByte(ver, ':'); i >= 0 {
		ver = ver[:i]
	}
	version, err := strconv.Atoi(ver)
	if err != nil || version < 1 {
		version = 1
	}
	return name, version, true
}

// wellKnown lists the standardised device types registered by NewRegistry.
var wellKnown = []string{
	"Basic",
	"BinaryLight",
	"DimmableLight",
	"InternetGatewayDevice",
	"LANDevice",
	"MediaRenderer",
	"MediaServer",
	"WANConnectionDevice",
	"WANDevice",
	"WLANAccessPointDevice",
}
