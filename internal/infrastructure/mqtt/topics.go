package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "graylogic"

// Topics builds the MQTT topics used by the UPnP service. Everything lives
// under {prefix}/upnp so several Gray Logic services can share a broker.
//
//	topics := mqtt.NewTopics("graylogic")
//	topics.Device("uuid:1234")
//	// Returns: "graylogic/upnp/device/uuid:1234"
type Topics struct {
	Prefix string
}

// NewTopics returns a topic builder rooted at prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) base() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix + "/upnp"
	}
	return t.Prefix + "/upnp"
}

// Status is the retained service status topic, also used for the LWT.
//
// Example: graylogic/upnp/status
func (t Topics) Status() string {
	return t.base() + "/status"
}

// Device is the retained snapshot topic for one device.
//
// Example: graylogic/upnp/device/uuid:4d696e69-444c-164e
func (t Topics) Device(udn string) string {
	return t.base() + "/device/" + segment(udn)
}

// Event carries discovery events such as device.discovered.
//
// Example: graylogic/upnp/event/device.lost
func (t Topics) Event(name string) string {
	return t.base() + "/event/" + segment(name)
}

// Scan is the retained summary of the last discovery scan.
//
// Example: graylogic/upnp/scan
func (t Topics) Scan() string {
	return t.base() + "/scan"
}

// Command receives requests from other services.
//
// Example: graylogic/upnp/command/scan
func (t Topics) Command(name string) string {
	return t.base() + "/command/" + segment(name)
}

// AllDevices matches every device snapshot topic.
func (t Topics) AllDevices() string {
	return t.base() + "/device/+"
}

// AllCommands matches every command topic.
func (t Topics) AllCommands() string {
	return t.base() + "/command/+"
}

// segment makes s safe to use as a single topic level.
func segment(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
