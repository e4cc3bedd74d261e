package scanner

import (
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/inventory"
)

// Event types published on MQTT and broadcast to WebSocket clients.
const (
	EventDeviceDiscovered = "device.discovered"
	EventDeviceLost       = "device.lost"
	EventScanCompleted    = "scan.completed"
)

// Scan triggers.
const (
	TriggerStartup  = "startup"
	TriggerInterval = "interval"
	TriggerAPI      = "api"
	TriggerMQTT     = "mqtt"
)

// Event is the payload of a discovery event.
type Event struct {
	Type      string            `json:"type"`
	ScanID    string            `json:"scan_id"`
	Timestamp time.Time         `json:"timestamp"`
	Device    *inventory.Record `json:"device,omitempty"`
	Scan      *Summary          `json:"scan,omitempty"`
}

// Summary describes a finished scan.
type Summary struct {
	inventory.Scan
	Trigger string   `json:"trigger"`
	New     []string `json:"new,omitempty"`
	LostUDN []string `json:"lost_udns,omitempty"`
}

// Duration is the wall time the scan took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
