package influxdb

import (
	"net/url"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the service.
const (
	MeasurementScan      = "upnp_scan"
	MeasurementFetch     = "upnp_fetch"
	MeasurementInventory = "upnp_inventory"
)

// ScanMetric summarises one discovery scan.
type ScanMetric struct {
	ScanID    string
	Trigger   string
	Duration  time.Duration
	Responses int
	Devices   int
	Failures  int
	Lost      int
}

// WriteScan records the outcome of a discovery scan.
//
// The point is tagged with the trigger (startup, interval, api, mqtt) so
// scheduled and operator scans can be compared.
//
// Parameters:
//   - m: Counters and duration of the finished scan
//   - at: Scan finish time
func (c *Client) WriteScan(m ScanMetric, at time.Time) {
	c.writePoint(write.NewPoint(
		MeasurementScan,
		map[string]string{"trigger": m.Trigger},
		map[string]interface{}{
			"scan_id":     m.ScanID,
			"duration_ms": m.Duration.Milliseconds(),
			"responses":   m.Responses,
			"devices":     m.Devices,
			"failures":    m.Failures,
			"lost":        m.Lost,
		},
		at,
	))
}

// WriteFetch records the latency of one description fetch.
//
// The location is reduced to its host so the tag stays low-cardinality.
// Its signature matches description.FetchObserver.
//
// Parameters:
//   - location: Description or SCPD URL that was fetched
//   - elapsed: Time spent including retries
//   - err: Fetch error, nil on success
func (c *Client) WriteFetch(location string, elapsed time.Duration, err error) {
	host := location
	if u, perr := url.Parse(location); perr == nil && u.Host != "" {
		host = u.Host
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	c.writePoint(write.NewPoint(
		MeasurementFetch,
		map[string]string{"host": host, "outcome": outcome},
		map[string]interface{}{"duration_ms": float64(elapsed.Microseconds()) / 1000},
		time.Now(),
	))
}

// WriteInventory records device counts by presence status.
//
// Parameters:
//   - total: Number of devices in the inventory
//   - online: Devices seen within the lost_after window
//   - offline: Devices marked lost
//   - at: Snapshot time
func (c *Client) WriteInventory(total, online, offline int, at time.Time) {
	c.writePoint(write.NewPoint(
		MeasurementInventory,
		nil,
		map[string]interface{}{
			"total":   total,
			"online":  online,
			"offline": offline,
		},
		at,
	))
}

// WritePoint writes a custom point timestamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}
