// Package influxdb records discovery metrics in InfluxDB.
//
// It wraps influxdb-client-go v2 and writes three measurements:
//   - upnp_scan: one point per discovery scan
//   - upnp_fetch: description fetch latency per host
//   - upnp_inventory: device counts after each scan
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
//	client.WriteScan(influxdb.ScanMetric{ScanID: id, Devices: 4}, time.Now())
//
// Writes are non-blocking and batched per batch_size and flush_interval.
// Asynchronous write failures are delivered to the SetOnError callback.
package influxdb
