// Package scanner runs UPnP discovery on a schedule and fans the results
// out to the inventory, the MQTT bus, WebSocket clients and InfluxDB.
//
// A scan searches with SSDP, builds a device tree per distinct location,
// records every tree in the inventory and then advances presence
// bookkeeping: devices that did not answer have their missed-scan counter
// raised and go offline once it reaches the configured threshold. Scans
// restricted to an ad-hoc set of kinds skip that step, since devices of
// other kinds could not have answered.
package scanner
