package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Scanner       ScannerMetrics  `json:"scanner"`
	Devices       DeviceMetrics   `json:"devices"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// ScannerMetrics contains scan loop statistics.
type ScannerMetrics struct {
	Running      bool   `json:"running"`
	Scanning     bool   `json:"scanning"`
	Scans        int    `json:"scans"`
	LastScanID   string `json:"last_scan_id,omitempty"`
	LastScanAt   string `json:"last_scan_at,omitempty"`
	LastDuration int64  `json:"last_duration_ms,omitempty"`
}

// DeviceMetrics contains inventory statistics.
type DeviceMetrics struct {
	Total    int            `json:"total"`
	Roots    int            `json:"roots"`
	ByStatus map[string]int `json:"by_status"`
	ByKind   map[string]int `json:"by_kind"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime, scanner and inventory metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	if s.mqtt != nil {
		metrics.MQTT.Connected = s.mqtt.IsConnected()
	}

	st := s.scanner.Status()
	metrics.Scanner = ScannerMetrics{
		Running:  st.Running,
		Scanning: st.Scanning,
		Scans:    st.Scans,
	}
	if st.LastScan != nil {
		metrics.Scanner.LastScanID = st.LastScan.ID
		metrics.Scanner.LastScanAt = st.LastScan.FinishedAt.Format(time.RFC3339)
		metrics.Scanner.LastDuration = st.LastScan.Duration().Milliseconds()
	}

	stats := s.inventory.GetStats()
	metrics.Devices = DeviceMetrics{
		Total:    stats.TotalDevices,
		Roots:    stats.RootDevices,
		ByStatus: make(map[string]int, len(stats.ByStatus)),
		ByKind:   stats.ByKind,
	}
	for status, count := range stats.ByStatus {
		metrics.Devices.ByStatus[string(status)] = count
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
