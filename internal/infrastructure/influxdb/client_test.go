package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and collects line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu       sync.Mutex
	lines    []string
	query    string
	writeErr bool
	srv      *httptest.Server
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping", "/health":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			defer f.mu.Unlock()
			f.query = r.URL.RawQuery
			if f.writeErr {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"invalid","message":"bad point"}`))
				return
			}
			for _, l := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if l != "" {
					f.lines = append(f.lines, l)
				}
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// waitLines polls until n lines have arrived.
func (f *fakeInflux) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.lines) >= n {
			out := append([]string(nil), f.lines...)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines", n)
	return nil
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "upnp",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connect(t *testing.T, f *fakeInflux) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(context.Background(), testConfig(f.srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestConnect(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(context.Background(), testConfig(url))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	f := newFakeInflux(t)
	cfg := testConfig(f.srv.URL)
	cfg.BatchSize = -1
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() with defaulted batch settings error = %v", err)
	}
	client.Close()
}

func TestWriteScan(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client.WriteScan(influxdb.ScanMetric{
		ScanID:    "scan-1",
		Trigger:   "interval",
		Duration:  1500 * time.Millisecond,
		Responses: 5,
		Devices:   4,
		Failures:  1,
	}, at)
	client.Flush()

	lines := f.waitLines(t, 1)
	line := lines[0]
	for _, want := range []string{
		"upnp_scan,trigger=interval ",
		"duration_ms=1500i",
		"responses=5i",
		"devices=4i",
		"failures=1i",
		"lost=0i",
		`scan_id="scan-1"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, " 1772366400000000000") {
		t.Errorf("line %q has wrong timestamp", line)
	}

	f.mu.Lock()
	q := f.query
	f.mu.Unlock()
	if !strings.Contains(q, "bucket=upnp") || !strings.Contains(q, "org=graylogic") {
		t.Errorf("write query = %q", q)
	}
}

func TestWriteFetchAndInventory(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	client.WriteFetch("http://192.168.1.1:5000/rootDesc.xml", 12*time.Millisecond, nil)
	client.WriteFetch("not a url", time.Millisecond, errors.New("boom"))
	client.WriteInventory(10, 8, 2, time.Now())
	client.Flush()

	lines := f.waitLines(t, 3)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"upnp_fetch,host=192.168.1.1:5000,outcome=ok duration_ms=12",
		"outcome=error",
		"upnp_inventory offline=2i,online=8i,total=10i",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("lines missing %q:\n%s", want, joined)
		}
	}
}

func TestWriteErrorCallback(t *testing.T) {
	f := newFakeInflux(t)
	f.writeErr = true
	client := connect(t, f)

	errCh := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WritePoint("custom", map[string]string{"k": "v"}, map[string]interface{}{"x": 1.0})
	client.Flush()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("callback received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Error("write error callback not invoked")
	}
}

func TestClose(t *testing.T) {
	f := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(f.srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v", err)
	}

	// Writes and flushes after Close are dropped.
	client.WriteInventory(1, 1, 0, time.Now())
	client.Flush()
}

func TestClose_Nil(t *testing.T) {
	client := &influxdb.Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero Client error = %v", err)
	}
}
