package api

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-upnp/internal/inventory"
	"github.com/nerrad567/gray-logic-upnp/internal/scanner"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
	"github.com/nerrad567/gray-logic-upnp/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

const (
	gatewayLocation = "http://192.168.1.1:5431/desc"
	lightLocation   = "http://192.168.1.20:80/desc"
)

const gatewayXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:InternetGatewayDevice:1</deviceType>
    <friendlyName>Home Gateway</friendlyName>
    <manufacturer>Acme</manufacturer>
    <modelName>Model 1</modelName>
    <UDN>uuid:gw-root</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:Layer3Forwarding:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:L3Forwarding1</serviceId>
        <SCPDURL>/l3f.xml</SCPDURL>
        <controlURL>/control/l3f</controlURL>
        <eventSubURL>/event/l3f</eventSubURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:WANDevice:1</deviceType>
        <friendlyName>WAN</friendlyName>
        <manufacturer>Acme</manufacturer>
        <modelName>Model 1</modelName>
        <UDN>uuid:gw-wan</UDN>
      </device>
    </deviceList>
  </device>
</root>`

const lightXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:BinaryLight:1</deviceType>
    <friendlyName>Porch Light</friendlyName>
    <manufacturer>Acme</manufacturer>
    <modelName>Model 1</modelName>
    <UDN>uuid:light</UDN>
  </device>
</root>`

type docSource map[string]string

func (s docSource) Fetch(_ context.Context, location string) (*description.Document, error) {
	raw, ok := s[location]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", upnp.ErrFetch, upnp.ErrNotFound, location)
	}
	return description.ParseBytes([]byte(raw))
}

// fakeScanner records calls and returns canned results.
type fakeScanner struct {
	mu        sync.Mutex
	status    scanner.Status
	err       error
	triggers  []string
	scanKinds [][]*schema.Kind
	queued    bool
}

func (f *fakeScanner) ScanKinds(_ context.Context, trigger string, kinds []*schema.Kind) (*scanner.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanKinds = append(f.scanKinds, kinds)
	if f.err != nil {
		return nil, f.err
	}
	return &scanner.Summary{
		Scan:    inventory.Scan{ID: "scan-1", Devices: 3},
		Trigger: trigger,
	}, nil
}

func (f *fakeScanner) Trigger(reason string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, reason)
	if f.queued {
		return false
	}
	f.queued = true
	return true
}

func (f *fakeScanner) Status() scanner.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeScanner) scanCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scanKinds)
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

// testServer creates a Server over an in-memory inventory holding the
// gateway and light trees. An empty secret disables authentication.
func testServer(t *testing.T, secret string) (*Server, *fakeScanner) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	inv := inventory.NewRegistry(inventory.NewSQLiteRepository(db))
	kinds := schema.NewRegistry()
	builder := control.NewBuilder(docSource{gatewayLocation: gatewayXML, lightLocation: lightXML}, kinds)
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, loc := range []string{gatewayLocation, lightLocation} {
		root, err := builder.Create(ctx, loc)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", loc, err)
		}
		if _, err := inv.RecordTree(ctx, root, seen); err != nil {
			t.Fatalf("RecordTree(%s) error = %v", loc, err)
		}
	}

	scan := &fakeScanner{}
	log := testLogger()
	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:        testWSConfig(),
		Security:  config.SecurityConfig{JWT: config.JWTConfig{Secret: secret, AccessTokenTTL: 15}},
		Logger:    log,
		Inventory: inv,
		Scanner:   scan,
		Kinds:     kinds,
		DB:        db,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	hubCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(hubCtx)

	return srv, scan
}
