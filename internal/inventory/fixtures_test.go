package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
	"github.com/nerrad567/gray-logic-upnp/migrations"
)

const (
	testLocation = "http://192.168.1.1:5431/dyndev/uuid:gw"
	rootUDN      = "uuid:gw-root"
	wanUDN       = "uuid:gw-wan"
	connUDN      = "uuid:gw-wanconn"
)

const gatewayXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:InternetGatewayDevice:1</deviceType>
    <friendlyName>Home Gateway</friendlyName>
    <manufacturer>Acme</manufacturer>
    <modelName>GW-1</modelName>
    <modelNumber>1.0</modelNumber>
    <serialNumber>SN123</serialNumber>
    <presentationURL>/admin</presentationURL>
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
        <modelName>GW-1</modelName>
        <UDN>uuid:gw-wan</UDN>
        <deviceList>
          <device>
            <deviceType>urn:schemas-upnp-org:device:WANConnectionDevice:1</deviceType>
            <friendlyName>WAN Connection</friendlyName>
            <manufacturer>Acme</manufacturer>
            <modelName>GW-1</modelName>
            <UDN>uuid:gw-wanconn</UDN>
            <serviceList>
              <service>
                <serviceType>urn:schemas-upnp-org:service:WANIPConnection:1</serviceType>
                <serviceId>urn:upnp-org:serviceId:WANIPConn1</serviceId>
                <SCPDURL>/wanip.xml</SCPDURL>
                <controlURL>/control/wanip</controlURL>
                <eventSubURL>/event/wanip</eventSubURL>
              </service>
            </serviceList>
          </device>
        </deviceList>
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
    <modelName>L-1</modelName>
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

// buildTree builds the description served at location.
func buildTree(t *testing.T, location string) *control.Device {
	t.Helper()
	src := docSource{
		testLocation:                  gatewayXML,
		"http://192.168.1.20:80/desc": lightXML,
	}
	b := control.NewBuilder(src, schema.NewRegistry())
	root, err := b.Create(context.Background(), location)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", location, err)
	}
	return root
}

// openTestRepo returns a repository on a migrated in-memory database.
func openTestRepo(t *testing.T) *SQLiteRepository {
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
	return NewSQLiteRepository(db)
}

var testSeen = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
