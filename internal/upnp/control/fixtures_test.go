package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
)

// mapSource serves documents from memory, keyed by location.
type mapSource struct {
	docs  map[string]string
	calls map[string]int
}

func newMapSource(docs map[string]string) *mapSource {
	return &mapSource{docs: docs, calls: map[string]int{}}
}

func (m *mapSource) Fetch(_ context.Context, location string) (*description.Document, error) {
	m.calls[location]++
	raw, ok := m.docs[location]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", upnp.ErrFetch, upnp.ErrNotFound, location)
	}
	return description.ParseBytes([]byte(raw))
}

const gatewayDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:InternetGatewayDevice:1</deviceType>
    <manufacturer>DD-WRT</manufacturer>
    <manufacturerURL>http://www.dd-wrt.com</manufacturerURL>
    <modelDescription>Gateway</modelDescription>
    <friendlyName>Asus RT-N16:DD-WRT</friendlyName>
    <modelName>Asus RT-N16</modelName>
    <modelNumber>V24</modelNumber>
    <serialNumber>0000001</serialNumber>
    <modelURL>http://www.dd-wrt.com</modelURL>
    <UDN>uuid:A13AB4C3-3A14-E386-DE6A-EFEA923A06FE</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:Layer3Forwarding:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:L3Forwarding1</serviceId>
        <SCPDURL>/x_layer3forwarding.xml</SCPDURL>
        <controlURL>/control?Layer3Forwarding</controlURL>
        <eventSubURL>/event?Layer3Forwarding</eventSubURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:WANDevice:1</deviceType>
        <friendlyName>WANDevice</friendlyName>
        <manufacturer>DD-WRT</manufacturer>
        <modelName>router</modelName>
        <UDN>uuid:48FD569B-F9A9-96AE-4EE6-EB403D3DB91A</UDN>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:WANCommonInterfaceConfig:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:WANCommonIFC1</serviceId>
            <SCPDURL>/x_wancommoninterfaceconfig.xml</SCPDURL>
            <controlURL>/control?WANCommonInterfaceConfig</controlURL>
            <eventSubURL>/event?WANCommonInterfaceConfig</eventSubURL>
          </service>
        </serviceList>
        <deviceList>
          <device>
            <deviceType>urn:schemas-upnp-org:device:WANConnectionDevice:1</deviceType>
            <friendlyName>WAN Connection Device</friendlyName>
            <manufacturer>DD-WRT</manufacturer>
            <modelName>router</modelName>
            <UDN>uuid:CB2471CC-CF2E-9795-8D9C-E87B34C16800</UDN>
            <serviceList>
              <service>
                <serviceType>urn:schemas-upnp-org:service:WANIPConnection:1</serviceType>
                <serviceId>urn:upnp-org:serviceId:WANIPConn1</serviceId>
                <SCPDURL>/x_wanipconnection.xml</SCPDURL>
                <controlURL>/control?WANIPConnection</controlURL>
                <eventSubURL>/event?WANIPConnection</eventSubURL>
              </service>
            </serviceList>
          </device>
        </deviceList>
      </device>
      <device>
        <deviceType>urn:schemas-upnp-org:device:LANDevice:1</deviceType>
        <friendlyName>LANDevice</friendlyName>
        <manufacturer>DD-WRT</manufacturer>
        <modelName>router</modelName>
        <UDN>uuid:04021998-3B35-2BDB-7B3C-99DA4435DA09</UDN>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:LANHostConfigManagement:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:LANHostCfg1</serviceId>
            <SCPDURL>/x_lanhostconfigmanagement.xml</SCPDURL>
            <controlURL>/control?LANHostConfigManagement</controlURL>
            <eventSubURL>/event?LANHostConfigManagement</eventSubURL>
          </service>
        </serviceList>
      </device>
    </deviceList>
    <presentationURL>http://192.168.1.1</presentationURL>
  </device>
</root>`

const testDeviceDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <URLBase>http://10.0.0.5:8080/base/</URLBase>
  <device>
    <deviceType>urn:schemas-upnp-org:device:TestDevice:1</deviceType>
    <friendlyName>Test Device</friendlyName>
    <manufacturer>Gray Logic</manufacturer>
    <modelName>TD-1</modelName>
    <UDN>uuid:00000000-0000-0000-0000-000000000001</UDN>
    <UPC>012345678905</UPC>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:TestService:1</serviceType>
        <serviceId>urn:example-com:serviceId:TestService</serviceId>
        <SCPDURL>TestDevice/TestService</SCPDURL>
        <controlURL>TestDevice/TestService/control</controlURL>
        <eventSubURL>TestDevice/TestService/event_sub</eventSubURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:SubDevice:1</deviceType>
        <friendlyName>Sub Device</friendlyName>
        <manufacturer>Gray Logic</manufacturer>
        <modelName>SD-1</modelName>
        <UDN>uuid:00000000-0000-0000-0000-000000000002</UDN>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:SubService:1</serviceType>
            <serviceId>urn:example-com:serviceId:SubService</serviceId>
            <SCPDURL>/SubDevice/SubService</SCPDURL>
          </service>
        </serviceList>
      </device>
    </deviceList>
  </device>
</root>`

const testServiceSCPD = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <actionList>
    <action>
      <name>TestAction</name>
      <argumentList>
        <argument>
          <direction>in</direction>
          <name>TestInput</name>
          <relatedStateVariable>TestInVar</relatedStateVariable>
        </argument>
        <argument>
          <direction>out</direction>
          <name>TestOutput</name>
          <relatedStateVariable>TestOutVar</relatedStateVariable>
        </argument>
      </argumentList>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="no">
      <name>TestInVar</name>
      <dataType>string</dataType>
      <allowedValueList>
        <allowedValue>On</allowedValue>
        <allowedValue>Off</allowedValue>
      </allowedValueList>
    </stateVariable>
    <stateVariable>
      <name>TestOutVar</name>
      <dataType>ui2</dataType>
      <defaultValue>0</defaultValue>
      <allowedValueRange>
        <minimum>0</minimum>
        <maximum>100</maximum>
        <step>1</step>
      </allowedValueRange>
    </stateVariable>
  </serviceStateTable>
</scpd>`

// deviceWithout returns a single-device description with the named element removed.
func deviceWithout(element string) string {
	fields := map[string]string{
		"deviceType":   "urn:schemas-upnp-org:device:TestDevice:1",
		"friendlyName": "Test Device",
		"manufacturer": "Gray Logic",
		"modelName":    "TD-1",
		"UDN":          "uuid:00000000-0000-0000-0000-0000000000ff",
	}
	var b strings.Builder
	b.WriteString(`<root xmlns="urn:schemas-upnp-org:device-1-0"><device>`)
	for _, name := range []string{"deviceType", "friendlyName", "manufacturer", "modelName", "UDN"} {
		if name == element {
			continue
		}
		fmt.Fprintf(&b, "<%s>%s</%s>", name, fields[name], name)
	}
	b.WriteString(`</device></root>`)
	return b.String()
}
