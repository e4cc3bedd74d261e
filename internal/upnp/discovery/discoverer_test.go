package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
)

type fakeSearcher struct {
	responses []Response
	err       error
	targets   []string
}

func (f *fakeSearcher) Search(_ context.Context, targets ...string) ([]Response, error) {
	f.targets = targets
	return f.responses, f.err
}

type memSource struct {
	mu   sync.Mutex
	docs map[string]string
	hits map[string]int
}

func (m *memSource) Fetch(_ context.Context, location string) (*description.Document, error) {
	m.mu.Lock()
	m.hits[location]++
	raw, ok := m.docs[location]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", upnp.ErrFetch, location)
	}
	return description.ParseBytes([]byte(raw))
}

func rootDesc(udn, deviceType, name string) string {
	return `<root xmlns="urn:schemas-upnp-org:device-1-0"><device>` +
		`<deviceType>` + deviceType + `</deviceType>` +
		`<friendlyName>` + name + `</friendlyName>` +
		`<manufacturer>Acme</manufacturer><modelName>M1</modelName>` +
		`<UDN>` + udn + `</UDN></device></root>`
}

func newFixture(docs map[string]string, responses []Response) (*Discoverer, *fakeSearcher, *memSource, *schema.Registry) {
	src := &memSource{docs: docs, hits: map[string]int{}}
	reg := schema.NewRegistry()
	searcher := &fakeSearcher{responses: responses}
	d := NewDiscoverer(searcher, control.NewBuilder(src, reg), WithConcurrency(2))
	return d, searcher, src, reg
}

func TestDiscoverer_Discover(t *testing.T) {
	const (
		server   = "urn:schemas-upnp-org:device:MediaServer:1"
		renderer = "urn:schemas-upnp-org:device:MediaRenderer:1"
	)
	docs := map[string]string{
		"http://a/desc.xml": rootDesc("uuid:a", server, "NAS"),
		"http://b/desc.xml": rootDesc("uuid:b", renderer, "TV"),
		"http://c/desc.xml": rootDesc("uuid:c", server, "Laptop"),
	}
	responses := []Response{
		{Type: server, Location: "http://a/desc.xml"},
		{Type: renderer, Location: "http://b/desc.xml"},
		{Type: "urn:schemas-upnp-org:device:Embedded:1", Location: "http://a/desc.xml"},
		{Type: server, Location: "http://c/desc.xml"},
	}
	d, searcher, src, reg := newFixture(docs, responses)

	serverKind, _ := reg.Lookup("MediaServer")
	rendererKind, _ := reg.Lookup("MediaRenderer")
	devices, err := d.Discover(context.Background(), serverKind, rendererKind)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(searcher.targets) != 2 || searcher.targets[0] != server || searcher.targets[1] != renderer {
		t.Errorf("search targets = %v", searcher.targets)
	}

	var got []string
	for _, dev := range devices {
		got = append(got, dev.FriendlyName)
	}
	if strings.Join(got, ",") != "NAS,TV,Laptop" {
		t.Errorf("devices = %v, want response order NAS,TV,Laptop", got)
	}
	if src.hits["http://a/desc.xml"] != 1 {
		t.Errorf("shared location fetched %d times, want 1", src.hits["http://a/desc.xml"])
	}
	if devices[0].Kind != serverKind || devices[2].Kind != serverKind {
		t.Error("devices of the same type do not share a kind")
	}
}

func TestDiscoverer_DiscoverAllStandardTypes(t *testing.T) {
	d, searcher, _, _ := newFixture(map[string]string{}, nil)

	devices, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("devices = %d, want 0", len(devices))
	}
	if len(searcher.targets) != 0 {
		t.Errorf("targets = %v, want none", searcher.targets)
	}
}

func TestDiscoverer_DiscoverFailsWhole(t *testing.T) {
	docs := map[string]string{
		"http://a/desc.xml": rootDesc("uuid:a", "urn:schemas-upnp-org:device:MediaServer:1", "NAS"),
	}
	responses := []Response{
		{Type: "urn:schemas-upnp-org:device:MediaServer:1", Location: "http://a/desc.xml"},
		{Type: "urn:schemas-upnp-org:device:MediaServer:1", Location: "http://gone/desc.xml"},
	}
	d, _, _, _ := newFixture(docs, responses)

	devices, err := d.Discover(context.Background())
	if !errors.Is(err, upnp.ErrFetch) {
		t.Errorf("Discover() error = %v, want ErrFetch", err)
	}
	if devices != nil {
		t.Error("partial results returned")
	}
}

func TestDiscoverer_SearchError(t *testing.T) {
	d, searcher, _, _ := newFixture(nil, nil)
	searcher.err = errors.New("no multicast route")

	if _, err := d.Discover(context.Background()); err == nil {
		t.Error("expected search error")
	}
	if err := d.DiscoverEach(context.Background(), func(Result) {}); err == nil {
		t.Error("expected search error from DiscoverEach")
	}
}

func TestDiscoverer_DiscoverEach(t *testing.T) {
	docs := map[string]string{
		"http://a/desc.xml": rootDesc("uuid:a", "urn:schemas-upnp-org:device:MediaServer:1", "NAS"),
		"http://b/desc.xml": `<root xmlns="urn:schemas-upnp-org:device-1-0"><device/></root>`,
	}
	responses := []Response{
		{Type: "urn:schemas-upnp-org:device:MediaServer:1", Location: "http://a/desc.xml"},
		{Type: "urn:schemas-upnp-org:device:MediaRenderer:1", Location: "http://b/desc.xml"},
		{Type: "urn:schemas-upnp-org:device:MediaRenderer:1", Location: "http://c/desc.xml"},
	}
	d, _, _, _ := newFixture(docs, responses)

	var results []Result
	err := d.DiscoverEach(context.Background(), func(r Result) {
		results = append(results, r)
	})
	if err != nil {
		t.Fatalf("DiscoverEach() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Response.Location < results[j].Response.Location
	})

	if results[0].Err != nil || results[0].Device == nil || results[0].Device.Name != "uuid:a" {
		t.Errorf("a: %+v", results[0])
	}
	if !errors.Is(results[1].Err, upnp.ErrMalformedDescription) || results[1].Device != nil {
		t.Errorf("b: err = %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, upnp.ErrFetch) {
		t.Errorf("c: err = %v", results[2].Err)
	}
}

func TestDiscoverer_WithURLBase(t *testing.T) {
	doc := strings.Replace(
		rootDesc("uuid:a", "urn:schemas-upnp-org:device:MediaServer:1", "NAS"),
		"<device>", "<URLBase>http://10.1.1.1:9000/</URLBase><device>", 1)
	responses := []Response{{Type: "urn:schemas-upnp-org:device:MediaServer:1", Location: "http://a/desc.xml"}}

	src := &memSource{docs: map[string]string{"http://a/desc.xml": doc}, hits: map[string]int{}}
	reg := schema.NewRegistry()
	d := NewDiscoverer(&fakeSearcher{responses: responses}, control.NewBuilder(src, reg), WithURLBase(true))

	devices, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if got := devices[0].URL.String(); got != "http://10.1.1.1:9000/" {
		t.Errorf("URL = %q, want URLBase", got)
	}
}
