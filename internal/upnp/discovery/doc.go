// Package discovery locates UPnP devices on the local network and turns
// search responses into device trees.
//
// SSDPSearcher sends M-SEARCH requests through github.com/huin/goupnp and
// reports each distinct (type, location) answer. Discoverer combines a
// Searcher with a control.Builder:
//
//	searcher, err := discovery.NewSSDPSearcher(discovery.SSDPConfig{}, logger)
//	d := discovery.NewDiscoverer(searcher, builder)
//	devices, err := d.Discover(ctx, mediaServerKind)
package discovery
