// Package control builds the in-memory model of UPnP devices and services
// seen by a control point.
//
// A Builder turns a description document into a Device tree:
//
//	b := control.NewBuilder(source, schema.NewRegistry())
//	root, err := b.Create(ctx, "http://192.168.1.1:5431/rootDesc.xml")
//
// Every node is fully populated before it is returned and is never modified
// afterwards. The derived views Devices and Services are computed once during
// construction by depth-first traversal, so they always agree with a fresh
// walk of SubDevices and SubServices.
//
// # Failure model
//
// Construction is all or nothing. A missing required element, an unparseable
// URL, a failed fetch or (in strict mode) an unknown device type aborts the
// whole build and no Device is returned. All errors wrap one of the kinds
// declared in package upnp.
package control
