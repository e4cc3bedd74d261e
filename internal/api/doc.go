// Package api implements the HTTP REST API and WebSocket event stream for
// the UPnP inventory service.
//
// This package provides:
//   - REST endpoints to browse the device inventory and its trees
//   - Scan control: queue, run and inspect discovery scans
//   - WebSocket hub relaying device.discovered, device.lost and
//     scan.completed events; clients subscribe to channels by name, by
//     prefix ("device.*") or to everything ("*")
//   - Bearer-token authentication with viewer and operator roles
//
// # Lifecycle
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Security
//
// Tokens are HS256 JWTs signed with security.jwt.secret. WebSocket clients
// that cannot set headers pass the token as the "token" query parameter.
// With no secret configured the API is open and every caller acts as an
// operator.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
