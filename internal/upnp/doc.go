// Package upnp holds the constants and error kinds shared by the UPnP
// control-point packages.
//
// # Subpackages
//
//   - schema: resolves deviceType URNs to registered device kinds
//   - description: fetches and parses description documents
//   - control: builds device trees and service stubs from descriptions
//   - discovery: finds description locations over SSDP
//
// # Errors
//
// Every failure surfaced by the subpackages wraps one of the sentinel errors
// declared here, so callers can branch with errors.Is regardless of which
// layer produced the failure:
//
//	dev, err := builder.Create(ctx, location)
//	if errors.Is(err, upnp.ErrFetch) {
//	    // device went away between discovery and description
//	}
package upnp
