// Package schema maps UPnP deviceType URNs to device kinds.
//
// A Kind is a data descriptor, not a Go type: every device in a tree is the
// same control.Device struct, and its Kind field records which schema it
// implements. The Registry hands out one *Kind per type name for the lifetime
// of the process, so kinds can be compared with ==.
//
// Well-known kinds are registered up front by NewRegistry. Everything else is
// registered lazily the first time a description declares it.
package schema
