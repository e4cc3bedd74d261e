// Package description fetches and parses UPnP description documents.
//
// Documents are parsed into a small namespace-aware element tree rather than
// into fixed structs, because device and service descriptions are recursive
// and vendors routinely add extension elements. The tree supports two kinds
// of query:
//
//   - path lookup by local name, ignoring namespaces (At, ChildText)
//   - namespace-scoped child selection, returning every match (ChildrenNS)
//
// # Sources
//
// A Source turns a location into a Document. HTTPSource fetches over HTTP
// with retry. CachingSource memoises another Source by location and is only
// used when the operator sets fetch.cache_size.
package description
