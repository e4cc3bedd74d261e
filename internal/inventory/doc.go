// Package inventory persists the UPnP devices seen on the network.
//
// Every discovered description tree is flattened into one Record per
// device (root and embedded) keyed by UDN. Records carry presence
// bookkeeping: a device seen in a scan is online with its missed-scan
// counter reset, and a device absent from enough consecutive scans is
// marked offline.
//
// The package follows a layered layout:
//   - Repository: persistence interface, with a SQLite implementation
//   - Registry: thread-safe cache in front of a Repository
//
// Usage:
//
//	repo := inventory.NewSQLiteRepository(db)
//	reg := inventory.NewRegistry(repo)
//	if err := reg.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	created, err := reg.RecordTree(ctx, root, time.Now())
package inventory
