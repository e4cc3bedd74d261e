package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is a thread-safe cache of device records in front of a
// Repository. The cache is loaded by RefreshCache and kept in step by
// every write that goes through the registry.
type Registry struct {
	repo    Repository
	cache   map[string]*Record
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Record),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads every record from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	records, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Record, len(records))
	for i := range records {
		r.cache[records[i].UDN] = records[i].DeepCopy()
	}

	r.logger.Info("inventory cache refreshed", "count", len(records))
	return nil
}

// RecordTree stores every device of the tree rooted at root as seen at
// the given time. It returns the records that were new to the inventory.
func (r *Registry) RecordTree(ctx context.Context, root *control.Device, seen time.Time) ([]Record, error) {
	records := RecordsFromTree(root, seen)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty tree", ErrInvalidRecord)
	}

	// Keep the original first sighting for known devices.
	r.cacheMu.RLock()
	for i := range records {
		if cached, ok := r.cache[records[i].UDN]; ok {
			records[i].FirstSeen = cached.FirstSeen
		}
	}
	r.cacheMu.RUnlock()

	created, err := r.repo.Upsert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("storing tree %s: %w", records[0].UDN, err)
	}

	isNew := make(map[string]bool, len(created))
	for _, udn := range created {
		isNew[udn] = true
	}

	var fresh []Record
	r.cacheMu.Lock()
	for i := range records {
		r.cache[records[i].UDN] = records[i].DeepCopy()
		if isNew[records[i].UDN] {
			fresh = append(fresh, records[i])
		}
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device tree recorded",
		"udn", records[0].UDN,
		"devices", len(records),
		"new", len(fresh),
	)
	return fresh, nil
}

// MarkMissed advances presence bookkeeping after a scan in which only
// the UDNs in seen answered. It returns the records that went offline.
func (r *Registry) MarkMissed(ctx context.Context, seen []string, lostAfter int) ([]Record, error) {
	lostUDNs, err := r.repo.MarkMissed(ctx, seen, lostAfter)
	if err != nil {
		return nil, fmt.Errorf("marking missed devices: %w", err)
	}

	// Counters moved for more than the lost devices, so reload from the
	// repository rather than patching the cache by hand.
	if err := r.RefreshCache(ctx); err != nil {
		return nil, err
	}

	lost := make([]Record, 0, len(lostUDNs))
	r.cacheMu.RLock()
	for _, udn := range lostUDNs {
		if rec, ok := r.cache[udn]; ok {
			lost = append(lost, *rec.DeepCopy())
		}
	}
	r.cacheMu.RUnlock()

	for _, rec := range lost {
		r.logger.Info("device offline", "udn", rec.UDN, "name", rec.FriendlyName)
	}
	return lost, nil
}

// Get retrieves a device by UDN. The returned record is a copy.
func (r *Registry) Get(ctx context.Context, udn string) (*Record, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[udn]
	r.cacheMu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	rec, err := r.repo.Get(ctx, udn)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[udn] = rec.DeepCopy()
	r.cacheMu.Unlock()
	return rec, nil
}

// Filter selects records in List. Zero-valued fields match everything.
type Filter struct {
	Kind      string
	Status    Status
	RootsOnly bool
}

func (f Filter) match(rec *Record) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.RootsOnly && !rec.IsRoot() {
		return false
	}
	return true
}

// List returns copies of the records matching f, ordered by root UDN and
// then UDN.
func (r *Registry) List(ctx context.Context, f Filter) ([]Record, error) {
	r.cacheMu.RLock()
	populated := len(r.cache) > 0
	var records []Record
	for _, rec := range r.cache {
		if f.match(rec) {
			records = append(records, *rec.DeepCopy())
		}
	}
	r.cacheMu.RUnlock()

	if !populated {
		all, err := r.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range all {
			if f.match(&all[i]) {
				records = append(records, all[i])
			}
		}
	}

	sortRecords(records)
	return records, nil
}

// Tree returns the records that share rootUDN, root first.
func (r *Registry) Tree(ctx context.Context, rootUDN string) ([]Record, error) {
	all, err := r.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	var tree []Record
	for _, rec := range all {
		if rec.RootUDN == rootUDN {
			tree = append(tree, rec)
		}
	}
	if len(tree) == 0 {
		return nil, ErrDeviceNotFound
	}
	return tree, nil
}

// Delete removes a device and every device embedded below it.
func (r *Registry) Delete(ctx context.Context, udn string) error {
	rec, err := r.Get(ctx, udn)
	if err != nil {
		return err
	}

	targets := []string{udn}
	if rec.IsRoot() {
		tree, err := r.Tree(ctx, udn)
		if err != nil && !errors.Is(err, ErrDeviceNotFound) {
			return err
		}
		for _, t := range tree {
			if t.UDN != udn {
				targets = append(targets, t.UDN)
			}
		}
	}

	for _, t := range targets {
		if err := r.repo.Delete(ctx, t); err != nil && !errors.Is(err, ErrDeviceNotFound) {
			return fmt.Errorf("deleting %s: %w", t, err)
		}
		r.cacheMu.Lock()
		delete(r.cache, t)
		r.cacheMu.Unlock()
	}

	r.logger.Info("device removed", "udn", udn, "devices", len(targets))
	return nil
}

// RecordScan stores a scan outcome.
func (r *Registry) RecordScan(ctx context.Context, scan Scan) error {
	return r.repo.RecordScan(ctx, scan)
}

// ListScans returns the most recent scans, newest first.
func (r *Registry) ListScans(ctx context.Context, limit int) ([]Scan, error) {
	return r.repo.ListScans(ctx, limit)
}

// Stats summarises the cached inventory.
type Stats struct {
	TotalDevices int            `json:"total_devices"`
	RootDevices  int            `json:"root_devices"`
	ByKind       map[string]int `json:"by_kind"`
	ByStatus     map[Status]int `json:"by_status"`
}

// GetStats returns statistics over the cached records.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByKind:       make(map[string]int),
		ByStatus:     make(map[Status]int),
	}
	for _, rec := range r.cache {
		if rec.IsRoot() {
			stats.RootDevices++
		}
		stats.ByKind[rec.Kind]++
		stats.ByStatus[rec.Status]++
	}
	return stats
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].RootUDN != records[j].RootUDN {
			return records[i].RootUDN < records[j].RootUDN
		}
		// Root sorts ahead of its embedded devices.
		if records[i].IsRoot() != records[j].IsRoot() {
			return records[i].IsRoot()
		}
		return records[i].UDN < records[j].UDN
	})
}
