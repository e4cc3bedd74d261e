package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockRepository is an in-memory Repository.
type MockRepository struct {
	mu      sync.Mutex
	records map[string]*Record
	scans   []Scan

	listCalls int
	upsertErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{records: make(map[string]*Record)}
}

func (m *MockRepository) Get(_ context.Context, udn string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[udn]; ok {
		return r.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r.DeepCopy())
	}
	return out, nil
}

func (m *MockRepository) Upsert(_ context.Context, records []Record) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	var created []string
	for i := range records {
		if _, ok := m.records[records[i].UDN]; !ok {
			created = append(created, records[i].UDN)
		}
		m.records[records[i].UDN] = records[i].DeepCopy()
	}
	return created, nil
}

func (m *MockRepository) MarkMissed(_ context.Context, seen []string, lostAfter int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seenSet := map[string]bool{}
	for _, s := range seen {
		seenSet[s] = true
	}
	var lost []string
	for udn, r := range m.records {
		if seenSet[udn] || r.Status != StatusOnline {
			continue
		}
		r.MissedScans++
		if r.MissedScans >= lostAfter {
			r.Status = StatusOffline
			lost = append(lost, udn)
		}
	}
	return lost, nil
}

func (m *MockRepository) Delete(_ context.Context, udn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[udn]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.records, udn)
	return nil
}

func (m *MockRepository) RecordScan(_ context.Context, scan Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans = append(m.scans, scan)
	return nil
}

func (m *MockRepository) ListScans(_ context.Context, limit int) ([]Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Scan
	for i := len(m.scans) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.scans[i])
	}
	return out, nil
}

func TestRegistry_RecordTree(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()
	tree := buildTree(t, testLocation)

	fresh, err := reg.RecordTree(ctx, tree, testSeen)
	if err != nil {
		t.Fatalf("RecordTree() error = %v", err)
	}
	if len(fresh) != 3 {
		t.Errorf("fresh = %d, want 3", len(fresh))
	}

	fresh, err = reg.RecordTree(ctx, tree, testSeen.Add(time.Hour))
	if err != nil {
		t.Fatalf("second RecordTree() error = %v", err)
	}
	if len(fresh) != 0 {
		t.Errorf("fresh on repeat = %d, want 0", len(fresh))
	}

	got, err := reg.Get(ctx, rootUDN)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.FirstSeen.Equal(testSeen) {
		t.Errorf("FirstSeen = %v, want %v", got.FirstSeen, testSeen)
	}
	if !got.LastSeen.Equal(testSeen.Add(time.Hour)) {
		t.Errorf("LastSeen = %v", got.LastSeen)
	}
}

func TestRegistry_RecordTreeError(t *testing.T) {
	repo := NewMockRepository()
	repo.upsertErr = errors.New("disk full")
	reg := NewRegistry(repo)

	if _, err := reg.RecordTree(context.Background(), buildTree(t, testLocation), testSeen); err == nil {
		t.Fatal("RecordTree() should surface repository errors")
	}
	if reg.GetStats().TotalDevices != 0 {
		t.Error("cache should not change when the repository write fails")
	}
	if _, err := reg.RecordTree(context.Background(), nil, testSeen); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("RecordTree(nil) error = %v, want ErrInvalidRecord", err)
	}
}

func TestRegistry_ListFilter(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	if _, err := reg.RecordTree(ctx, buildTree(t, testLocation), testSeen); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.RecordTree(ctx, buildTree(t, "http://192.168.1.20:80/desc"), testSeen); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all, roots first within tree", Filter{}, []string{rootUDN, wanUDN, connUDN, "uuid:light"}},
		{"roots only", Filter{RootsOnly: true}, []string{rootUDN, "uuid:light"}},
		{"by kind", Filter{Kind: "BinaryLight"}, []string{"uuid:light"}},
		{"by status", Filter{Status: StatusOffline}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %d records, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].UDN != tt.want[i] {
					t.Errorf("List()[%d] = %s, want %s", i, got[i].UDN, tt.want[i])
				}
			}
		})
	}
}

func TestRegistry_MarkMissed(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	if _, err := reg.RecordTree(ctx, buildTree(t, "http://192.168.1.20:80/desc"), testSeen); err != nil {
		t.Fatal(err)
	}

	lost, err := reg.MarkMissed(ctx, nil, 1)
	if err != nil {
		t.Fatalf("MarkMissed() error = %v", err)
	}
	if len(lost) != 1 || lost[0].UDN != "uuid:light" || lost[0].Status != StatusOffline {
		t.Fatalf("lost = %+v", lost)
	}

	got, _ := reg.Get(ctx, "uuid:light")
	if got.Status != StatusOffline {
		t.Errorf("cached status = %s, want offline", got.Status)
	}
	if s := reg.GetStats(); s.ByStatus[StatusOffline] != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRegistry_DeleteRemovesTree(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()
	if _, err := reg.RecordTree(ctx, buildTree(t, testLocation), testSeen); err != nil {
		t.Fatal(err)
	}

	if err := reg.Delete(ctx, rootUDN); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, udn := range []string{rootUDN, wanUDN, connUDN} {
		if _, err := reg.Get(ctx, udn); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Get(%s) error = %v, want ErrDeviceNotFound", udn, err)
		}
	}
	if err := reg.Delete(ctx, rootUDN); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestRegistry_RefreshCacheAndCopies(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()
	if _, err := repo.Upsert(ctx, RecordsFromTree(buildTree(t, testLocation), testSeen)); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	stats := reg.GetStats()
	if stats.TotalDevices != 3 || stats.RootDevices != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByKind["WANDevice"] != 1 {
		t.Errorf("ByKind = %v", stats.ByKind)
	}

	got, _ := reg.Get(ctx, rootUDN)
	got.FriendlyName = "mutated"
	got.Services[0].ID = "mutated"
	again, _ := reg.Get(ctx, rootUDN)
	if again.FriendlyName == "mutated" || again.Services[0].ID == "mutated" {
		t.Error("Get() returned a record sharing state with the cache")
	}
}

func TestRegistry_Tree(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	if _, err := reg.RecordTree(ctx, buildTree(t, testLocation), testSeen); err != nil {
		t.Fatal(err)
	}

	tree, err := reg.Tree(ctx, rootUDN)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	if len(tree) != 3 || tree[0].UDN != rootUDN {
		t.Errorf("Tree() = %+v", tree)
	}
	if _, err := reg.Tree(ctx, "uuid:nope"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Tree(unknown) error = %v", err)
	}
}

func TestRegistry_Scans(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := reg.RecordScan(ctx, Scan{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	scans, err := reg.ListScans(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 2 || scans[0].ID != "b" {
		t.Errorf("ListScans() = %+v", scans)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	tree := buildTree(t, testLocation)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := reg.RecordTree(ctx, tree, testSeen.Add(time.Duration(i)*time.Second)); err != nil {
				t.Errorf("RecordTree() error = %v", err)
			}
			if _, err := reg.List(ctx, Filter{}); err != nil {
				t.Errorf("List() error = %v", err)
			}
			_ = reg.GetStats()
		}(i)
	}
	wg.Wait()

	if n := reg.GetStats().TotalDevices; n != 3 {
		t.Errorf("TotalDevices = %d, want 3", n)
	}
}
