package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-upnp/internal/inventory"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/discovery"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
)

var (
	// ErrScanInProgress is returned by Scan when another scan is running.
	ErrScanInProgress = errors.New("scanner: scan in progress")

	// ErrAlreadyRunning is returned by Start when the loop is running.
	ErrAlreadyRunning = errors.New("scanner: already running")
)

// DefaultLostAfter is used when Config.LostAfter is not positive.
const DefaultLostAfter = 3

// Discoverer finds and builds device trees.
type Discoverer interface {
	DiscoverEach(ctx context.Context, fn func(discovery.Result), kinds ...*schema.Kind) error
}

// Inventory stores scan results.
type Inventory interface {
	RecordTree(ctx context.Context, root *control.Device, seen time.Time) ([]inventory.Record, error)
	MarkMissed(ctx context.Context, seen []string, lostAfter int) ([]inventory.Record, error)
	RecordScan(ctx context.Context, scan inventory.Scan) error
	GetStats() inventory.Stats
	Get(ctx context.Context, udn string) (*inventory.Record, error)
	Tree(ctx context.Context, rootUDN string) ([]inventory.Record, error)
}

// Publisher sends results to the MQTT bus.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
	Topics() mqtt.Topics
}

// Broadcaster pushes events to WebSocket clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Metrics records scan measurements.
type Metrics interface {
	WriteScan(m influxdb.ScanMetric, at time.Time)
	WriteInventory(total, online, offline int, at time.Time)
}

// Logger defines the logging interface used by the Scanner.
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

// Config controls the scan loop.
type Config struct {
	// Interval between scheduled scans. Zero disables the schedule; scans
	// then run only at startup and on Trigger.
	Interval time.Duration

	// Kinds restricts every scheduled scan. Empty searches all standard
	// device types.
	Kinds []*schema.Kind

	// LostAfter is the number of consecutive missed scans after which a
	// device is marked offline.
	LostAfter int

	// SkipStartupScan stops Start from scanning immediately.
	SkipStartupScan bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithPublisher publishes events and snapshots to MQTT.
func WithPublisher(p Publisher) Option {
	return func(s *Scanner) { s.publisher = p }
}

// WithBroadcaster pushes events to WebSocket clients.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Scanner) { s.broadcaster = b }
}

// WithMetrics records scan metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// Scanner runs discovery scans. Only one scan runs at a time.
type Scanner struct {
	discoverer  Discoverer
	inventory   Inventory
	cfg         Config
	publisher   Publisher
	broadcaster Broadcaster
	metrics     Metrics
	logger      Logger
	now         func() time.Time

	scanMu  sync.Mutex
	trigger chan string

	mu       sync.RWMutex
	cancel   context.CancelFunc
	done     chan struct{}
	scanning bool
	scans    int
	last     *Summary
}

// New creates a Scanner.
func New(d Discoverer, inv Inventory, cfg Config, opts ...Option) *Scanner {
	if cfg.LostAfter <= 0 {
		cfg.LostAfter = DefaultLostAfter
	}
	s := &Scanner{
		discoverer: d,
		inventory:  inv,
		cfg:        cfg,
		logger:     noopLogger{},
		now:        time.Now,
		trigger:    make(chan string, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a scan immediately and then on every interval until ctx is
// cancelled or Stop is called. Queued triggers are served in between.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Info("scanner started", "interval", s.cfg.Interval, "kinds", len(s.cfg.Kinds))
	return nil
}

// Stop cancels the loop and waits for an in-flight scan to finish.
func (s *Scanner) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scanner stopped")
}

// Running reports whether the loop is running.
func (s *Scanner) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

// Trigger queues a scan on the running loop. It returns false when a scan
// is already queued.
func (s *Scanner) Trigger(reason string) bool {
	select {
	case s.trigger <- reason:
		return true
	default:
		return false
	}
}

func (s *Scanner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	if !s.cfg.SkipStartupScan {
		s.runScheduled(ctx, TriggerStartup)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.runScheduled(ctx, TriggerInterval)
		case reason := <-s.trigger:
			s.runScheduled(ctx, reason)
		}
	}
}

func (s *Scanner) runScheduled(ctx context.Context, trigger string) {
	if _, err := s.Scan(ctx, trigger); err != nil && ctx.Err() == nil {
		if errors.Is(err, ErrScanInProgress) {
			s.logger.Debug("scan skipped, another scan is running", "trigger", trigger)
			return
		}
		s.logger.Error("scan failed", "trigger", trigger, "error", err)
	}
}

// Scan runs one scan over the configured kinds.
func (s *Scanner) Scan(ctx context.Context, trigger string) (*Summary, error) {
	return s.scan(ctx, trigger, s.cfg.Kinds, true)
}

// ScanKinds runs one scan restricted to kinds. Presence bookkeeping is
// skipped because devices of other kinds were not searched for.
func (s *Scanner) ScanKinds(ctx context.Context, trigger string, kinds []*schema.Kind) (*Summary, error) {
	if len(kinds) == 0 {
		return s.Scan(ctx, trigger)
	}
	return s.scan(ctx, trigger, kinds, false)
}

func (s *Scanner) scan(ctx context.Context, trigger string, kinds []*schema.Kind, sweep bool) (*Summary, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	s.setScanning(true)
	defer s.setScanning(false)

	sum := &Summary{
		Scan: inventory.Scan{
			ID:        uuid.NewString(),
			StartedAt: s.now().UTC(),
			Targets:   kindURNs(kinds),
		},
		Trigger: trigger,
	}
	log := s.logger
	log.Debug("scan started", "scan_id", sum.ID, "trigger", trigger, "targets", len(sum.Targets))

	var seen []string
	searchErr := s.discoverer.DiscoverEach(ctx, func(r discovery.Result) {
		sum.Responses++
		if r.Err != nil {
			sum.Failures++
			// The device answered, so it is present even though its
			// description could not be read.
			seen = append(seen, s.respondedTree(ctx, r.Response.USN)...)
			return
		}
		fresh, err := s.inventory.RecordTree(ctx, r.Device, sum.StartedAt)
		if err != nil {
			sum.Failures++
			log.Error("recording device tree failed", "location", r.Response.Location, "error", err)
			return
		}

		records := inventory.RecordsFromTree(r.Device, sum.StartedAt)
		sum.Devices += len(records)
		for i := range records {
			seen = append(seen, records[i].UDN)
			s.publishSnapshot(&records[i])
		}
		for i := range fresh {
			sum.New = append(sum.New, fresh[i].UDN)
			s.emit(Event{Type: EventDeviceDiscovered, ScanID: sum.ID, Device: &fresh[i]})
		}
	}, kinds...)

	if searchErr != nil {
		sum.Error = searchErr.Error()
	} else if sweep {
		lost, err := s.inventory.MarkMissed(ctx, seen, s.cfg.LostAfter)
		if err != nil {
			log.Error("presence sweep failed", "scan_id", sum.ID, "error", err)
		}
		sum.Lost = len(lost)
		for i := range lost {
			sum.LostUDN = append(sum.LostUDN, lost[i].UDN)
			s.publishSnapshot(&lost[i])
			s.emit(Event{Type: EventDeviceLost, ScanID: sum.ID, Device: &lost[i]})
		}
	}
	sum.FinishedAt = s.now().UTC()

	// Record the scan even when the caller's context is gone.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.inventory.RecordScan(recordCtx, sum.Scan); err != nil {
		log.Error("recording scan failed", "scan_id", sum.ID, "error", err)
	}

	s.finish(sum)

	if searchErr != nil {
		return sum, fmt.Errorf("scan %s: %w", sum.ID, searchErr)
	}
	log.Info("scan completed",
		"scan_id", sum.ID,
		"trigger", trigger,
		"responses", sum.Responses,
		"devices", sum.Devices,
		"new", len(sum.New),
		"lost", sum.Lost,
		"failures", sum.Failures,
		"duration", sum.Duration(),
	)
	return sum, nil
}

// respondedTree returns the known UDNs of the tree containing the device
// that answered with usn. An unknown device yields just its own UDN.
func (s *Scanner) respondedTree(ctx context.Context, usn string) []string {
	udn := udnFromUSN(usn)
	if udn == "" {
		return nil
	}
	rec, err := s.inventory.Get(ctx, udn)
	if err != nil {
		return []string{udn}
	}
	tree, err := s.inventory.Tree(ctx, rec.RootUDN)
	if err != nil {
		return []string{udn}
	}
	udns := make([]string, 0, len(tree))
	for i := range tree {
		udns = append(udns, tree[i].UDN)
	}
	return udns
}

// udnFromUSN extracts "uuid:<id>" from a USN such as
// "uuid:<id>::urn:schemas-upnp-org:device:MediaServer:1".
func udnFromUSN(usn string) string {
	udn, _, _ := strings.Cut(strings.TrimSpace(usn), "::")
	if !strings.HasPrefix(udn, "uuid:") {
		return ""
	}
	return udn
}

func (s *Scanner) finish(sum *Summary) {
	s.mu.Lock()
	s.scans++
	s.last = sum
	s.mu.Unlock()

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(s.publisher.Topics().Scan(), sum, true); err != nil {
			s.logger.Warn("publishing scan summary failed", "error", err)
		}
	}
	s.emit(Event{Type: EventScanCompleted, ScanID: sum.ID, Scan: sum})

	if s.metrics != nil {
		s.metrics.WriteScan(influxdb.ScanMetric{
			ScanID:    sum.ID,
			Trigger:   sum.Trigger,
			Duration:  sum.Duration(),
			Responses: sum.Responses,
			Devices:   sum.Devices,
			Failures:  sum.Failures,
			Lost:      sum.Lost,
		}, sum.FinishedAt)

		stats := s.inventory.GetStats()
		s.metrics.WriteInventory(stats.TotalDevices,
			stats.ByStatus[inventory.StatusOnline],
			stats.ByStatus[inventory.StatusOffline],
			sum.FinishedAt)
	}
}

func (s *Scanner) publishSnapshot(rec *inventory.Record) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJSON(s.publisher.Topics().Device(rec.UDN), rec, true); err != nil {
		s.logger.Warn("publishing device snapshot failed", "udn", rec.UDN, "error", err)
	}
}

func (s *Scanner) emit(ev Event) {
	ev.Timestamp = s.now().UTC()
	if s.publisher != nil {
		if err := s.publisher.PublishJSON(s.publisher.Topics().Event(ev.Type), ev, false); err != nil {
			s.logger.Warn("publishing event failed", "type", ev.Type, "error", err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ev.Type, ev)
	}
}

func (s *Scanner) setScanning(v bool) {
	s.mu.Lock()
	s.scanning = v
	s.mu.Unlock()
}

// Status is a snapshot of the scanner state.
type Status struct {
	Running  bool          `json:"running"`
	Scanning bool          `json:"scanning"`
	Interval time.Duration `json:"interval_ns"`
	Scans    int           `json:"scans"`
	LastScan *Summary      `json:"last_scan,omitempty"`
}

// Status returns the current scanner state.
func (s *Scanner) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Running:  s.cancel != nil,
		Scanning: s.scanning,
		Interval: s.cfg.Interval,
		Scans:    s.scans,
	}
	if s.last != nil {
		last := *s.last
		st.LastScan = &last
	}
	return st
}

// HandleCommand is an MQTT handler for {prefix}/upnp/command/+. The
// "scan" command queues a scan on the running loop.
func (s *Scanner) HandleCommand(topic string, _ []byte) error {
	name := topic[strings.LastIndex(topic, "/")+1:]
	switch name {
	case "scan":
		if !s.Trigger(TriggerMQTT) {
			s.logger.Debug("scan already queued", "source", TriggerMQTT)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

// ResolveTargets maps configured targets to kinds. A target is either a
// kind name such as "MediaServer" or a full deviceType URN.
func ResolveTargets(reg *schema.Registry, targets []string) ([]*schema.Kind, error) {
	kinds := make([]*schema.Kind, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.Contains(t, ":") {
			if k, ok := reg.Lookup(t); ok {
				kinds = append(kinds, k)
				continue
			}
			t = schema.KindURN(t)
		}
		k, err := reg.Resolve(t)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t, err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func kindURNs(kinds []*schema.Kind) []string {
	urns := make([]string, 0, len(kinds))
	for _, k := range kinds {
		urns = append(urns, k.URN)
	}
	return urns
}
