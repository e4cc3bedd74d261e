package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/infrastructure/database"
)

// Repository defines device persistence operations.
type Repository interface {
	// Get retrieves a device by UDN.
	// Returns ErrDeviceNotFound if the device does not exist.
	Get(ctx context.Context, udn string) (*Record, error)

	// List retrieves all devices ordered by root and then UDN.
	List(ctx context.Context) ([]Record, error)

	// Upsert stores records atomically. Existing records keep their
	// FirstSeen; everything else is overwritten. It returns the UDNs that
	// were not previously stored.
	Upsert(ctx context.Context, records []Record) (created []string, err error)

	// MarkMissed increments the missed-scan counter of every online
	// device whose UDN is not in seen, and marks it offline once the
	// counter reaches lostAfter. It returns the UDNs that went offline.
	MarkMissed(ctx context.Context, seen []string, lostAfter int) (lost []string, err error)

	// Delete removes a device by UDN.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, udn string) error

	// RecordScan stores the outcome of a discovery scan.
	RecordScan(ctx context.Context, scan Scan) error

	// ListScans returns the most recent scans, newest first.
	ListScans(ctx context.Context, limit int) ([]Scan, error)
}

// Scan is the stored outcome of one discovery scan.
type Scan struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Targets    []string  `json:"targets"`
	Responses  int       `json:"responses"`
	Devices    int       `json:"devices"`
	Failures   int       `json:"failures"`
	Lost       int       `json:"lost"`
	Error      string    `json:"error,omitempty"`
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectRecord = `
	SELECT udn, root_udn, parent_udn, device_type, kind, friendly_name,
		manufacturer, model_name, model_number, serial_number, location, url,
		presentation_url, services, status, missed_scans, first_seen, last_seen
	FROM upnp_devices`

// Get retrieves a device by UDN.
func (r *SQLiteRepository) Get(ctx context.Context, udn string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, selectRecord+" WHERE udn = ?", udn)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by udn: %w", err)
	}
	return rec, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, selectRecord+" ORDER BY root_udn, udn")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

// Upsert stores records in a single transaction.
func (r *SQLiteRepository) Upsert(ctx context.Context, records []Record) ([]string, error) {
	var created []string
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range records {
			rec := &records[i]
			if err := rec.Validate(); err != nil {
				return err
			}

			var exists int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM upnp_devices WHERE udn = ?", rec.UDN,
			).Scan(&exists); err != nil {
				return fmt.Errorf("checking device exists: %w", err)
			}
			if exists == 0 {
				created = append(created, rec.UDN)
			}

			if err := upsertRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func upsertRecord(ctx context.Context, tx *sql.Tx, rec *Record) error {
	services := rec.Services
	if services == nil {
		services = []ServiceRecord{}
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return fmt.Errorf("marshalling services: %w", err)
	}

	status := rec.Status
	if status == "" {
		status = StatusOnline
	}
	lastSeen := rec.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}
	firstSeen := rec.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = lastSeen
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO upnp_devices (
			udn, root_udn, parent_udn, device_type, kind, friendly_name,
			manufacturer, model_name, model_number, serial_number, location, url,
			presentation_url, services, status, missed_scans, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(udn) DO UPDATE SET
			root_udn = excluded.root_udn,
			parent_udn = excluded.parent_udn,
			device_type = excluded.device_type,
			kind = excluded.kind,
			friendly_name = excluded.friendly_name,
			manufacturer = excluded.manufacturer,
			model_name = excluded.model_name,
			model_number = excluded.model_number,
			serial_number = excluded.serial_number,
			location = excluded.location,
			url = excluded.url,
			presentation_url = excluded.presentation_url,
			services = excluded.services,
			status = excluded.status,
			missed_scans = excluded.missed_scans,
			last_seen = excluded.last_seen`,
		rec.UDN,
		rec.RootUDN,
		nullableString(rec.ParentUDN),
		rec.DeviceType,
		rec.Kind,
		rec.FriendlyName,
		rec.Manufacturer,
		rec.ModelName,
		nullableString(rec.ModelNumber),
		nullableString(rec.SerialNumber),
		rec.Location,
		rec.URL,
		nullableString(rec.PresentationURL),
		string(servicesJSON),
		string(status),
		rec.MissedScans,
		firstSeen.UTC().Format(time.RFC3339),
		lastSeen.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", rec.UDN, err)
	}
	return nil
}

// MarkMissed advances the missed-scan counters of unseen online devices.
func (r *SQLiteRepository) MarkMissed(ctx context.Context, seen []string, lostAfter int) ([]string, error) {
	if lostAfter < 1 {
		lostAfter = 1
	}
	seenSet := make(map[string]bool, len(seen))
	for _, udn := range seen {
		seenSet[udn] = true
	}

	var lost []string
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		type candidate struct {
			udn    string
			missed int
		}

		rows, err := tx.QueryContext(ctx,
			"SELECT udn, missed_scans FROM upnp_devices WHERE status = ? ORDER BY udn",
			string(StatusOnline),
		)
		if err != nil {
			return fmt.Errorf("querying online devices: %w", err)
		}
		var candidates []candidate
		for rows.Next() {
			var c candidate
			if err := rows.Scan(&c.udn, &c.missed); err != nil {
				rows.Close()
				return fmt.Errorf("scanning online device: %w", err)
			}
			if !seenSet[c.udn] {
				candidates = append(candidates, c)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterating online devices: %w", err)
		}
		rows.Close()

		for _, c := range candidates {
			missed := c.missed + 1
			status := StatusOnline
			if missed >= lostAfter {
				status = StatusOffline
				lost = append(lost, c.udn)
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE upnp_devices SET missed_scans = ?, status = ? WHERE udn = ?",
				missed, string(status), c.udn,
			); err != nil {
				return fmt.Errorf("updating device %s: %w", c.udn, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lost, nil
}

// Delete removes a device by UDN.
func (r *SQLiteRepository) Delete(ctx context.Context, udn string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM upnp_devices WHERE udn = ?", udn)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// RecordScan stores the outcome of a discovery scan.
func (r *SQLiteRepository) RecordScan(ctx context.Context, scan Scan) error {
	targets := scan.Targets
	if targets == nil {
		targets = []string{}
	}
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("marshalling targets: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO upnp_scans (
			id, started_at, finished_at, targets, responses, devices, failures, lost, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID,
		scan.StartedAt.UTC().Format(time.RFC3339Nano),
		scan.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(targetsJSON),
		scan.Responses,
		scan.Devices,
		scan.Failures,
		scan.Lost,
		nullableString(scan.Error),
	)
	if err != nil {
		return fmt.Errorf("recording scan %s: %w", scan.ID, err)
	}
	return nil
}

// ListScans returns up to limit scans, newest first.
func (r *SQLiteRepository) ListScans(ctx context.Context, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, targets, responses, devices, failures, lost, error
		FROM upnp_scans
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var s Scan
		var started, finished, targetsJSON string
		var scanErr sql.NullString
		if err := rows.Scan(&s.ID, &started, &finished, &targetsJSON,
			&s.Responses, &s.Devices, &s.Failures, &s.Lost, &scanErr); err != nil {
			return nil, fmt.Errorf("scanning scan row: %w", err)
		}
		if s.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if s.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		if err := json.Unmarshal([]byte(targetsJSON), &s.Targets); err != nil {
			return nil, fmt.Errorf("unmarshalling targets: %w", err)
		}
		s.Error = scanErr.String
		scans = append(scans, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scans: %w", err)
	}
	return scans, nil
}

// rowScanner is implemented by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*Record, error) {
	var rec Record
	var parentUDN, modelNumber, serialNumber, presentationURL sql.NullString
	var servicesJSON, status, firstSeen, lastSeen string

	err := scanner.Scan(
		&rec.UDN,
		&rec.RootUDN,
		&parentUDN,
		&rec.DeviceType,
		&rec.Kind,
		&rec.FriendlyName,
		&rec.Manufacturer,
		&rec.ModelName,
		&modelNumber,
		&serialNumber,
		&rec.Location,
		&rec.URL,
		&presentationURL,
		&servicesJSON,
		&status,
		&rec.MissedScans,
		&firstSeen,
		&lastSeen,
	)
	if err != nil {
		return nil, err
	}

	rec.ParentUDN = parentUDN.String
	rec.ModelNumber = modelNumber.String
	rec.SerialNumber = serialNumber.String
	rec.PresentationURL = presentationURL.String
	rec.Status = Status(status)

	if rec.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
		return nil, fmt.Errorf("parsing first_seen: %w", err)
	}
	if rec.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", err)
	}
	if err := json.Unmarshal([]byte(servicesJSON), &rec.Services); err != nil {
		return nil, fmt.Errorf("unmarshalling services: %w", err)
	}
	return &rec, nil
}

// nullableString maps an empty string to NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
