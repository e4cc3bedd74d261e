package inventory

import (
	"fmt"
	"net/url"
	"time"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp/control"
)

// Status is the presence state of a device.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Record is the stored view of one device in a description tree.
type Record struct {
	UDN       string `json:"udn"`
	RootUDN   string `json:"root_udn"`
	ParentUDN string `json:"parent_udn,omitempty"`

	DeviceType string `json:"device_type"`
	Kind       string `json:"kind"`

	FriendlyName    string `json:"friendly_name"`
	Manufacturer    string `json:"manufacturer"`
	ModelName       string `json:"model_name"`
	ModelNumber     string `json:"model_number,omitempty"`
	SerialNumber    string `json:"serial_number,omitempty"`
	Location        string `json:"location"`
	URL             string `json:"url"`
	PresentationURL string `json:"presentation_url,omitempty"`

	Services []ServiceRecord `json:"services"`

	Status      Status    `json:"status"`
	MissedScans int       `json:"missed_scans"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// ServiceRecord is the stored view of a service declared by a device.
type ServiceRecord struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	SCPDURL     string   `json:"scpd_url,omitempty"`
	ControlURL  string   `json:"control_url,omitempty"`
	EventSubURL string   `json:"event_sub_url,omitempty"`
	Actions     []string `json:"actions,omitempty"`
}

// IsRoot reports whether the record is the root of its tree.
func (r *Record) IsRoot() bool {
	return r.UDN == r.RootUDN
}

// Validate checks the fields the repository keys on.
func (r *Record) Validate() error {
	if r.UDN == "" {
		return fmt.Errorf("%w: udn is required", ErrInvalidRecord)
	}
	if r.RootUDN == "" {
		return fmt.Errorf("%w: root udn is required for %s", ErrInvalidRecord, r.UDN)
	}
	return nil
}

// DeepCopy returns a copy that shares no slices with r.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Services != nil {
		c.Services = make([]ServiceRecord, len(r.Services))
		for i, s := range r.Services {
			c.Services[i] = s
			if s.Actions != nil {
				c.Services[i].Actions = append([]string(nil), s.Actions...)
			}
		}
	}
	return &c
}

// RecordsFromTree flattens a description tree into records, root first
// and then the embedded devices in document order. Every record is
// marked online and seen at the given time.
func RecordsFromTree(root *control.Device, seen time.Time) []Record {
	if root == nil {
		return nil
	}
	root = root.Root()
	seen = seen.UTC().Truncate(time.Second)

	records := make([]Record, 0, 1+len(root.Devices()))
	root.Walk(func(d *control.Device) bool {
		records = append(records, recordFromDevice(root, d, seen))
		return true
	})
	return records
}

func recordFromDevice(root, d *control.Device, seen time.Time) Record {
	r := Record{
		UDN:             d.Name,
		RootUDN:         root.Name,
		DeviceType:      d.Type,
		FriendlyName:    d.FriendlyName,
		Manufacturer:    d.Manufacturer,
		ModelName:       d.ModelName,
		ModelNumber:     d.ModelNumber,
		SerialNumber:    d.SerialNumber,
		Location:        d.Location,
		URL:             urlString(d.URL),
		PresentationURL: urlString(d.ResolveURL(d.PresentationURL)),
		Services:        make([]ServiceRecord, 0, len(d.SubServices())),
		Status:          StatusOnline,
		FirstSeen:       seen,
		LastSeen:        seen,
	}
	if p := d.Parent(); p != nil {
		r.ParentUDN = p.Name
	}
	if d.Kind != nil {
		r.Kind = d.Kind.Name
	}

	for _, s := range d.SubServices() {
		sr := ServiceRecord{
			Type:        s.Type,
			ID:          s.ID,
			SCPDURL:     urlString(s.SCPDURL),
			ControlURL:  urlString(s.ControlURL),
			EventSubURL: urlString(s.EventSubURL),
		}
		for _, a := range s.Actions() {
			sr.Actions = append(sr.Actions, a.Name)
		}
		r.Services = append(r.Services, sr)
	}
	return r
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
