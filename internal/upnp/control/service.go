package control

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
)

// Service is a stub for one service declared in a device description.
// Two stubs are the same service only if they are the same pointer.
type Service struct {
	// Type is the serviceType URN, e.g. "urn:schemas-upnp-org:service:ContentDirectory:1".
	Type string

	// ID is the serviceId, e.g. "urn:upnp-org:serviceId:ContentDirectory".
	ID string

	// SCPDURL, ControlURL and EventSubURL are resolved against the
	// declaring device's base URL. Any of them may be nil when the
	// description omits the element.
	SCPDURL     *url.URL
	ControlURL  *url.URL
	EventSubURL *url.URL

	device    *Device
	actions   []Action
	variables []StateVariable
	described bool
}

// Device returns the device that declared the service.
func (s *Service) Device() *Device {
	return s.device
}

// Described reports whether the service's SCPD was loaded.
func (s *Service) Described() bool {
	return s.described
}

// Actions returns the actions from the SCPD, in document order.
func (s *Service) Actions() []Action {
	return append([]Action(nil), s.actions...)
}

// Action returns the named action.
func (s *Service) Action(name string) (Action, bool) {
	for _, a := range s.actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// StateVariables returns the state variables from the SCPD, in document order.
func (s *Service) StateVariables() []StateVariable {
	return append([]StateVariable(nil), s.variables...)
}

// StateVariable returns the named state variable.
func (s *Service) StateVariable(name string) (StateVariable, bool) {
	for _, v := range s.variables {
		if v.Name == name {
			return v, true
		}
	}
	return StateVariable{}, false
}

// ServiceFactory creates service stubs from serviceList entries.
//
// The Builder binds the returned stub to the declaring device if the factory
// has not already done so. A factory may return the same *Service for more
// than one element; the Builder then lists it once in Services.
type ServiceFactory interface {
	NewService(ctx context.Context, el *description.Element, base *url.URL) (*Service, error)
}

// DefaultServiceFactory builds stubs from the serviceList element and, when
// LoadSCPD is set, fetches each SCPD through Source.
type DefaultServiceFactory struct {
	Source   description.Source
	LoadSCPD bool
}

// NewService implements ServiceFactory.
func (f *DefaultServiceFactory) NewService(ctx context.Context, el *description.Element, base *url.URL) (*Service, error) {
	if el == nil || base == nil {
		return nil, fmt.Errorf("%w: service element and base URL are required", upnp.ErrInvalidArgument)
	}

	svc := &Service{}
	var ok bool
	if svc.Type, ok = el.ChildText("serviceType"); !ok || svc.Type == "" {
		return nil, fmt.Errorf("%w: service missing serviceType", upnp.ErrMalformedDescription)
	}
	svc.ID, _ = el.ChildText("serviceId")

	var err error
	if svc.SCPDURL, err = resolveChild(el, "SCPDURL", base); err != nil {
		return nil, err
	}
	if svc.ControlURL, err = resolveChild(el, "controlURL", base); err != nil {
		return nil, err
	}
	if svc.EventSubURL, err = resolveChild(el, "eventSubURL", base); err != nil {
		return nil, err
	}

	if f.LoadSCPD && svc.SCPDURL != nil && f.Source != nil {
		doc, err := f.Source.Fetch(ctx, svc.SCPDURL.String())
		if err != nil {
			return nil, fmt.Errorf("fetching SCPD for %s: %w", svc.Type, err)
		}
		if svc.actions, svc.variables, err = ParseSCPD(doc); err != nil {
			return nil, fmt.Errorf("SCPD for %s: %w", svc.Type, err)
		}
		svc.described = true
	}

	return svc, nil
}

// resolveChild parses the named child as a URL reference and resolves it
// against base. A missing or empty child yields nil.
func resolveChild(el *description.Element, name string, base *url.URL) (*url.URL, error) {
	ref, err := parseOptionalURL(el, name)
	if err != nil || ref == nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

// parseOptionalURL parses the named child as a URL reference without resolving it.
func parseOptionalURL(el *description.Element, name string) (*url.URL, error) {
	raw, ok := el.ChildText(name)
	if !ok || raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", upnp.ErrMalformedDescription, name, raw, err)
	}
	return u, nil
}
