package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-upnp/internal/inventory"
)

// handleListDevices returns inventory records.
// Query parameters: kind, status (online|offline), roots (bool).
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := inventory.Filter{Kind: q.Get("kind")}

	if v := q.Get("status"); v != "" {
		status := inventory.Status(v)
		if status != inventory.StatusOnline && status != inventory.StatusOffline {
			writeBadRequest(w, "status must be online or offline")
			return
		}
		filter.Status = status
	}
	if v := q.Get("roots"); v != "" {
		roots, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "roots must be a boolean")
			return
		}
		filter.RootsOnly = roots
	}

	records, err := s.inventory.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	if records == nil {
		records = []inventory.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": records,
		"count":   len(records),
	})
}

// handleGetDevice returns a single device by UDN.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleGetDeviceServices returns the services a device declares.
func (s *Server) handleGetDeviceServices(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	services := rec.Services
	if services == nil {
		services = []inventory.ServiceRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"udn":      rec.UDN,
		"services": services,
		"count":    len(services),
	})
}

// handleGetDeviceTree returns every device in the tree the device belongs to.
func (s *Server) handleGetDeviceTree(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	tree, err := s.inventory.Tree(r.Context(), rec.RootUDN)
	if err != nil {
		s.logger.Error("loading device tree failed", "root_udn", rec.RootUDN, "error", err)
		writeInternalError(w, "failed to load device tree")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"root_udn": rec.RootUDN,
		"devices":  tree,
		"count":    len(tree),
	})
}

// handleDeleteDevice forgets a device and, for a root, its whole tree.
// A device still on the network reappears on the next scan.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	udn := chi.URLParam(r, "udn")
	if err := s.inventory.Delete(r.Context(), udn); err != nil {
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("deleting device failed", "udn", udn, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceStats returns inventory statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.inventory.GetStats())
}

func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*inventory.Record, bool) {
	udn := chi.URLParam(r, "udn")
	rec, err := s.inventory.Get(r.Context(), udn)
	if err != nil {
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return nil, false
		}
		s.logger.Error("loading device failed", "udn", udn, "error", err)
		writeInternalError(w, "failed to load device")
		return nil, false
	}
	return rec, true
}
