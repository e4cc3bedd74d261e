package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-upnp/internal/scanner"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/schema"
)

const (
	defaultScanListLimit = 20
	maxScanListLimit     = 500
)

// ScanRequest is the optional body of POST /discovery/scan.
type ScanRequest struct {
	// Targets restricts the scan to these kinds (names or URNs).
	Targets []string `json:"targets,omitempty"`
	// Wait runs the scan within the request and returns its summary.
	Wait bool `json:"wait,omitempty"`
}

// KindResponse describes a registered device kind.
type KindResponse struct {
	Name     string `json:"name"`
	URN      string `json:"urn"`
	Standard bool   `json:"standard"`
}

// handleScan starts a scan.
//
// Without a body the scan is queued on the scan loop (202). With "wait"
// the scan runs inside the request and the summary is returned (200).
// Targeted scans without "wait" run in the background (202).
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid request body")
		return
	}

	kinds, err := scanner.ResolveTargets(s.kinds, req.Targets)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if req.Wait {
		sum, err := s.scanner.ScanKinds(r.Context(), scanner.TriggerAPI, kinds)
		switch {
		case errors.Is(err, scanner.ErrScanInProgress):
			writeConflict(w, "a scan is already in progress")
		case err != nil:
			s.logger.Warn("API scan failed", "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeScanFailed, err.Error())
		default:
			writeJSON(w, http.StatusOK, sum)
		}
		return
	}

	if s.scanner.Status().Scanning {
		writeConflict(w, "a scan is already in progress")
		return
	}

	if len(kinds) == 0 {
		queued := s.scanner.Trigger(scanner.TriggerAPI)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "queued",
			"queued": queued,
		})
		return
	}

	go s.backgroundScan(kinds)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "started",
		"targets": req.Targets,
	})
}

func (s *Server) backgroundScan(kinds []*schema.Kind) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.scanner.ScanKinds(ctx, scanner.TriggerAPI, kinds); err != nil {
		s.logger.Warn("background scan failed", "error", err)
	}
}

// handleDiscoveryStatus returns the scan loop state and inventory totals.
func (s *Server) handleDiscoveryStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scanner":   s.scanner.Status(),
		"inventory": s.inventory.GetStats(),
	})
}

// handleListScans returns recent scans, newest first.
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultScanListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxScanListLimit)
	}

	scans, err := s.inventory.ListScans(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing scans failed", "error", err)
		writeInternalError(w, "failed to list scans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scans": scans,
		"count": len(scans),
	})
}

// handleListKinds returns every registered device kind.
func (s *Server) handleListKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := s.kinds.Kinds()
	out := make([]KindResponse, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, KindResponse{
			Name:     k.Name,
			URN:      k.URN,
			Standard: k.Standard,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kinds": out,
		"count": len(out),
	})
}
