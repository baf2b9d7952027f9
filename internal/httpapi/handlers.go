package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kvlab/leaderfollower/internal/kverrors"
	"github.com/kvlab/leaderfollower/internal/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthInfo{Status: "ok", Role: s.role.String()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	v, ok := s.store.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Dump())
}

func (s *Server) handleDumpVersions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.DumpVersions())
}

// handleSet services POST /set?key=K&value=V — query parameters, not
// a JSON body.
func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	value := r.URL.Query().Get("value")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	res, err := s.writer.Write(r.Context(), key, value)
	if err != nil {
		switch {
		case errors.Is(err, kverrors.ErrInvalidConfiguration):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, kverrors.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, kverrors.ErrCancelled):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	status := http.StatusOK
	if res.WasCancelled {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"success": res.IsSuccess,
		"quorum":  res.RequiredQuorum,
		"acks":    res.SuccessfulFollowers,
	})
}

// handleConfig services POST /config with the single-object body
// {writeQuorum?, minDelayMs?, maxDelayMs?}.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WriteQuorum *int   `json:"writeQuorum"`
		MinDelayMs  *int64 `json:"minDelayMs"`
		MaxDelayMs  *int64 `json:"maxDelayMs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.runtime.Update(body.WriteQuorum, body.MinDelayMs, body.MaxDelayMs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.runtime.Snapshot())
}

// handleReplicate services POST /replicate with body {Key, Value,
// Version} and invokes FollowerApply.
func (s *Server) handleReplicate(w http.ResponseWriter, r *http.Request) {
	var cmd types.ReplicationCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if cmd.Key == "" {
		writeError(w, http.StatusBadRequest, "Key is required")
		return
	}

	if err := s.applier.Apply(r.Context(), cmd); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
