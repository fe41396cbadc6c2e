package server

import (
	"net/http"
	"strings"

	"github.com/nao1215/onionboard/internal/model"
)

// sourceSystem tags maintenance events in the system log.
const sourceSystem = "SYSTEM"

// handleResetDatabase clears the table groups selected in the body.
func (s *Server) handleResetDatabase(w http.ResponseWriter, r *http.Request) {
	var req model.ResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Any() {
		s.writeError(w, http.StatusBadRequest, "select at least one of history, logs or settings")
		return
	}
	s.reset(w, r, req)
}

// handleResetAll clears every table group.
func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	s.reset(w, r, model.ResetAll())
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request, req model.ResetRequest) {
	if err := s.store.Reset(r.Context(), req); err != nil {
		s.logger.Error("database reset failed", "error", err)
		s.record(r.Context(), model.LogLevelError, sourceSystem, "Database reset failed")
		s.writeError(w, http.StatusInternalServerError, "database reset failed")
		return
	}

	msg := "Database reset: " + strings.Join(resetGroups(req), ", ")
	s.logger.Warn("database reset", "history", req.History, "logs", req.Logs, "settings", req.Settings, "user", subject(r.Context()))
	s.record(r.Context(), model.LogLevelSuccess, sourceSystem, msg)
	s.writeMessage(w, msg)
}

func resetGroups(req model.ResetRequest) []string {
	var groups []string
	if req.History {
		groups = append(groups, "history")
	}
	if req.Logs {
		groups = append(groups, "logs")
	}
	if req.Settings {
		groups = append(groups, "settings")
	}
	return groups
}
