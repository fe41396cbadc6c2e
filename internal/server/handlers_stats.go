package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/nao1215/onionboard/internal/database"
	"github.com/nao1215/onionboard/internal/model"
)

// torProbeTimeout bounds the Tor check done for the status panel.
const torProbeTimeout = 2 * time.Second

func (s *Server) handleGeneralStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GeneralStats(r.Context())
	if err != nil {
		s.logger.Error("failed to compute stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	stats.SystemStatus = s.systemStatus(r.Context())
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) systemStatus(ctx context.Context) model.SystemStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return model.SystemStatus{
		CPU:       runtime.NumGoroutine(),
		Memory:    mem.Alloc / 1024 / 1024,
		Network:   "ONLINE",
		Uptime:    formatUptime(s.now().Sub(s.started)),
		TorStatus: s.torStatus(ctx),
	}
}

func (s *Server) torStatus(ctx context.Context) string {
	if s.resolver == nil {
		return model.TorStatusPassive
	}
	ctx, cancel := context.WithTimeout(ctx, torProbeTimeout)
	defer cancel()
	if s.resolver.Active(ctx) {
		return model.TorStatusActive
	}
	return model.TorStatusPassive
}

// formatUptime renders d as "<hours>h <minutes>m".
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.RecentLogs(r.Context(), recentLogLimit)
	if err != nil {
		s.logger.Error("failed to list logs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load logs")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.LogStats(r.Context())
	if err != nil {
		s.logger.Error("failed to count logs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load log statistics")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.History(r.Context())
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := s.store.ScanDetail(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load scan", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load scan")
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}
