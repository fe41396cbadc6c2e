package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/onionboard/internal/database"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/scraper"
)

// sourceSettings tags settings changes in the system log.
const sourceSettings = "SETTINGS"

// storeFailure answers a failed store call, mapping ErrNotFound to 404.
func (s *Server) storeFailure(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, database.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	s.logger.Error("settings operation failed", "resource", what, "error", err)
	s.writeError(w, http.StatusInternalServerError, "failed to update "+what)
}

func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.store.ListKeywords(r.Context())
	if err != nil {
		s.storeFailure(w, err, "keywords")
		return
	}
	s.writeJSON(w, http.StatusOK, keywords)
}

func decodeKeyword(w http.ResponseWriter, r *http.Request) (model.Keyword, error) {
	var k model.Keyword
	if err := decodeJSON(w, r, &k); err != nil {
		return k, err
	}
	k.Word = strings.TrimSpace(k.Word)
	k.Category = strings.TrimSpace(k.Category)
	if k.Word == "" || k.Category == "" {
		return k, errors.New("word and category are required")
	}
	return k, nil
}

func (s *Server) handleCreateKeyword(w http.ResponseWriter, r *http.Request) {
	k, err := decodeKeyword(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.CreateKeyword(r.Context(), k)
	if err != nil {
		s.storeFailure(w, err, "keyword")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, fmt.Sprintf("Keyword added: %s (%s)", created.Word, created.Category))
	s.writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdateKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	k, err := decodeKeyword(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.store.UpdateKeyword(r.Context(), id, k)
	if err != nil {
		s.storeFailure(w, err, "keyword")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, "Keyword updated: "+updated.Word)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteKeyword(r.Context(), id); err != nil {
		s.storeFailure(w, err, "keyword")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, fmt.Sprintf("Keyword deleted: #%d", id))
	s.writeMessage(w, "Keyword deleted")
}

func (s *Server) handleListUserAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListUserAgents(r.Context())
	if err != nil {
		s.storeFailure(w, err, "user agents")
		return
	}
	s.writeJSON(w, http.StatusOK, agents)
}

func decodeUserAgent(w http.ResponseWriter, r *http.Request) (model.UserAgent, error) {
	var ua model.UserAgent
	if err := decodeJSON(w, r, &ua); err != nil {
		return ua, err
	}
	ua.UserAgent = strings.TrimSpace(ua.UserAgent)
	if ua.UserAgent == "" {
		return ua, errors.New("user_agent is required")
	}
	return ua, nil
}

func (s *Server) handleCreateUserAgent(w http.ResponseWriter, r *http.Request) {
	ua, err := decodeUserAgent(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.CreateUserAgent(r.Context(), ua)
	if err != nil {
		s.storeFailure(w, err, "user agent")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, "User agent added")
	s.writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdateUserAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ua, err := decodeUserAgent(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.store.UpdateUserAgent(r.Context(), id, ua)
	if err != nil {
		s.storeFailure(w, err, "user agent")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, fmt.Sprintf("User agent updated: #%d", id))
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUserAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteUserAgent(r.Context(), id); err != nil {
		s.storeFailure(w, err, "user agent")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, fmt.Sprintf("User agent deleted: #%d", id))
	s.writeMessage(w, "User agent deleted")
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListWatchlist(r.Context())
	if err != nil {
		s.storeFailure(w, err, "watchlist")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// decodeWatchlistEntry validates the body, normalizes the URL and
// schedules the next check one interval from now. A body without
// is_active keeps active.
func (s *Server) decodeWatchlistEntry(w http.ResponseWriter, r *http.Request, active bool) (model.WatchlistEntry, error) {
	e := model.WatchlistEntry{IsActive: active}
	if err := decodeJSON(w, r, &e); err != nil {
		return e, err
	}
	e.URL = scraper.NormalizeURL(e.URL)
	if e.URL == "" {
		return e, errors.New("url is required")
	}
	if e.IntervalMinutes <= 0 {
		e.IntervalMinutes = model.DefaultWatchIntervalMinutes
	}
	e.Description = strings.TrimSpace(e.Description)
	next := s.now().Add(e.Interval())
	e.NextCheck = &next
	e.LastChecked = nil
	return e, nil
}

func (s *Server) handleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	e, err := s.decodeWatchlistEntry(w, r, true)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.CreateWatchlistEntry(r.Context(), e)
	if err != nil {
		s.storeFailure(w, err, "watchlist entry")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, "Watchlist entry added: "+created.URL)
	s.writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	current, err := s.store.GetWatchlistEntry(r.Context(), id)
	if err != nil {
		s.storeFailure(w, err, "watchlist entry")
		return
	}
	e, err := s.decodeWatchlistEntry(w, r, current.IsActive)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.store.UpdateWatchlistEntry(r.Context(), id, e)
	if err != nil {
		s.storeFailure(w, err, "watchlist entry")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, "Watchlist entry updated: "+updated.URL)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteWatchlistEntry(r.Context(), id); err != nil {
		s.storeFailure(w, err, "watchlist entry")
		return
	}
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, fmt.Sprintf("Watchlist entry deleted: #%d", id))
	s.writeMessage(w, "Watchlist entry deleted")
}

func (s *Server) handleToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	var req model.ToggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}
	n, err := s.store.SetWatchlistActive(r.Context(), req.IsActive)
	if err != nil {
		s.storeFailure(w, err, "watchlist")
		return
	}
	state := "paused"
	if req.IsActive {
		state = "activated"
	}
	msg := fmt.Sprintf("Watchlist %s (%d entries)", state, n)
	s.record(r.Context(), model.LogLevelInfo, sourceSettings, msg)
	s.writeMessage(w, msg)
}
