package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/onionboard/internal/model"
	"github.com/nao1215/onionboard/internal/scraper"
)

// sourceScanner tags manual scan events in the system log.
const sourceScanner = "SCANNER"

var errNoScanner = errors.New("no Tor proxy configured")

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	ctx := r.Context()
	start := s.now()
	target := scraper.NormalizeURL(req.URL)

	s.logger.Info("scan requested", "url", target, "user", subject(ctx), "random_ua", req.RandomUA)
	s.record(ctx, model.LogLevelInfo, sourceScanner, "Scan started: "+target)

	scanner, err := s.newScanner(r)
	if err != nil {
		s.metrics.observeScan(outcomeProxyDown, s.now().Sub(start))
		s.record(ctx, model.LogLevelError, sourceScanner, "Tor proxy unavailable: "+err.Error())
		s.writeErrorDetails(w, http.StatusInternalServerError, "Tor proxy unavailable", err)
		return
	}

	keywords, err := s.store.ListKeywords(ctx)
	if err != nil {
		s.logger.Error("failed to load keywords", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load keywords")
		return
	}
	var agents []string
	if req.RandomUA {
		uas, err := s.store.ListUserAgents(ctx)
		if err != nil {
			s.logger.Error("failed to load user agents", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to load user agents")
			return
		}
		for _, ua := range uas {
			agents = append(agents, ua.UserAgent)
		}
	}

	result, err := scanner.Scan(ctx, target, keywords, agents)
	if err != nil {
		duration := s.now().Sub(start)
		if scraper.IsProxyError(err) {
			s.metrics.observeScan(outcomeProxyDown, duration)
			s.record(ctx, model.LogLevelError, sourceScanner, "Tor proxy connection failed: "+err.Error())
			s.writeErrorDetails(w, http.StatusInternalServerError, "Tor proxy connection failed", err)
			return
		}
		s.metrics.observeScan(outcomeFailed, duration)
		s.record(ctx, model.LogLevelError, sourceScanner, fmt.Sprintf("Scan failed: %s: %v", target, err))
		s.writeErrorDetails(w, http.StatusBadGateway, "failed to scan site", err)
		return
	}

	if !result.IsForum {
		duration := s.now().Sub(start)
		s.metrics.observeScan(outcomeNotForum, duration)
		s.record(ctx, model.LogLevelWarn, sourceScanner, "Not a forum, results not saved: "+target)
		s.writeJSON(w, http.StatusOK, model.ScanResponse{
			Message:  "Site is not a forum; results were not saved",
			Data:     result,
			Saved:    false,
			Duration: duration.Seconds(),
		})
		return
	}

	if _, err := s.store.SaveScan(ctx, result, model.SourceManual, s.now()); err != nil {
		s.logger.Error("failed to save scan", "url", target, "error", err)
		s.record(ctx, model.LogLevelError, sourceScanner, "Failed to save scan: "+target)
		s.writeError(w, http.StatusInternalServerError, "failed to save scan results")
		return
	}

	duration := s.now().Sub(start)
	s.metrics.observeScan(outcomeSaved, duration)
	s.record(ctx, model.LogLevelSuccess, sourceScanner,
		fmt.Sprintf("Scan saved: %s (%d threads, %d posts)", target, result.ThreadCount, result.PostCount))
	s.writeJSON(w, http.StatusOK, model.ScanResponse{
		Message:  "Scan completed and saved",
		Data:     result,
		Saved:    true,
		Duration: duration.Seconds(),
	})
}

func (s *Server) newScanner(r *http.Request) (*scraper.Scanner, error) {
	if s.scanners == nil {
		return nil, errNoScanner
	}
	return s.scanners(r.Context())
}
