package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/codymoss/hopgate/catalog"
	"github.com/codymoss/hopgate/convert"
	"github.com/codymoss/hopgate/registry"
)

// ConvertRequest is a request to rewrite a URL into its gateway form.
type ConvertRequest struct {
	URL string `json:"url"`
}

// PlatformsResponse lists the supported platforms.
type PlatformsResponse struct {
	Gateway   string             `json:"gateway"`
	Platforms []catalog.Platform `json:"platforms"`
}

// ErrorResponse represents an error.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
}

// handleConvert handles POST /v1/convert requests.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Error("failed to decode request", "error", err)
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.URL == "" {
		s.sendError(w, "url is required", http.StatusBadRequest)
		return
	}

	conv := s.converter()
	if conv == nil {
		s.sendError(w, "platform registry not loaded", http.StatusServiceUnavailable)
		return
	}

	result, err := conv.Convert(req.URL)
	if err != nil {
		if errors.Is(err, convert.ErrInvalidURL) {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("conversion failed", "url", req.URL, "error", err)
		s.sendError(w, "conversion failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("convert request",
		"url", req.URL,
		"matched", result.Matched,
		"platform", result.Platform,
		"tier", result.Tier)

	s.sendJSON(w, result, http.StatusOK)
}

// handlePlatforms handles GET /v1/platforms requests.
func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	reg := s.store.Current()
	if reg == nil {
		s.sendError(w, "platform registry not loaded", http.StatusServiceUnavailable)
		return
	}

	s.sendJSON(w, PlatformsResponse{
		Gateway:   s.gateway,
		Platforms: catalog.Build(reg, s.gateway),
	}, http.StatusOK)
}

// handleCatalog handles GET /catalog requests with a browsable HTML page.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	reg := s.store.Current()
	if reg == nil {
		http.Error(w, "platform registry not loaded", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := catalog.RenderHTML(w, s.gateway, catalog.Build(reg, s.gateway)); err != nil {
		s.logger.Error("failed to render catalog", "error", err)
	}
}

// handleRefresh handles POST /v1/registry/refresh requests by forcing a
// remote registry fetch.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		s.sendError(w, "no remote registry source configured", http.StatusConflict)
		return
	}

	reg, err := s.source.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, registry.ErrRefreshThrottled) {
			s.sendError(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		s.logger.Error("registry refresh failed", "error", err)
		s.sendError(w, "registry refresh failed", http.StatusBadGateway)
		return
	}

	s.store.Swap(reg)
	s.logger.Info("registry refreshed", "platforms", reg.Len())

	s.sendJSON(w, map[string]any{
		"status":    "ok",
		"platforms": reg.Len(),
	}, http.StatusOK)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if reg := s.store.Current(); reg != nil {
		health["platforms"] = reg.Len()
	} else {
		health["status"] = "degraded"
	}
	s.sendJSON(w, health, http.StatusOK)
}

func (s *Server) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	s.sendJSON(w, ErrorResponse{
		Error:      message,
		StatusCode: statusCode,
	}, statusCode)
}
