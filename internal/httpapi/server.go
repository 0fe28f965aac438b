package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/antoniostano/calliope/internal/assistant"
	"github.com/antoniostano/calliope/internal/config"
	"github.com/antoniostano/calliope/internal/observability"
	"github.com/antoniostano/calliope/internal/prompt"
)

// Assistant is the turn pipeline exposed to the route layer.
type Assistant interface {
	ProcessTurn(ctx context.Context, req assistant.TurnRequest, apiKey string) (assistant.TurnResult, error)
	ClearSession(sessionID string) bool
}

// PromptAdmin updates system prompt sections at runtime.
type PromptAdmin interface {
	UpdateSection(key, content string) error
}

type Server struct {
	cfg       config.Config
	assistant Assistant
	prompts   PromptAdmin
	logger    *slog.Logger
}

func New(cfg config.Config, asst Assistant, prompts PromptAdmin, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, assistant: asst, prompts: prompts, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Throttle(s.cfg.ThrottleLimit))
		r.Post("/v1/chat", s.handleChat)
	})
	r.Delete("/v1/history/{session_id}", s.handleClearHistory)
	r.Put("/v1/prompts/{section}", s.handleUpdatePrompt)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": s.cfg.AppName,
		"version": s.cfg.AppVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": s.cfg.AppVersion,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}
	if len(req.Question) > s.cfg.MaxQuestionLen {
		respondError(w, http.StatusBadRequest, "invalid_request", "question exceeds maximum length")
		return
	}

	// The credential rides in a header, never in the request body.
	apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if apiKey == "" {
		respondError(w, http.StatusUnauthorized, "missing_api_key", "API key required in X-API-Key header")
		return
	}

	result, err := s.assistant.ProcessTurn(r.Context(), assistant.TurnRequest{
		SessionID: req.SessionID,
		Question:  req.Question,
		Locale:    req.Locale,
	}, apiKey)
	if err != nil {
		var oos *assistant.OutOfScopeError
		var ue *assistant.UpstreamError
		switch {
		case errors.As(err, &oos):
			respondError(w, http.StatusBadRequest, "out_of_scope", oos.Explanation)
		case errors.As(err, &ue):
			s.logger.Error("upstream failure", "error", err)
			respondError(w, http.StatusBadGateway, "upstream_error", err.Error())
		default:
			s.logger.Error("unexpected turn failure", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{Response: result.Reply, SessionID: result.SessionID})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if !s.assistant.ClearSession(sessionID) {
		respondError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "History cleared successfully"})
}

type updatePromptRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req updatePromptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	section := chi.URLParam(r, "section")
	if err := s.prompts.UpdateSection(section, req.Content); err != nil {
		if errors.Is(err, prompt.ErrUnknownSection) {
			respondError(w, http.StatusBadRequest, "unknown_section", err.Error())
			return
		}
		s.logger.Error("prompt update failed", "section", section, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not persist prompt section")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
