package assistant

import (
	"context"
	"log/slog"

	"github.com/antoniostano/calliope/internal/archive"
	"github.com/antoniostano/calliope/internal/guardrails"
	"github.com/antoniostano/calliope/internal/history"
	"github.com/antoniostano/calliope/internal/observability"
	"github.com/antoniostano/calliope/internal/prompt"
	"github.com/antoniostano/calliope/internal/upstream"
)

// Completer is the outbound completion call, satisfied by *upstream.Client.
type Completer interface {
	Complete(ctx context.Context, req upstream.Request, apiKey string) (*upstream.Response, error)
}

// TurnRequest is one validated inbound chat turn.
type TurnRequest struct {
	SessionID string
	Question  string
	Locale    string
}

// TurnResult carries the assistant reply and the session the turn landed in.
type TurnResult struct {
	Reply     string
	SessionID string
}

// Config holds the per-service knobs of the turn pipeline.
type Config struct {
	Model         string
	MaxReplyWords int
}

// Service sequences one chat turn: sanitize, gate, recall, prompt, complete,
// budget, record. All collaborators are injected at construction.
type Service struct {
	cfg      Config
	gate     *guardrails.Gate
	memory   *history.Store
	prompts  *prompt.Builder
	upstream Completer
	archive  archive.Store
	metrics  *observability.Metrics
	logger   *slog.Logger
}

func New(cfg Config, gate *guardrails.Gate, memory *history.Store, prompts *prompt.Builder,
	completer Completer, transcript archive.Store, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if cfg.MaxReplyWords <= 0 {
		cfg.MaxReplyWords = guardrails.DefaultMaxReplyWords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		gate:     gate,
		memory:   memory,
		prompts:  prompts,
		upstream: completer,
		archive:  transcript,
		metrics:  metrics,
		logger:   logger,
	}
}

// ProcessTurn runs the full pipeline for one question. The credential is
// supplied out of band by the route layer and forwarded to the provider.
func (s *Service) ProcessTurn(ctx context.Context, req TurnRequest, apiKey string) (TurnResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.memory.NewSessionKey()
	}
	locale := req.Locale
	if locale == "" {
		locale = prompt.DefaultLocale
	}

	question := s.gate.Sanitize(req.Question)

	if ok, explanation := s.gate.Classify(question); !ok {
		s.countTurn("rejected")
		if s.metrics != nil {
			s.metrics.GateRejections.Inc()
		}
		s.logger.Info("question rejected by topic gate", "session_id", sessionID)
		return TurnResult{}, &OutOfScopeError{Explanation: explanation}
	}

	prior := s.memory.RoleContentPairs(sessionID)

	var memoryTexts []string
	for _, p := range prior {
		if p.Role == history.RoleUser {
			memoryTexts = append(memoryTexts, p.Content)
		}
	}
	systemPrompt := s.prompts.BuildSystemPrompt(memoryTexts, locale)

	messages := make([]upstream.Message, 0, len(prior)+2)
	messages = append(messages, upstream.Message{Role: "system", Content: systemPrompt})
	for _, p := range prior {
		messages = append(messages, upstream.Message{Role: p.Role, Content: p.Content})
	}
	messages = append(messages, upstream.Message{Role: history.RoleUser, Content: question})

	resp, err := s.upstream.Complete(ctx, upstream.Request{
		Model:    s.cfg.Model,
		Messages: messages,
	}, apiKey)
	if err != nil {
		s.countTurn("upstream_error")
		return TurnResult{}, &UpstreamError{Err: err}
	}

	reply, err := upstream.ExtractReply(resp)
	if err != nil {
		s.countTurn("upstream_error")
		return TurnResult{}, &UpstreamError{Err: err}
	}
	reply = guardrails.EnforceOutputLength(reply, s.cfg.MaxReplyWords)

	s.memory.Append(sessionID, history.RoleUser, question)
	s.memory.Append(sessionID, history.RoleAssistant, reply)
	s.recordTranscript(ctx, sessionID, locale, question, reply)

	s.countTurn("accepted")
	if s.metrics != nil {
		s.metrics.LiveSessions.Set(float64(s.memory.Len()))
	}
	return TurnResult{Reply: reply, SessionID: sessionID}, nil
}

// ClearSession empties the session's conversation memory and reports whether
// the session was known.
func (s *Service) ClearSession(sessionID string) bool {
	return s.memory.Clear(sessionID)
}

func (s *Service) recordTranscript(ctx context.Context, sessionID, locale, question, reply string) {
	if s.archive == nil {
		return
	}
	turns := []archive.Record{
		{SessionID: sessionID, Role: history.RoleUser, Content: question, Locale: locale},
		{SessionID: sessionID, Role: history.RoleAssistant, Content: reply, Locale: locale},
	}
	for _, rec := range turns {
		if err := s.archive.SaveTurn(ctx, rec); err != nil {
			// The archive is best-effort; a failed write must not fail the turn.
			s.logger.Error("transcript archive write failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (s *Service) countTurn(outcome string) {
	if s.metrics != nil {
		s.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	}
}
