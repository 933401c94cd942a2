package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dbchat/dbchat/internal/agent"
	"github.com/dbchat/dbchat/internal/answer"
	"github.com/dbchat/dbchat/internal/observability"
)

const (
	GreetingReply = "Hello! Ask me about your users, products, or orders, for example: 'Show total sales amount by user.'"
	emptyReply    = "Sorry, I could not find an answer to that question."
)

var (
	ErrEmptyQuestion    = errors.New("question is required")
	ErrTurnNotFound     = errors.New("turn not found")
	ErrChartUnavailable = errors.New("turn has no chart")
)

var greetings = map[string]struct{}{
	"hi":             {},
	"hello":          {},
	"hey":            {},
	"yo":             {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
}

func IsGreeting(question string) bool {
	_, ok := greetings[strings.ToLower(strings.TrimSpace(question))]
	return ok
}

type Runner interface {
	Run(ctx context.Context, question string) (*agent.RunResult, error)
	ToolNames() []string
}

type Service struct {
	store  *Store
	runner Runner
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store *Store, runner Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, runner: runner, logger: logger, now: time.Now}
}

func (s *Service) CreateSession(owner string) *Session {
	session := s.store.Create(owner)
	s.logger.Debug("session created", slog.String("session_id", session.ID))
	return session
}

func (s *Service) History(sessionID, owner string) ([]Turn, error) {
	session, err := s.store.Get(sessionID, owner)
	if err != nil {
		return nil, err
	}
	return session.Turns(), nil
}

// Ask answers one question in a session. The user turn is recorded even when the
// model fails; the returned turn is the assistant reply.
func (s *Service) Ask(ctx context.Context, sessionID, owner, question string) (Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Turn{}, ErrEmptyQuestion
	}
	session, err := s.store.Get(sessionID, owner)
	if err != nil {
		return Turn{}, err
	}

	session.ask.Lock()
	defer session.ask.Unlock()

	start := s.now()
	session.append(Turn{Role: RoleUser, Content: question, CreatedAt: start.UTC()})

	if IsGreeting(question) {
		return s.reply(session, start, GreetingReply, RenderPayload{Mode: ModeText, Summary: GreetingReply}), nil
	}

	chartType := answer.DetectChartIntent(question)
	result, err := s.runner.Run(ctx, question)
	if err != nil {
		observability.IncrementChatTurnFailure()
		s.logger.ErrorContext(ctx, "agent run failed",
			slog.String("session_id", session.ID),
			slog.Any("error", err),
		)
		return Turn{}, fmt.Errorf("answer question: %w", err)
	}
	for _, step := range result.Steps {
		s.logger.DebugContext(ctx, "agent step",
			slog.String("session_id", session.ID),
			slog.Int("round", step.Round),
			slog.String("tool", step.Tool),
			slog.String("input", step.Input),
			slog.Bool("is_error", step.IsError),
		)
	}

	text := answer.Clean(result.FinalText, s.runner.ToolNames()...)
	if text == "" {
		text = emptyReply
	}
	return s.reply(session, start, text, buildPayload(text, chartType)), nil
}

func (s *Service) reply(session *Session, start time.Time, text string, payload RenderPayload) Turn {
	turn := Turn{
		Role:      RoleAssistant,
		Content:   text,
		CreatedAt: s.now().UTC(),
		Payload:   &payload,
	}
	turn = session.append(turn)
	observability.ObserveChatTurn(string(payload.Mode), s.now().Sub(start))
	return turn
}

// RenderTurnChart replays the chart of a stored assistant turn from its rows.
func (s *Service) RenderTurnChart(w io.Writer, sessionID, owner string, index int) error {
	session, err := s.store.Get(sessionID, owner)
	if err != nil {
		return err
	}
	turn, ok := session.turn(index)
	if !ok {
		return ErrTurnNotFound
	}
	if turn.Payload == nil || turn.Payload.Mode != ModeChart {
		return ErrChartUnavailable
	}
	if !turn.Payload.RenderChart(w) {
		return ErrChartUnavailable
	}
	return nil
}
