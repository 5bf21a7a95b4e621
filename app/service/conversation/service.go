package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"calbot/app/config"
	"calbot/app/model"
	"calbot/app/service/engine"

	"github.com/samber/do"
)

type turnRunner interface {
	Run(ctx context.Context, transcript []model.Message) ([]model.Message, error)
}

var _ turnRunner = (*engine.Service)(nil)

// conversationState owns one transcript. Its mutex serializes turns, so two
// messages for the same conversation never interleave inside the engine.
type conversationState struct {
	mu       sync.Mutex
	messages []model.Message
}

type Service struct {
	cfg       *config.Config
	engineSvc turnRunner

	mu            sync.Mutex
	conversations map[string]*conversationState
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:           do.MustInvoke[*config.Config](di),
		engineSvc:     do.MustInvoke[*engine.Service](di),
		conversations: make(map[string]*conversationState),
	}, nil
}

// ProcessMessage runs one full turn and returns the assistant's reply. The
// stored transcript is replaced only when the turn succeeds; a failed turn
// leaves it untouched so the caller can simply retry.
func (s *Service) ProcessMessage(ctx context.Context, conversationID, text string) (string, error) {
	conv := s.conversation(conversationID)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	start := time.Now()

	transcript := model.CloneTranscript(conv.messages)
	transcript = append(transcript, model.Message{
		Role:    model.RoleUser,
		Content: text,
	})

	result, err := s.engineSvc.Run(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("failed to process message: %w", err)
	}

	conv.messages = trimTranscript(result, s.cfg.Agent.HistoryLimit)

	reply := result[len(result)-1].Content

	slog.Info("Processed message",
		"conversation", conversationID,
		"steps", len(result)-len(transcript),
		"duration", time.Since(start),
	)

	return reply, nil
}

func (s *Service) History(conversationID string) []model.Message {
	conv := s.conversation(conversationID)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	return model.CloneTranscript(conv.messages)
}

func (s *Service) Reset(conversationID string) {
	conv := s.conversation(conversationID)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.messages = nil

	slog.Info("Conversation reset", "conversation", conversationID)
}

func (s *Service) conversation(id string) *conversationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		conv = &conversationState{}
		s.conversations[id] = conv
	}

	return conv
}
