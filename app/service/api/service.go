package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calbot/app/config"
	"calbot/app/model"
	"calbot/app/service/calendar"
	"calbot/app/service/conversation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type conversationRunner interface {
	ProcessMessage(ctx context.Context, conversationID, text string) (string, error)
	History(conversationID string) []model.Message
	Reset(conversationID string)
}

type eventLister interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

var (
	_ conversationRunner = (*conversation.Service)(nil)
	_ eventLister        = (*calendar.Service)(nil)
	_ do.Shutdownable    = (*Service)(nil)
)

type Service struct {
	cfg      *config.Config
	convSvc  conversationRunner
	eventSvc eventLister
	validate *validator.Validate
	app      *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	return newService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*calendar.Service](di),
	), nil
}

func newService(cfg *config.Config, convSvc conversationRunner, eventSvc eventLister) *Service {
	s := &Service{
		cfg:      cfg,
		convSvc:  convSvc,
		eventSvc: eventSvc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Get("/healthz", s.handleHealth)
	app.Post("/api/conversations/:id/messages", s.handleMessage)
	app.Get("/api/conversations/:id/history", s.handleHistory)
	app.Post("/api/conversations/:id/reset", s.handleReset)
	app.Get("/api/events", s.handleEvents)

	s.app = app

	return s
}

func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.API.Enabled {
		slog.Debug("HTTP API is disabled")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP API listening", "addr", s.cfg.API.Addr)

		if err := s.app.Listen(s.cfg.API.Addr); err != nil {
			return fmt.Errorf("failed to serve HTTP API: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		return s.app.ShutdownWithTimeout(shutdownTimeout)
	})

	return g.Wait()
}

// Shutdown is idempotent; the usual teardown already happened through the
// context branch in Run by the time the injector winds down.
func (s *Service) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}
