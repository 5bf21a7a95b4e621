package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"calbot/app/config"
	"calbot/app/service/calendar"
	"calbot/app/util/timetext"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
)

type eventLister interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

var (
	_ eventLister     = (*calendar.Service)(nil)
	_ do.Shutdownable = (*Service)(nil)
)

type Notification struct {
	EventID    string
	EventTitle string
	StartTime  time.Time
	Method     string
}

// Service sweeps the event store on a schedule and queues a notification for
// every reminder whose fire window has opened. Each event/reminder pair fires
// at most once per process lifetime.
type Service struct {
	cfg      *config.Config
	eventSvc eventLister

	notifications chan Notification
	now           func() time.Time

	mu    sync.Mutex
	fired map[string]bool
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:           cfg,
		eventSvc:      do.MustInvoke[*calendar.Service](di),
		notifications: make(chan Notification, cfg.Reminders.ChannelSize),
		now:           time.Now,
		fired:         make(map[string]bool),
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Reminders.Enabled {
		slog.Debug("Reminders are disabled")
		return nil
	}

	scheduler := cron.New()

	_, err := scheduler.AddFunc("@every "+s.cfg.Reminders.CheckInterval, func() {
		if err := s.sweep(ctx); err != nil {
			slog.Error("Reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	slog.Info("Reminder dispatcher started", "interval", s.cfg.Reminders.CheckInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case notification, ok := <-s.notifications:
			if !ok {
				return nil
			}

			slog.Info("Reminder due",
				"event_id", notification.EventID,
				"title", notification.EventTitle,
				"start_time", timetext.Display(notification.StartTime),
				"method", notification.Method,
				"telegram", true,
			)
		}
	}
}

// sweep queues reminders inside their window: from event start minus
// minutes_before up to, but not including, the event start.
func (s *Service) sweep(ctx context.Context) error {
	now := s.now()

	events, err := s.eventSvc.ListEvents(ctx, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	for _, event := range events {
		if !event.StartTime.After(now) {
			continue
		}

		for _, reminder := range event.Reminders {
			fireAt := event.StartTime.Add(-time.Duration(reminder.MinutesBefore) * time.Minute)
			if now.Before(fireAt) {
				continue
			}

			if !s.markFired(event.ID + "/" + reminder.ID) {
				continue
			}

			s.push(Notification{
				EventID:    event.ID,
				EventTitle: event.Title,
				StartTime:  event.StartTime,
				Method:     reminder.Method,
			})
		}
	}

	return nil
}

func (s *Service) markFired(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fired[key] {
		return false
	}

	s.fired[key] = true

	return true
}

func (s *Service) push(notification Notification) {
	defer func() {
		if r := recover(); r != nil {

		}
	}()

	select {
	case s.notifications <- notification:
	default:
		slog.Warn("notification channel is full")
	}
}

func (s *Service) Shutdown() error {
	close(s.notifications)

	return nil
}
