package calendar

import (
	"bufio"
	"calbot/app/config"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/samber/do"
)

// Service is a JSONL-backed event store. Every operation loads the full set,
// applies the change and writes the set back, serialized by one lock.
type Service struct {
	path string
	mu   sync.RWMutex
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewWithPath(cfg.Storage.Path)
}

func NewWithPath(path string) (*Service, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
	}

	return &Service{
		path: path,
	}, nil
}

func (s *Service) load() ([]Event, error) {
	file, err := os.OpenFile(s.path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}
	defer file.Close()

	events := make([]Event, 0)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event Event
		if err = json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("failed to parse JSON line: %w", err)
		}

		events = append(events, event)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading event store: %w", err)
	}

	return events, nil
}

func (s *Service) save(events []Event) error {
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if _, err = writer.WriteString(string(data) + "\n"); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}

	if err = writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	return nil
}

func findEvent(events []Event, id string) int {
	return pie.FindFirstUsing(events, func(e Event) bool {
		return e.ID == id
	})
}

func (s *Service) CreateEvent(_ context.Context, req CreateEventRequest) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}

	event := Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		EventType:   req.EventType,
		Recurrence:  req.Recurrence,
	}

	events = append(events, event)

	if err = s.save(events); err != nil {
		return nil, err
	}

	slog.Info("Created event",
		"id", event.ID,
		"title", event.Title,
	)

	return &event, nil
}

func (s *Service) GetEvent(_ context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}

	index := findEvent(events, id)
	if index < 0 {
		return nil, ErrEventNotFound
	}

	event := events[index]

	return &event, nil
}

// ListEvents returns events starting inside [from, to], sorted by start time.
// A zero bound leaves that side unbounded.
func (s *Service) ListEvents(_ context.Context, from, to time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}

	result := pie.Filter(events, func(e Event) bool {
		if !from.IsZero() && e.StartTime.Before(from) {
			return false
		}
		if !to.IsZero() && e.StartTime.After(to) {
			return false
		}

		return true
	})

	return pie.SortUsing(result, func(a, b Event) bool {
		return a.StartTime.Before(b.StartTime)
	}), nil
}

func (s *Service) UpdateEvent(_ context.Context, id string, req UpdateEventRequest) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}

	index := findEvent(events, id)
	if index < 0 {
		return nil, ErrEventNotFound
	}

	event := &events[index]

	if req.Title != "" {
		event.Title = req.Title
	}
	if req.Description != "" {
		event.Description = req.Description
	}
	if !req.StartTime.IsZero() {
		event.StartTime = req.StartTime
	}
	if !req.EndTime.IsZero() {
		event.EndTime = req.EndTime
	}
	if req.Location != "" {
		event.Location = req.Location
	}
	if req.EventType != "" {
		event.EventType = req.EventType
	}
	if req.Recurrence != "" {
		event.Recurrence = req.Recurrence
	}

	if err = s.save(events); err != nil {
		return nil, err
	}

	slog.Info("Updated event", "id", id)

	result := events[index]

	return &result, nil
}

func (s *Service) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return err
	}

	index := findEvent(events, id)
	if index < 0 {
		return ErrEventNotFound
	}

	events = append(events[:index], events[index+1:]...)

	if err = s.save(events); err != nil {
		return err
	}

	slog.Info("Deleted event", "id", id)

	return nil
}

func (s *Service) AddAttendee(_ context.Context, eventID, name, email string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}

	index := findEvent(events, eventID)
	if index < 0 {
		return nil, ErrEventNotFound
	}

	events[index].Attendees = append(events[index].Attendees, Attendee{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
	})

	if err = s.save(events); err != nil {
		return nil, err
	}

	slog.Info("Added attendee",
		"event_id", eventID,
		"name", name,
	)

	result := events[index]

	return &result, nil
}

func (s *Service) RemoveAttendee(_ context.Context, eventID, attendeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return err
	}

	index := findEvent(events, eventID)
	if index < 0 {
		return ErrEventNotFound
	}

	attendees := events[index].Attendees

	attendeeIndex := pie.FindFirstUsing(attendees, func(a Attendee) bool {
		return a.ID == attendeeID
	})
	if attendeeIndex < 0 {
		return ErrAttendeeNotFound
	}

	events[index].Attendees = append(attendees[:attendeeIndex], attendees[attendeeIndex+1:]...)

	if err = s.save(events); err != nil {
		return err
	}

	slog.Info("Removed attendee",
		"event_id", eventID,
		"attendee_id", attendeeID,
	)

	return nil
}

func (s *Service) AddReminder(_ context.Context, eventID string, minutesBefore int, method string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}

	index := findEvent(events, eventID)
	if index < 0 {
		return nil, ErrEventNotFound
	}

	events[index].Reminders = append(events[index].Reminders, Reminder{
		ID:            uuid.NewString(),
		MinutesBefore: minutesBefore,
		Method:        method,
	})

	if err = s.save(events); err != nil {
		return nil, err
	}

	slog.Info("Added reminder",
		"event_id", eventID,
		"minutes_before", minutesBefore,
	)

	result := events[index]

	return &result, nil
}

func (s *Service) RemoveReminder(_ context.Context, eventID, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load()
	if err != nil {
		return err
	}

	index := findEvent(events, eventID)
	if index < 0 {
		return ErrEventNotFound
	}

	reminders := events[index].Reminders

	reminderIndex := pie.FindFirstUsing(reminders, func(r Reminder) bool {
		return r.ID == reminderID
	})
	if reminderIndex < 0 {
		return ErrReminderNotFound
	}

	events[index].Reminders = append(reminders[:reminderIndex], reminders[reminderIndex+1:]...)

	if err = s.save(events); err != nil {
		return err
	}

	slog.Info("Removed reminder",
		"event_id", eventID,
		"reminder_id", reminderID,
	)

	return nil
}

// FindOverlapping returns events whose [start, end] intersects the candidate
// range, boundaries inclusive: an event touching the range at a single instant
// still counts. An event matching excludeID is dropped regardless of overlap.
// The candidate range is evaluated literally, inverted ranges included.
func (s *Service) FindOverlapping(_ context.Context, start, end time.Time, excludeID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}

	return pie.Filter(events, func(e Event) bool {
		if excludeID != "" && e.ID == excludeID {
			return false
		}

		return !e.EndTime.Before(start) && !e.StartTime.After(end)
	}), nil
}
