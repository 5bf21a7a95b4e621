package calendar

import (
	"errors"
	"time"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrReminderNotFound = errors.New("reminder not found")
)

type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Location    string     `json:"location,omitempty"`
	EventType   string     `json:"event_type,omitempty"`
	Recurrence  string     `json:"recurrence,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Reminders   []Reminder `json:"reminders,omitempty"`
}

type Attendee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Reminder struct {
	ID            string `json:"id"`
	MinutesBefore int    `json:"minutes_before"`
	Method        string `json:"method,omitempty"`
}

type CreateEventRequest struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Location    string
	EventType   string
	Recurrence  string
}

// UpdateEventRequest carries replacement values; zero-valued fields leave the
// stored event unchanged.
type UpdateEventRequest struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Location    string
	EventType   string
	Recurrence  string
}
