package catalog

import (
	"calbot/app/service/calendar"
	"calbot/app/service/conflict"
	"calbot/app/util/timetext"
	"context"
	"fmt"
	"strings"
)

func builtinTools(calendarSvc *calendar.Service, conflictSvc *conflict.Service) []Tool {
	return []Tool{
		{
			Name:        "create_event",
			Description: "Create a calendar event. Times are RFC3339 or YYYY-MM-DDTHH:MM.",
			Parameters: objectSchema(map[string]any{
				"title":       stringProp("Event title"),
				"start_time":  stringProp("Start time"),
				"end_time":    stringProp("End time"),
				"description": stringProp("Event description"),
				"location":    stringProp("Event location"),
				"event_type":  stringProp("Event type, e.g. 'meeting' or 'appointment'"),
				"recurrence":  stringProp("Recurrence rule, e.g. 'RRULE:FREQ=WEEKLY'"),
			}, "title", "start_time", "end_time"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				title, err := requiredStringArg(args, "title")
				if err != nil {
					return "", err
				}

				start, err := requiredTimeArg(args, "start_time")
				if err != nil {
					return "", err
				}

				end, err := requiredTimeArg(args, "end_time")
				if err != nil {
					return "", err
				}

				event, err := calendarSvc.CreateEvent(ctx, calendar.CreateEventRequest{
					Title:       title,
					Description: stringArg(args, "description"),
					StartTime:   start,
					EndTime:     end,
					Location:    stringArg(args, "location"),
					EventType:   stringArg(args, "event_type"),
					Recurrence:  stringArg(args, "recurrence"),
				})
				if err != nil {
					return "", fmt.Errorf("failed to create event: %w", err)
				}

				return "Created event:\n" + renderEvent(event), nil
			},
		},
		{
			Name:        "list_events",
			Description: "List calendar events, optionally bounded to events starting between 'from' and 'to'.",
			Parameters: objectSchema(map[string]any{
				"from": stringProp("Lower bound on event start time"),
				"to":   stringProp("Upper bound on event start time"),
			}),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				from, err := timeArg(args, "from")
				if err != nil {
					return "", err
				}

				to, err := timeArg(args, "to")
				if err != nil {
					return "", err
				}

				events, err := calendarSvc.ListEvents(ctx, from, to)
				if err != nil {
					return "", fmt.Errorf("failed to list events: %w", err)
				}

				if len(events) == 0 {
					return "No events found.", nil
				}

				var b strings.Builder

				fmt.Fprintf(&b, "Found %d event(s):\n", len(events))
				for i, event := range events {
					fmt.Fprintf(&b, "%d. %q (%s – %s) [%s]\n",
						i+1, event.Title, timetext.Display(event.StartTime), timetext.Display(event.EndTime), event.ID)
				}

				return strings.TrimRight(b.String(), "\n"), nil
			},
		},
		{
			Name:        "get_event",
			Description: "Get full details of one event, including attendees and reminders.",
			Parameters: objectSchema(map[string]any{
				"event_id": stringProp("The event id"),
			}, "event_id"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				eventID, err := requiredStringArg(args, "event_id")
				if err != nil {
					return "", err
				}

				event, err := calendarSvc.GetEvent(ctx, eventID)
				if err != nil {
					return "", fmt.Errorf("failed to get event: %w", err)
				}

				return renderEvent(event), nil
			},
		},
		{
			Name:        "update_event",
			Description: "Update fields of an existing event. Omitted fields stay unchanged.",
			Parameters: objectSchema(map[string]any{
				"event_id":    stringProp("The event id"),
				"title":       stringProp("New event title"),
				"start_time":  stringProp("New start time"),
				"end_time":    stringProp("New end time"),
				"description": stringProp("New event description"),
				"location":    stringProp("New event location"),
				"event_type":  stringProp("New event type"),
				"recurrence":  stringProp("New recurrence rule"),
			}, "event_id"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				eventID, err := requiredStringArg(args, "event_id")
				if err != nil {
					return "", err
				}

				start, err := timeArg(args, "start_time")
				if err != nil {
					return "", err
				}

				end, err := timeArg(args, "end_time")
				if err != nil {
					return "", err
				}

				event, err := calendarSvc.UpdateEvent(ctx, eventID, calendar.UpdateEventRequest{
					Title:       stringArg(args, "title"),
					Description: stringArg(args, "description"),
					StartTime:   start,
					EndTime:     end,
					Location:    stringArg(args, "location"),
					EventType:   stringArg(args, "event_type"),
					Recurrence:  stringArg(args, "recurrence"),
				})
				if err != nil {
					return "", fmt.Errorf("failed to update event: %w", err)
				}

				return "Updated event:\n" + renderEvent(event), nil
			},
		},
		{
			Name:        "delete_event",
			Description: "Delete an event.",
			Parameters: objectSchema(map[string]any{
				"event_id": stringProp("The event id"),
			}, "event_id"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				eventID, err := requiredStringArg(args, "event_id")
				if err != nil {
					return "", err
				}

				if err = calendarSvc.DeleteEvent(ctx, eventID); err != nil {
					return "", fmt.Errorf("failed to delete event: %w", err)
				}

				return fmt.Sprintf("Deleted event %s.", eventID), nil
			},
		},
		{
			Name:        "add_attendee",
			Description: "Add an attendee to an event.",
			Parameters: objectSchema(map[string]any{
				"event_id": stringProp("The event id"),
				"name":     stringProp("Attendee name"),
				"email":    stringProp("Attendee email"),
			}, "event_id", "name"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				eventID, err := requiredStringArg(args, "event_id")
				if err != nil {
					return "", err
				}

				name, err := requiredStringArg(args, "name")
				if err != nil {
					return "", err
				}

				event, err := calendarSvc.AddAttendee(ctx, eventID, name, stringArg(args, "email"))
				if err != nil {
					return "", fmt.Errorf("failed to add attendee: %w", err)
				}

				return fmt.Sprintf("Added attendee %s to %q:\n%s", name, event.Title, renderEvent(event)), nil
			},
		},
		{
			Name:        "remove_attendee",
			Description: "Remove an attendee from an event.",
			Parameters: objectSchema(map[string]any{
				"event_id":    stringProp("The event id"),
				"attendee_id": stringProp("The attendee id, as shown by get_event"),
			}, "event_id", "attendee_id"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				eventID, err := requiredStringArg(args, "event_id")
				if err != nil {
					return "", err
				}

				attendeeID, err := requiredStringArg(args, "attendee_id")
				if err != nil {
					return "", err
				}

				if err = calendarSvc.RemoveAttendee(ctx, eventID, attendeeID); err != nil {
					return "", fmt.Errorf("failed to remove attendee: %w", err)
				}

				return fmt.Sprintf("Removed attendee %s from event %s.", attendeeID, eventID), nil
			},
		},
		{
			Name:        "add_reminder",
			Description: "Add a reminder that fires a number of minutes before the event starts.",
			Parameters: objectSchema(map[string]any{
				"event_id":       stringProp("The event id"),
				"minutes_before": integerProp("Minutes before the event start"),
				"method":         stringProp("Delivery method, e.g. 'popup' or 'email'"),
			}, "event_id", "minutes_before"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				eventID, err := requiredStringArg(args, "event_id")
				if err != nil {
					return "", err
				}

				minutesBefore, err := requiredIntArg(args, "minutes_before")
				if err != nil {
					return "", err
				}

				event, err := calendarSvc.AddReminder(ctx, eventID, minutesBefore, stringArg(args, "method"))
				if err != nil {
					return "", fmt.Errorf("failed to add reminder: %w", err)
				}

				return fmt.Sprintf("Added reminder %d minutes before %q:\n%s",
					minutesBefore, event.Title, renderEvent(event)), nil
			},
		},
		{
			Name:        "remove_reminder",
			Description: "Remove a reminder from an event.",
			Parameters: objectSchema(map[string]any{
				"event_id":    stringProp("The event id"),
				"reminder_id": stringProp("The reminder id, as shown by get_event"),
			}, "event_id", "reminder_id"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				eventID, err := requiredStringArg(args, "event_id")
				if err != nil {
					return "", err
				}

				reminderID, err := requiredStringArg(args, "reminder_id")
				if err != nil {
					return "", err
				}

				if err = calendarSvc.RemoveReminder(ctx, eventID, reminderID); err != nil {
					return "", fmt.Errorf("failed to remove reminder: %w", err)
				}

				return fmt.Sprintf("Removed reminder %s from event %s.", reminderID, eventID), nil
			},
		},
		{
			Name:        conflict.ToolName,
			Description: "Check whether a time range overlaps existing events. Set exclude_event_id when re-checking an event that is being moved, so it does not conflict with itself.",
			Parameters: objectSchema(map[string]any{
				"start_time":       stringProp("Candidate start time"),
				"end_time":         stringProp("Candidate end time"),
				"exclude_event_id": stringProp("Event id to leave out of the check"),
			}, "start_time", "end_time"),
			Run: func(ctx context.Context, args map[string]any) (string, error) {
				req, err := conflict.RequestFromArgs(args)
				if err != nil {
					return "", err
				}

				result, err := conflictSvc.Check(ctx, req)
				if err != nil {
					return "", err
				}

				return result.Message, nil
			},
		},
	}
}

func renderEvent(event *calendar.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Event: %s\n", event.Title)
	fmt.Fprintf(&b, "ID: %s\n", event.ID)
	fmt.Fprintf(&b, "Start: %s\n", timetext.Display(event.StartTime))
	fmt.Fprintf(&b, "End: %s\n", timetext.Display(event.EndTime))

	if event.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", event.Description)
	}
	if event.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", event.Location)
	}
	if event.EventType != "" {
		fmt.Fprintf(&b, "Type: %s\n", event.EventType)
	}
	if event.Recurrence != "" {
		fmt.Fprintf(&b, "Recurrence: %s\n", event.Recurrence)
	}

	if len(event.Attendees) > 0 {
		fmt.Fprintf(&b, "Attendees (%d):\n", len(event.Attendees))
		for _, attendee := range event.Attendees {
			fmt.Fprintf(&b, "  - %s", attendee.Name)
			if attendee.Email != "" {
				fmt.Fprintf(&b, " <%s>", attendee.Email)
			}
			fmt.Fprintf(&b, " [%s]\n", attendee.ID)
		}
	}

	if len(event.Reminders) > 0 {
		fmt.Fprintf(&b, "Reminders (%d):\n", len(event.Reminders))
		for _, reminder := range event.Reminders {
			fmt.Fprintf(&b, "  - %d minutes before (%s) [%s]\n",
				reminder.MinutesBefore, reminder.Method, reminder.ID)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
