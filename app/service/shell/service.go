package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"calbot/app/service/calendar"
	"calbot/app/service/conversation"
	"calbot/app/util/timetext"

	"github.com/samber/do"
)

// conversationID keys the single transcript owned by the interactive shell.
const conversationID = "shell"

type conversationRunner interface {
	ProcessMessage(ctx context.Context, conversationID, text string) (string, error)
	Reset(conversationID string)
}

type eventLister interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

var (
	_ conversationRunner = (*conversation.Service)(nil)
	_ eventLister        = (*calendar.Service)(nil)
)

type Service struct {
	convSvc  conversationRunner
	eventSvc eventLister
	in       io.Reader
	out      io.Writer
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		convSvc:  do.MustInvoke[*conversation.Service](di),
		eventSvc: do.MustInvoke[*calendar.Service](di),
		in:       os.Stdin,
		out:      os.Stdout,
	}, nil
}

// Run reads lines until EOF, /quit or context cancellation. Each plain line
// runs one conversation turn; a failed turn is printed and the loop continues.
func (s *Service) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Calendar assistant. Type a message, /events, /reset or /quit.")

	scanner := bufio.NewScanner(s.in)

	for {
		fmt.Fprint(s.out, "> ")

		if !scanner.Scan() {
			return scanner.Err()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			return nil
		case "/reset":
			s.convSvc.Reset(conversationID)
			fmt.Fprintln(s.out, "Conversation reset.")

			continue
		case "/events":
			s.printEvents(ctx)

			continue
		}

		reply, err := s.convSvc.ProcessMessage(ctx, conversationID, line)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)

			continue
		}

		fmt.Fprintln(s.out, reply)
	}
}

func (s *Service) printEvents(ctx context.Context) {
	events, err := s.eventSvc.ListEvents(ctx, time.Time{}, time.Time{})
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)

		return
	}

	if len(events) == 0 {
		fmt.Fprintln(s.out, "No events.")

		return
	}

	for _, event := range events {
		fmt.Fprintf(s.out, "%s – %s  %s [%s]\n",
			timetext.Display(event.StartTime),
			timetext.Display(event.EndTime),
			event.Title,
			event.ID,
		)
	}
}
