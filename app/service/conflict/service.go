package conflict

import (
	"calbot/app/service/calendar"
	"calbot/app/util/timetext"
	"context"
	"fmt"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const noConflictsMessage = "No conflicts found."

type Service struct {
	store *calendar.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		store: do.MustInvoke[*calendar.Service](di),
	}, nil
}

// Check finds stored events overlapping the candidate range and renders the
// result. A storage failure propagates as-is, without a partial result.
func (s *Service) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	conflicts, err := s.store.FindOverlapping(ctx, req.Start, req.End, req.ExcludeEventID)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}

	return &CheckResult{
		Conflicts:    conflicts,
		HasConflicts: len(conflicts) > 0,
		Message:      renderMessage(conflicts),
	}, nil
}

func renderMessage(conflicts []calendar.Event) string {
	if len(conflicts) == 0 {
		return noConflictsMessage
	}

	lines := pie.Map(conflicts, func(e calendar.Event) string {
		line := fmt.Sprintf("%q (%s – %s)", e.Title, timetext.Display(e.StartTime), timetext.Display(e.EndTime))
		if e.Location != "" {
			line += " at " + e.Location
		}

		return line
	})

	return fmt.Sprintf("Found %d conflicting event(s):\n%s", len(lines), strings.Join(lines, "\n"))
}
