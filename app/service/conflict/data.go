package conflict

import (
	"calbot/app/service/calendar"
	"calbot/app/util/timetext"
	"fmt"
	"time"
)

// ToolName is the one reserved name in the tool catalog: the orchestration
// engine routes to the conflict detector after dispatching a call with it.
const ToolName = "check_event_conflicts"

type CheckRequest struct {
	Start          time.Time
	End            time.Time
	ExcludeEventID string
}

type CheckResult struct {
	Conflicts    []calendar.Event
	HasConflicts bool
	Message      string
}

// RequestFromArgs builds a check request from tool-call arguments.
func RequestFromArgs(args map[string]any) (*CheckRequest, error) {
	start, err := timeArg(args, "start_time")
	if err != nil {
		return nil, err
	}

	end, err := timeArg(args, "end_time")
	if err != nil {
		return nil, err
	}

	excludeID, _ := args["exclude_event_id"].(string)

	return &CheckRequest{
		Start:          start,
		End:            end,
		ExcludeEventID: excludeID,
	}, nil
}

func timeArg(args map[string]any, key string) (time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}

	t, err := timetext.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}

	return t, nil
}
