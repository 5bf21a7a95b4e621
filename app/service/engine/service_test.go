package engine

import (
	"calbot/app/config"
	"calbot/app/model"
	"calbot/app/service/calendar"
	"calbot/app/service/catalog"
	"calbot/app/service/conflict"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDecider plays back a fixed sequence of assistant messages.
type scriptedDecider struct {
	script []model.Message
	calls  int
	err    error
}

func (d *scriptedDecider) Decide(_ context.Context, _ []model.Message) (model.Message, error) {
	if d.err != nil {
		return model.Message{}, d.err
	}

	if d.calls >= len(d.script) {
		return model.Message{}, errors.New("decider script exhausted")
	}

	msg := d.script[d.calls]
	d.calls++

	return msg, nil
}

// loopingDecider requests a tool call on every invocation and never replies.
type loopingDecider struct {
	calls int
}

func (d *loopingDecider) Decide(_ context.Context, _ []model.Message) (model.Message, error) {
	d.calls++

	return callMsg(model.ToolCall{
		ID:        fmt.Sprintf("call_%d", d.calls),
		Name:      "list_events",
		Arguments: map[string]any{},
	}), nil
}

type recordingDispatcher struct {
	results map[string]string
	errs    map[string]error
	log     []string
}

func (d *recordingDispatcher) Execute(_ context.Context, name string, _ map[string]any) (string, error) {
	d.log = append(d.log, name)

	if err := d.errs[name]; err != nil {
		return "", err
	}

	if result, ok := d.results[name]; ok {
		return result, nil
	}

	return "ok", nil
}

type recordingChecker struct {
	result   *conflict.CheckResult
	err      error
	requests []*conflict.CheckRequest
}

func (c *recordingChecker) Check(_ context.Context, req *conflict.CheckRequest) (*conflict.CheckResult, error) {
	c.requests = append(c.requests, req)

	if c.err != nil {
		return nil, c.err
	}

	return c.result, nil
}

func newTestEngine(decider Decider, dispatcher Dispatcher, checker ConflictChecker) *Service {
	return &Service{
		cfg: &config.Config{
			Agent: config.Agent{MaxSteps: 8},
		},
		decider:    decider,
		dispatcher: dispatcher,
		checker:    checker,
	}
}

func userMsg(text string) model.Message {
	return model.Message{Role: model.RoleUser, Content: text}
}

func reply(text string) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: text}
}

func callMsg(calls ...model.ToolCall) model.Message {
	return model.Message{Role: model.RoleAssistant, ToolCalls: calls}
}

func conflictCall(id, start, end, excludeID string) model.ToolCall {
	args := map[string]any{
		"start_time": start,
		"end_time":   end,
	}
	if excludeID != "" {
		args["exclude_event_id"] = excludeID
	}

	return model.ToolCall{ID: id, Name: conflict.ToolName, Arguments: args}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func TestRunTerminatesOnPlainReply(t *testing.T) {
	decider := &scriptedDecider{script: []model.Message{reply("You are free all day.")}}
	dispatcher := &recordingDispatcher{}
	svc := newTestEngine(decider, dispatcher, &recordingChecker{})

	result, err := svc.Run(context.Background(), []model.Message{userMsg("Am I free tomorrow?")})
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, model.RoleUser, result[0].Role)
	assert.Equal(t, model.RoleAssistant, result[1].Role)
	assert.Equal(t, "You are free all day.", result[1].Content)
	assert.Empty(t, dispatcher.log)
}

func TestRunDispatchesToolCallsInOrder(t *testing.T) {
	decider := &scriptedDecider{script: []model.Message{
		callMsg(
			model.ToolCall{ID: "call_0", Name: "list_events", Arguments: map[string]any{}},
			model.ToolCall{ID: "call_1", Name: "get_event", Arguments: map[string]any{"event_id": "x"}},
		),
		reply("Here are your events."),
	}}
	dispatcher := &recordingDispatcher{results: map[string]string{
		"list_events": "Found 2 event(s)",
		"get_event":   "Event: X",
	}}
	svc := newTestEngine(decider, dispatcher, &recordingChecker{})

	result, err := svc.Run(context.Background(), []model.Message{userMsg("what's on?")})
	require.NoError(t, err)

	assert.Equal(t, []string{"list_events", "get_event"}, dispatcher.log)

	// user, assistant with calls, two tool results, final reply.
	require.Len(t, result, 5)
	assert.Equal(t, model.RoleTool, result[2].Role)
	assert.Equal(t, "call_0", result[2].ToolCallID)
	assert.Equal(t, "Found 2 event(s)", result[2].Content)
	assert.Equal(t, model.RoleTool, result[3].Role)
	assert.Equal(t, "call_1", result[3].ToolCallID)
	assert.Equal(t, "Here are your events.", result[4].Content)
}

func TestRunSoftensToolFailures(t *testing.T) {
	decider := &scriptedDecider{script: []model.Message{
		callMsg(model.ToolCall{ID: "call_0", Name: "delete_event", Arguments: map[string]any{"event_id": "nope"}}),
		reply("That event does not exist."),
	}}
	dispatcher := &recordingDispatcher{errs: map[string]error{
		"delete_event": errors.New("failed to delete event: event not found"),
	}}
	svc := newTestEngine(decider, dispatcher, &recordingChecker{})

	result, err := svc.Run(context.Background(), []model.Message{userMsg("delete it")})
	require.NoError(t, err)

	require.Len(t, result, 4)
	assert.Equal(t, model.RoleTool, result[2].Role)
	assert.Equal(t, "Error: failed to delete event: event not found", result[2].Content)
	assert.Equal(t, "That event does not exist.", result[3].Content)
}

func TestRouteAfterToolsWithConflictCall(t *testing.T) {
	checker := &recordingChecker{}
	svc := newTestEngine(nil, &recordingDispatcher{}, checker)

	state := &State{Messages: []model.Message{
		userMsg("book 10 to 11"),
		callMsg(conflictCall("call_0", "2024-01-01T10:00", "2024-01-01T11:00", "ev-1")),
	}}

	next, err := svc.runTools(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, nodeConflictDetector, next)
	require.NotNil(t, state.PendingCheck)
	assert.True(t, state.PendingCheck.Start.Equal(at(10, 0)))
	assert.True(t, state.PendingCheck.End.Equal(at(11, 0)))
	assert.Equal(t, "ev-1", state.PendingCheck.ExcludeEventID)
	assert.Empty(t, checker.requests, "the detector must not run inside the tools node")
}

func TestRouteAfterToolsWithoutConflictCall(t *testing.T) {
	svc := newTestEngine(nil, &recordingDispatcher{}, &recordingChecker{})

	state := &State{Messages: []model.Message{
		userMsg("list"),
		callMsg(model.ToolCall{ID: "call_0", Name: "list_events", Arguments: map[string]any{}}),
	}}

	next, err := svc.runTools(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, nodeAgent, next)
	assert.Nil(t, state.PendingCheck)
}

func TestRouteAfterToolsBadConflictArgs(t *testing.T) {
	dispatcher := &recordingDispatcher{errs: map[string]error{
		conflict.ToolName: errors.New("end_time is required"),
	}}
	svc := newTestEngine(nil, dispatcher, &recordingChecker{})

	state := &State{Messages: []model.Message{
		userMsg("check"),
		callMsg(model.ToolCall{
			ID:        "call_0",
			Name:      conflict.ToolName,
			Arguments: map[string]any{"start_time": "2024-01-01T10:00"},
		}),
	}}

	next, err := svc.runTools(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, nodeAgent, next)
	assert.Nil(t, state.PendingCheck)
	assert.Equal(t, "Error: end_time is required", state.Messages[len(state.Messages)-1].Content)
}

func TestLastConflictCallWins(t *testing.T) {
	svc := newTestEngine(nil, &recordingDispatcher{}, &recordingChecker{})

	state := &State{Messages: []model.Message{
		userMsg("check both"),
		callMsg(
			conflictCall("call_0", "2024-01-01T10:00", "2024-01-01T11:00", ""),
			conflictCall("call_1", "2024-01-01T14:00", "2024-01-01T15:00", ""),
		),
	}}

	next, err := svc.runTools(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, nodeConflictDetector, next)
	require.NotNil(t, state.PendingCheck)
	assert.True(t, state.PendingCheck.Start.Equal(at(14, 0)))
	assert.True(t, state.PendingCheck.End.Equal(at(15, 0)))
}

func TestConflictDetectorStoresResultAndClearsPending(t *testing.T) {
	checker := &recordingChecker{result: &conflict.CheckResult{Message: "No conflicts found."}}
	svc := newTestEngine(nil, nil, checker)

	req := &conflict.CheckRequest{Start: at(10, 0), End: at(11, 0)}
	state := &State{PendingCheck: req}

	next, err := svc.runConflictDetector(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, nodeAgent, next)
	assert.Nil(t, state.PendingCheck)
	require.NotNil(t, state.LastCheck)
	assert.Equal(t, "No conflicts found.", state.LastCheck.Message)

	require.Len(t, checker.requests, 1)
	assert.Same(t, req, checker.requests[0])
}

// Both conflict paths run the same algorithm: the tool result appended by the
// tools node and the detector's stored result carry identical text.
func TestConflictPathsProduceIdenticalText(t *testing.T) {
	cfg := &config.Config{
		Storage: config.Storage{Path: filepath.Join(t.TempDir(), "events.jsonl")},
		Agent:   config.Agent{MaxSteps: 8},
	}

	di := do.New()
	do.ProvideValue(di, cfg)
	do.Provide(di, calendar.New)
	do.Provide(di, conflict.New)
	do.Provide(di, catalog.New)

	store := do.MustInvoke[*calendar.Service](di)
	ctx := context.Background()

	_, err := store.CreateEvent(ctx, calendar.CreateEventRequest{
		Title:     "Standup",
		StartTime: at(10, 0),
		EndTime:   at(11, 0),
	})
	require.NoError(t, err)

	svc := &Service{
		cfg:        cfg,
		dispatcher: do.MustInvoke[*catalog.Service](di),
		checker:    do.MustInvoke[*conflict.Service](di),
	}

	state := &State{Messages: []model.Message{
		userMsg("is 10:30-11:30 free?"),
		callMsg(conflictCall("call_0", "2024-01-01T10:30", "2024-01-01T11:30", "")),
	}}

	next, err := svc.runTools(ctx, state)
	require.NoError(t, err)
	require.Equal(t, nodeConflictDetector, next)

	toolText := state.Messages[len(state.Messages)-1].Content
	assert.Contains(t, toolText, "Found 1 conflicting event(s):")
	assert.Contains(t, toolText, "\"Standup\"")

	next, err = svc.runConflictDetector(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, nodeAgent, next)

	require.NotNil(t, state.LastCheck)
	assert.Equal(t, toolText, state.LastCheck.Message)
	assert.True(t, state.LastCheck.HasConflicts)
	assert.Nil(t, state.PendingCheck)
}

func TestRunFullConflictFlow(t *testing.T) {
	cfg := &config.Config{
		Storage: config.Storage{Path: filepath.Join(t.TempDir(), "events.jsonl")},
		Agent:   config.Agent{MaxSteps: 8},
	}

	di := do.New()
	do.ProvideValue(di, cfg)
	do.Provide(di, calendar.New)
	do.Provide(di, conflict.New)
	do.Provide(di, catalog.New)

	store := do.MustInvoke[*calendar.Service](di)
	ctx := context.Background()

	_, err := store.CreateEvent(ctx, calendar.CreateEventRequest{
		Title:     "Dentist",
		StartTime: at(10, 0),
		EndTime:   at(11, 0),
	})
	require.NoError(t, err)

	decider := &scriptedDecider{script: []model.Message{
		callMsg(conflictCall("call_0", "2024-01-01T10:30", "2024-01-01T11:30", "")),
		reply("That slot overlaps your dentist appointment."),
	}}

	svc := &Service{
		cfg:        cfg,
		decider:    decider,
		dispatcher: do.MustInvoke[*catalog.Service](di),
		checker:    do.MustInvoke[*conflict.Service](di),
	}

	result, err := svc.Run(ctx, []model.Message{userMsg("book 10:30 to 11:30")})
	require.NoError(t, err)

	// user, conflict call, tool result, final reply.
	require.Len(t, result, 4)
	assert.Contains(t, result[2].Content, "\"Dentist\"")
	assert.Equal(t, "That slot overlaps your dentist appointment.", result[3].Content)
	assert.Equal(t, 2, decider.calls)
}

func TestRunMaxStepsGuard(t *testing.T) {
	decider := &loopingDecider{}
	svc := newTestEngine(decider, &recordingDispatcher{}, &recordingChecker{})
	svc.cfg.Agent.MaxSteps = 3

	_, err := svc.Run(context.Background(), []model.Message{userMsg("loop forever")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reasoning steps")
	assert.Equal(t, 3, decider.calls)
}

func TestRunPropagatesDeciderError(t *testing.T) {
	deciderErr := errors.New("provider unavailable")
	svc := newTestEngine(&scriptedDecider{err: deciderErr}, &recordingDispatcher{}, &recordingChecker{})

	result, err := svc.Run(context.Background(), []model.Message{userMsg("hi")})
	require.ErrorIs(t, err, deciderErr)
	assert.Nil(t, result)
}

func TestRunPropagatesCheckerError(t *testing.T) {
	checkerErr := errors.New("storage corrupted")
	decider := &scriptedDecider{script: []model.Message{
		callMsg(conflictCall("call_0", "2024-01-01T10:00", "2024-01-01T11:00", "")),
		reply("unreachable"),
	}}
	svc := newTestEngine(decider, &recordingDispatcher{}, &recordingChecker{err: checkerErr})

	result, err := svc.Run(context.Background(), []model.Message{userMsg("check")})
	require.ErrorIs(t, err, checkerErr)
	assert.Nil(t, result)
}

func TestRunDoesNotMutateCallerTranscript(t *testing.T) {
	decider := &scriptedDecider{script: []model.Message{reply("done")}}
	svc := newTestEngine(decider, &recordingDispatcher{}, &recordingChecker{})

	original := []model.Message{userMsg("hello")}

	result, err := svc.Run(context.Background(), original)
	require.NoError(t, err)

	require.Len(t, original, 1)
	require.Len(t, result, 2)

	result[0].Content = "mutated"
	assert.Equal(t, "hello", original[0].Content)
}

func TestRunCanceledContext(t *testing.T) {
	svc := newTestEngine(&loopingDecider{}, &recordingDispatcher{}, &recordingChecker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, []model.Message{userMsg("hi")})
	require.ErrorIs(t, err, context.Canceled)
}
