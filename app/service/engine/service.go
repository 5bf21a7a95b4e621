package engine

import (
	"calbot/app/config"
	"calbot/app/model"
	"calbot/app/service/agent"
	"calbot/app/service/catalog"
	"calbot/app/service/conflict"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do"
)

// Decider produces the next assistant message for a transcript. The engine
// only inspects the message's shape: tool calls present or not.
type Decider interface {
	Decide(ctx context.Context, transcript []model.Message) (model.Message, error)
}

// Dispatcher executes one named tool call.
type Dispatcher interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// ConflictChecker runs the conflict subroutine.
type ConflictChecker interface {
	Check(ctx context.Context, req *conflict.CheckRequest) (*conflict.CheckResult, error)
}

var (
	_ Decider         = (*agent.Service)(nil)
	_ Dispatcher      = (*catalog.Service)(nil)
	_ ConflictChecker = (*conflict.Service)(nil)
)

// Service drives one conversation turn through the orchestration graph. The
// agent node runs first; its tool calls (if any) are dispatched by the tools
// node; a dispatched conflict check routes through the conflict detector;
// control then returns to the agent node. The loop ends only when the agent
// produces a message without tool calls.
type Service struct {
	cfg        *config.Config
	decider    Decider
	dispatcher Dispatcher
	checker    ConflictChecker
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:        do.MustInvoke[*config.Config](di),
		decider:    do.MustInvoke[*agent.Service](di),
		dispatcher: do.MustInvoke[*catalog.Service](di),
		checker:    do.MustInvoke[*conflict.Service](di),
	}, nil
}

// Run executes one orchestration turn over the supplied transcript and
// returns the grown transcript, ending in the assistant's final reply. The
// caller's slice is never touched. On error the turn produced nothing; the
// caller may retry it wholesale.
func (s *Service) Run(ctx context.Context, transcript []model.Message) ([]model.Message, error) {
	state := &State{
		Messages: model.CloneTranscript(transcript),
	}

	current := nodeAgent
	decisions := 0

	for current != nodeEnd {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if current == nodeAgent {
			decisions++
			if decisions > s.cfg.Agent.MaxSteps {
				return nil, fmt.Errorf("turn exceeded %d reasoning steps without a final reply", s.cfg.Agent.MaxSteps)
			}
		}

		next, err := s.step(ctx, current, state)
		if err != nil {
			return nil, err
		}

		slog.Debug("Engine transition",
			"from", current,
			"to", next,
			"messages", len(state.Messages),
		)

		current = next
	}

	return state.Messages, nil
}

func (s *Service) step(ctx context.Context, current node, state *State) (node, error) {
	switch current {
	case nodeAgent:
		return s.runAgent(ctx, state)
	case nodeTools:
		return s.runTools(ctx, state)
	case nodeConflictDetector:
		return s.runConflictDetector(ctx, state)
	default:
		return nodeEnd, fmt.Errorf("unknown node %q", current)
	}
}

func (s *Service) runAgent(ctx context.Context, state *State) (node, error) {
	msg, err := s.decider.Decide(ctx, state.Messages)
	if err != nil {
		return nodeEnd, fmt.Errorf("decision step: %w", err)
	}

	state.Messages = append(state.Messages, msg)

	if len(msg.ToolCalls) == 0 {
		return nodeEnd, nil
	}

	return nodeTools, nil
}

// runTools dispatches every call the assistant requested, in request order. A
// failing tool becomes ordinary error text in the transcript rather than
// aborting the turn. When the batch contains the conflict-check tool, the
// pending request is (re)populated from its arguments and the detector runs
// next; with several conflict calls in one batch the last one wins.
func (s *Service) runTools(ctx context.Context, state *State) (node, error) {
	calls := state.Messages[len(state.Messages)-1].ToolCalls

	next := nodeAgent

	for _, call := range calls {
		content, err := s.dispatcher.Execute(ctx, call.Name, call.Arguments)
		if err != nil {
			content = "Error: " + err.Error()
		}

		state.Messages = append(state.Messages, model.Message{
			Role:       model.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})

		if call.Name != conflict.ToolName {
			continue
		}

		req, err := conflict.RequestFromArgs(call.Arguments)
		if err != nil {
			// The tool's own error text is already in the transcript;
			// there is nothing for the detector to run on.
			slog.Warn("Skipping conflict detector, arguments did not parse", "error", err)
			continue
		}

		state.PendingCheck = req
		next = nodeConflictDetector
	}

	return next, nil
}

func (s *Service) runConflictDetector(ctx context.Context, state *State) (node, error) {
	result, err := s.checker.Check(ctx, state.PendingCheck)
	if err != nil {
		return nodeEnd, fmt.Errorf("conflict detector: %w", err)
	}

	state.LastCheck = result
	state.PendingCheck = nil

	return nodeAgent, nil
}
