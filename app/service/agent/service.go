package agent

import (
	"calbot/app/client/llm"
	"calbot/app/config"
	"calbot/app/model"
	"calbot/app/service/catalog"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "embed"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

const (
	maxReasonDuration = 30 * time.Second
	maxReplyTokens    = 2000
)

// Service is the decision step: it shows the reasoning service the transcript
// plus the tool catalog and returns the assistant message it produces. The
// message shape (tool calls present or not) is all downstream code inspects.
type Service struct {
	cfg        *config.Config
	llm        llms.Model
	catalogSvc *catalog.Service
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	client, err := llm.NewClient(cfg.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	return &Service{
		cfg:        cfg,
		llm:        client,
		catalogSvc: do.MustInvoke[*catalog.Service](di),
	}, nil
}

// Decide runs one reasoning call over the transcript. Provider failures and
// malformed responses are returned as-is; the caller fails the whole turn.
func (s *Service) Decide(ctx context.Context, transcript []model.Message) (model.Message, error) {
	messages := toLLMMessages(systemPrompt(), transcript)

	ctx, cancel := context.WithTimeout(ctx, maxReasonDuration)
	defer cancel()

	response, err := s.llm.GenerateContent(ctx, messages,
		llms.WithTools(s.catalogSvc.Definitions()),
		llms.WithTemperature(s.cfg.Agent.Temperature),
		llms.WithMaxTokens(maxReplyTokens),
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(response.Choices) == 0 {
		return model.Message{}, fmt.Errorf("no completion choices found")
	}

	return fromChoice(response.Choices[0])
}

func fromChoice(choice *llms.ContentChoice) (model.Message, error) {
	msg := model.Message{
		Role:    model.RoleAssistant,
		Content: strings.TrimSpace(choice.Content),
	}

	for i, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}

		args := make(map[string]any)
		if call.FunctionCall.Arguments != "" {
			if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
				return model.Message{}, fmt.Errorf("malformed arguments for tool %s: %w", call.FunctionCall.Name, err)
			}
		}

		// Some providers omit call ids; synthesize one so tool results
		// can still be matched to their call.
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}

		msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
			ID:        id,
			Name:      call.FunctionCall.Name,
			Arguments: args,
		})
	}

	return msg, nil
}

func systemPrompt() string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")

	return strings.ReplaceAll(systemPromptTemplate, "{now}", now)
}
