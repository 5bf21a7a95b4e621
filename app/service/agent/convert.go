package agent

import (
	"calbot/app/model"
	"encoding/json"

	"github.com/tmc/langchaingo/llms"
)

// toLLMMessages renders the transcript for the chat completion API: the
// system prompt first, then each message mapped onto the provider's role and
// part types.
func toLLMMessages(systemPrompt string, transcript []model.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(transcript)+1)
	out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))

	for _, msg := range transcript {
		switch msg.Role {
		case model.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))

		case model.RoleAssistant:
			content := llms.MessageContent{Role: llms.ChatMessageTypeAI}

			if msg.Content != "" {
				content.Parts = append(content.Parts, llms.TextContent{Text: msg.Content})
			}

			for _, call := range msg.ToolCalls {
				args, _ := json.Marshal(call.Arguments)

				content.Parts = append(content.Parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}

			out = append(out, content)

		case model.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: msg.ToolCallID,
						Name:       msg.ToolName,
						Content:    msg.Content,
					},
				},
			})
		}
	}

	return out
}
