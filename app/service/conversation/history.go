package conversation

import "calbot/app/model"

// trimTranscript keeps at most limit trailing messages. Tool results left
// dangling at the cut are dropped too: a transcript must never open with a
// tool message whose originating call was trimmed away.
func trimTranscript(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}

	trimmed := messages[len(messages)-limit:]

	for len(trimmed) > 0 && trimmed[0].Role == model.RoleTool {
		trimmed = trimmed[1:]
	}

	return trimmed
}
