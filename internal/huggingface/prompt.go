package huggingface

import (
	"strings"

	"github.com/cloo-solutions/mentor/internal/domain"
)

const contextPrefix = "Context:\n"

// FlattenPrompt renders a message list as the single text prompt a
// text-generation model expects. The first system message is the
// instruction; a later system message starting with "Context:" becomes the
// context section; the final message is the question.
func FlattenPrompt(messages []domain.PromptMessage) string {
	var (
		instruction string
		context     string
		history     []domain.PromptMessage
		question    string
	)

	for i, m := range messages {
		switch {
		case i == len(messages)-1 && m.Role == domain.RoleUser:
			question = m.Content
		case m.Role == domain.RoleSystem && instruction == "" && !strings.HasPrefix(m.Content, contextPrefix):
			instruction = m.Content
		case m.Role == domain.RoleSystem:
			context = strings.TrimPrefix(m.Content, contextPrefix)
		default:
			history = append(history, m)
		}
	}

	var b strings.Builder
	if instruction != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}

	b.WriteString("## Context:\n")
	if context == "" {
		context = "(No context available)"
	}
	b.WriteString(context)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("## Conversation so far:\n")
		for _, m := range history {
			if m.Role == domain.RoleAssistant {
				b.WriteString("Mentor: ")
			} else {
				b.WriteString("Student: ")
			}
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Student question:\n")
	b.WriteString(question)
	b.WriteString("\n\n## Answer in a friendly, simple way:")
	return b.String()
}
