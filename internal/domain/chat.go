package domain

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid reports whether r can appear in a stored chat thread.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

const (
	// DefaultChatTitle is the title of a thread before its first question.
	DefaultChatTitle = "New Chat"
	// MaxTitleLength bounds a title derived from the first question, in characters.
	MaxTitleLength = 40
)

// Message is one turn in a chat thread.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is a conversation thread owned by a single user.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
	// Answer holds the most recent assistant reply.
	Answer string `json:"answer"`
}

// NewChat creates an empty thread.
func NewChat(id string, createdAt time.Time) *Chat {
	return &Chat{
		ID:        id,
		Title:     DefaultChatTitle,
		CreatedAt: createdAt,
		Messages:  []Message{},
		Answer:    "",
	}
}

// Clone returns a deep copy of the chat.
func (c *Chat) Clone() *Chat {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}

// Recent returns up to n of the latest messages, oldest first.
func (c *Chat) Recent(n int) []Message {
	if n <= 0 || len(c.Messages) == 0 {
		return []Message{}
	}
	start := len(c.Messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(c.Messages)-start)
	copy(out, c.Messages[start:])
	return out
}

// ApplyExchange appends a question and its reply, records the reply as the
// latest answer and names an untitled thread after the question.
func (c *Chat) ApplyExchange(question, reply Message) {
	c.Messages = append(c.Messages, question, reply)
	c.Answer = reply.Content
	if c.Title == DefaultChatTitle || c.Title == "" {
		c.Title = TitleFromQuestion(question.Content)
	}
}

// TitleFromQuestion truncates a question to MaxTitleLength characters.
func TitleFromQuestion(question string) string {
	runes := []rune(question)
	if len(runes) > MaxTitleLength {
		runes = runes[:MaxTitleLength]
	}
	title := string(runes)
	if title == "" {
		return DefaultChatTitle
	}
	return title
}

// PromptMessage is one entry of the message list sent to a language model.
type PromptMessage struct {
	Role    Role
	Content string
}
