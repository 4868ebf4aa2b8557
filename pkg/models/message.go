package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// QuickReply is a predefined answer button attached to an assistant message.
type QuickReply struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Message is one entry of a conversation log. Messages are never modified
// after they have been appended.
type Message struct {
	ID           string       `json:"id"`
	Role         Role         `json:"role"`
	Text         string       `json:"text"`
	ImageRef     string       `json:"imageRef,omitempty"`
	Products     []Product    `json:"products,omitempty"`
	Masters      []Master     `json:"masters,omitempty"`
	QuickReplies []QuickReply `json:"quickReplies,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}
