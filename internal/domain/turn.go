// Package domain contains core domain types for the INK chat server.
package domain

import (
	"time"
)

// Role identifies who authored a turn.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the model.
	RoleAssistant Role = "assistant"
)

// Turn is one message exchanged between the user and the assistant.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ThoughtEntry is an internal note describing an intermediate processing step.
type ThoughtEntry struct {
	Thought   string    `json:"thought"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the persisted form of the session log.
type Snapshot struct {
	CurrentSession []Turn         `json:"current_session"`
	ThinkingLog    []ThoughtEntry `json:"thinking_log"`
	LastUpdated    time.Time      `json:"last_updated"`
}
