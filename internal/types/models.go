// internal/types/models.go
package types

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

const DefaultSessionTitle = "New Conversation"

type Session struct {
	ID           SessionID  `json:"id"`
	Key          SessionKey `json:"key"`
	Title        string     `json:"title"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MessageCount int        `json:"message_count"`
}

type ArtifactType string

const (
	ArtifactMarkdown ArtifactType = "markdown"
	ArtifactCode     ArtifactType = "code"
)

type Artifact struct {
	ID        ArtifactID   `json:"id"`
	SessionID SessionID    `json:"session_id,omitempty"`
	Title     string       `json:"title"`
	Type      ArtifactType `json:"type"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TitleFromMessage derives a session title from the first user message.
func TitleFromMessage(text string) string {
	const max = 25
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
