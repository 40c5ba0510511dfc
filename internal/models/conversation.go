package models

import "time"

// DefaultTitle is assigned to conversations created implicitly on first message.
const DefaultTitle = "New Conversation"

// Conversation is a titled, summarized thread of messages owned by one user.
// Summary is a best-effort, AI-generated display label regenerated on every
// new message; UpdatedAt is bumped whenever the summary changes.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
