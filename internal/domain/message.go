// Package domain defines the core conversation types shared across the service.
package domain

import "time"

// Message roles. The provider layer and the persistence schema both
// restrict roles to this set.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversational turn entry. Messages are immutable
// once appended; ordering is the sole source of conversational truth.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CopyMessages returns an independent copy of a message slice. Branching
// relies on value copies so one branch can never mutate another.
func CopyMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// StoredMessage is a persisted message row as returned by the store.
type StoredMessage struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
