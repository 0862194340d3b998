package assistant

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of the conversation shown in the chat panel.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// History is the in-process conversation log. Safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	messages []ChatMessage
	limit    int
}

// NewHistory keeps at most limit messages, dropping the oldest. limit <= 0 means unbounded.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

func (h *History) Append(role, content string) ChatMessage {
	msg := ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	if h.limit > 0 && len(h.messages) > h.limit {
		h.messages = slices.Clone(h.messages[len(h.messages)-h.limit:])
	}
	return msg
}

// Messages returns a copy of the log, oldest first.
func (h *History) Messages() []ChatMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.messages)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
