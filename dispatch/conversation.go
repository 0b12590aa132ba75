package dispatch

import (
	"context"
	"sync"
)

// Conversation receives the content of successful calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ordering: calls arrive in completion order, not issuance order.
type Conversation interface {
	UpdateContent(ctx context.Context, messageID, callID, content string) error
}

// ConversationFunc adapts a function to Conversation.
type ConversationFunc func(ctx context.Context, messageID, callID, content string) error

// UpdateContent implements Conversation.
func (f ConversationFunc) UpdateContent(ctx context.Context, messageID, callID, content string) error {
	return f(ctx, messageID, callID, content)
}

type nopConversation struct{}

func (nopConversation) UpdateContent(context.Context, string, string, string) error { return nil }

// Applied is one content update received by a MemoryConversation.
type Applied struct {
	MessageID string
	CallID    string
	Content   string
}

// MemoryConversation records content updates in arrival order.
type MemoryConversation struct {
	mu      sync.Mutex
	applied []Applied
}

// NewMemoryConversation creates an empty MemoryConversation.
func NewMemoryConversation() *MemoryConversation {
	return &MemoryConversation{}
}

// UpdateContent implements Conversation.
func (c *MemoryConversation) UpdateContent(_ context.Context, messageID, callID, content string) error {
	c.mu.Lock()
	c.applied = append(c.applied, Applied{MessageID: messageID, CallID: callID, Content: content})
	c.mu.Unlock()
	return nil
}

// Applied returns a copy of the updates received so far.
func (c *MemoryConversation) Applied() []Applied {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Applied(nil), c.applied...)
}

// Content returns the latest content applied for callID.
func (c *MemoryConversation) Content(callID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.applied) - 1; i >= 0; i-- {
		if c.applied[i].CallID == callID {
			return c.applied[i].Content, true
		}
	}
	return "", false
}
