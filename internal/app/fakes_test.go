package app

import (
	"context"
	"sync"

	"docchat/internal/ai"
	"docchat/internal/model"
)

type streamerFunc func(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error)

func (f streamerFunc) StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	return f(ctx, cfg, messages, onChunk)
}

// chunks emits every fragment then returns err.
func chunks(err error, fragments ...string) streamerFunc {
	return func(ctx context.Context, _ ai.ChatConfig, _ []ai.ChatMessage, onChunk func(string) error) (string, error) {
		var full string
		for _, f := range fragments {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			full += f
			if err := onChunk(f); err != nil {
				return "", err
			}
		}
		if err != nil {
			return "", err
		}
		return full, nil
	}
}

// memoryMessages is a MessageStore that can fail chosen appends and report
// every successful append through onAppend.
type memoryMessages struct {
	mu       sync.Mutex
	rows     []model.Message
	nextID   uint
	fail     func(*model.Message) error
	onAppend func(model.Message)
}

func (m *memoryMessages) Append(_ context.Context, message *model.Message) error {
	if m.fail != nil {
		if err := m.fail(message); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.nextID++
	message.ID = m.nextID
	m.rows = append(m.rows, *message)
	hook := m.onAppend
	m.mu.Unlock()
	if hook != nil {
		hook(*message)
	}
	return nil
}

func (m *memoryMessages) ListByChatID(_ context.Context, chatID string) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Message, 0)
	for _, row := range m.rows {
		if row.ChatID == chatID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryMessages) all() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message(nil), m.rows...)
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]model.Message
	dirty       map[string]bool
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]model.Message{}, dirty: map[string]bool{}}
}

func (c *memoryCache) Lookup(_ context.Context, chatID string) ([]model.Message, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty[chatID] {
		return nil, false, nil
	}
	messages, ok := c.entries[chatID]
	return messages, ok, nil
}

func (c *memoryCache) Fill(_ context.Context, chatID string, messages []model.Message) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty[chatID] {
		return false, nil
	}
	c.entries[chatID] = messages
	return true, nil
}

func (c *memoryCache) Invalidate(_ context.Context, chatID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[chatID] = true
	delete(c.entries, chatID)
	c.invalidated = append(c.invalidated, chatID)
	return nil
}
