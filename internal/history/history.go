/*
Package history keeps the most recent converted prompts.

Entries live under a single key of the key-value storage, newest first.
Search builds a throwaway in-memory bleve index over the stored entries.
*/
package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/storage"
)

// KeyPromptHistory is the storage key holding the entry list.
const KeyPromptHistory = "promptHistory"

// MaxEntries caps the stored history.
const MaxEntries = 50

// Entry is one converted prompt.
type Entry struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	JSON      string    `json:"json"`
	Schema    string    `json:"schema"`
	Timestamp time.Time `json:"timestamp"`
}

// History reads and writes the entry list.
type History struct {
	mu      sync.Mutex
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a history over s.
func New(s storage.Storage, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{storage: s, logger: logger, now: time.Now}
}

// Add prepends e, filling ID and Timestamp when unset, and drops entries
// beyond MaxEntries.
func (h *History) Add(ctx context.Context, e Entry) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}

	entries, err := h.load(ctx)
	if err != nil {
		return e, err
	}

	entries = append([]Entry{e}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	return e, h.save(ctx, entries)
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (h *History) List(ctx context.Context, limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Clear removes every entry.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.save(ctx, []Entry{})
}

// Search returns the entries matching query, best match first.
func (h *History) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	entries, err := h.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	idx, err := NewIndex()
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if err := idx.Index(entries); err != nil {
		return nil, err
	}
	return idx.Search(query, limit)
}

func (h *History) load(ctx context.Context) ([]Entry, error) {
	values, err := h.storage.Get(ctx, []string{KeyPromptHistory})
	if err != nil {
		return nil, err
	}

	raw, ok := values[KeyPromptHistory]
	if !ok {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		h.logger.Warn("discarding unreadable prompt history", zap.Error(err))
		return []Entry{}, nil
	}
	return entries, nil
}

func (h *History) save(ctx context.Context, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return h.storage.Set(ctx, map[string]json.RawMessage{KeyPromptHistory: data})
}
