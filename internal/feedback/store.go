package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/storage"
	"github.com/khanglvm/promptstruct/internal/tags"
)

// Storage keys.
const (
	KeyFeedbackData    = "feedbackData"
	KeyUserPreferences = "userPreferences"
)

// Defaults for unset output fields.
const (
	UnknownSchema   = "unknown"
	UnknownProvider = "unknown"
	UnknownModel    = "unknown"
)

// ErrInvalidInput reports missing required feedback data.
var ErrInvalidInput = errors.New("invalid input")

// Updater folds one new record into the preferences aggregate.
type Updater interface {
	UpdatePreferences(prefs *UserPreferences, record Record)
}

// Store is the feedback log plus the derived preferences. Lifecycle is
// Load, then any number of mutations, then Save at teardown.
//
// Store serializes its own methods. It does not coordinate with other
// processes sharing the same storage: two writers can overwrite each other.
type Store struct {
	mu      sync.Mutex
	storage storage.Storage
	updater Updater
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	records []Record
	prefs   UserPreferences
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates a store with default preferences. A nil updater disables
// preference learning.
func NewStore(s storage.Storage, updater Updater, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	st := &Store{
		storage: s,
		updater: updater,
		logger:  logger,
		now:     time.Now,
		newID:   newRecordID,
		records: []Record{},
		prefs:   DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// newRecordID returns a time-ordered UUIDv7.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load reads both keys from storage. Loaded preference fields replace the
// defaults one by one; any failure is logged and leaves defaults in place.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.storage.Get(ctx, []string{KeyFeedbackData, KeyUserPreferences})
	if err != nil {
		s.logger.Warn("failed to load feedback data", zap.Error(err))
		return
	}

	if raw, ok := values[KeyFeedbackData]; ok {
		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			s.logger.Warn("discarding unreadable feedback data", zap.Error(err))
		} else {
			s.records = normalizeRecords(records)
		}
	}

	if raw, ok := values[KeyUserPreferences]; ok {
		prefs, err := mergePreferences(DefaultPreferences(), raw)
		if err != nil {
			s.logger.Warn("discarding unreadable user preferences", zap.Error(err))
		} else {
			s.prefs = prefs
		}
	}

	s.logger.Debug("feedback data loaded", zap.Int("records", len(s.records)))
}

// mergePreferences overlays the top-level fields present in raw onto base.
func mergePreferences(base UserPreferences, raw json.RawMessage) (UserPreferences, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, err
	}

	targets := map[string]any{
		"preferredStructures": &base.PreferredStructures,
		"namingConventions":   &base.NamingConventions,
		"complexityLevel":     &base.ComplexityLevel,
		"detailLevel":         &base.DetailLevel,
		"weights":             &base.Weights,
	}
	for name, target := range targets {
		v, ok := fields[name]
		if !ok {
			continue
		}
		// Replace rather than merge into the default map values.
		switch t := target.(type) {
		case *map[string]any:
			*t = nil
		case *map[Aspect]float64:
			*t = nil
		}
		if err := json.Unmarshal(v, target); err != nil {
			return base, err
		}
	}

	if base.NamingConventions == nil {
		base.NamingConventions = map[string]any{}
	}
	if base.Weights == nil {
		base.Weights = DefaultPreferences().Weights
	}
	if base.PreferredStructures.Accumulators == nil || base.PreferredStructures.Exemplars == nil {
		base.PreferredStructures = NewPreferredStructures()
	}
	return base, nil
}

// Save writes both keys. The error is returned for callers that flush at
// teardown; mutating methods log it instead.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	records, err := json.Marshal(s.records)
	if err != nil {
		s.logger.Warn("failed to encode feedback data", zap.Error(err))
		return err
	}
	prefs, err := json.Marshal(s.prefs)
	if err != nil {
		s.logger.Warn("failed to encode user preferences", zap.Error(err))
		return err
	}

	err = s.storage.Set(ctx, map[string]json.RawMessage{
		KeyFeedbackData:    records,
		KeyUserPreferences: prefs,
	})
	if err != nil {
		s.logger.Warn("failed to save feedback data", zap.Error(err))
	}
	return err
}

// Collect builds a record from out and j, appends it, persists, and updates
// preferences. Only missing arguments fail the call; storage errors are
// logged and the constructed record is still returned.
func (s *Store) Collect(ctx context.Context, out *Output, j *Judgment) (Record, error) {
	if out == nil || j == nil {
		return Record{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := Record{
		ID:            s.newID(),
		Timestamp:     s.now().UnixMilli(),
		Prompt:        out.Prompt,
		Schema:        orDefault(out.Schema, UnknownSchema),
		GeneratedJSON: out.JSON,
		Provider:      orDefault(out.Provider, UnknownProvider),
		Model:         orDefault(out.Model, UnknownModel),
		Rating:        clampRating(j.Rating),
		ThumbsUp:      j.ThumbsUp,
		Aspects: AspectScores{
			Accuracy:     j.Accuracy,
			Completeness: j.Completeness,
			Structure:    j.Structure,
			Relevance:    j.Relevance,
		}.normalized(),
		TextFeedback: j.TextFeedback,
		IsPreferred:  j.IsPreferred,
		Tags:         tags.Extract(out.Prompt, out.JSON, j.TextFeedback),
	}

	s.records = append(s.records, record)
	_ = s.save(ctx)

	if s.updater != nil {
		s.updater.UpdatePreferences(&s.prefs, record)
		_ = s.save(ctx)
	}

	s.logger.Debug("feedback collected",
		zap.String("id", record.ID),
		zap.String("schema", record.Schema),
		zap.Int("rating", record.Rating),
		zap.Strings("tags", record.Tags),
	)

	return record, nil
}

// Records returns a copy of the feedback log in insertion order.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Preferences returns a deep copy of the preferences aggregate.
func (s *Store) Preferences() UserPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone()
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ExportData is the full dump, also accepted by Import.
type ExportData struct {
	FeedbackData    []Record         `json:"feedbackData"`
	UserPreferences *UserPreferences `json:"userPreferences"`
	Stats           *Stats           `json:"stats,omitempty"`
	ExportDate      string           `json:"exportDate,omitempty"`
}

// Export returns every record, the preferences and current stats.
func (s *Store) Export() ExportData {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.prefs.Clone()
	stats := computeStats(s.records, s.now())
	return ExportData{
		FeedbackData:    append([]Record{}, s.records...),
		UserPreferences: &prefs,
		Stats:           &stats,
		ExportDate:      s.now().UTC().Format(time.RFC3339Nano),
	}
}

// Import replaces all state with data. Both feedbackData and userPreferences
// must be present.
func (s *Store) Import(ctx context.Context, data ExportData) error {
	if data.FeedbackData == nil || data.UserPreferences == nil {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(data.UserPreferences)
	if err != nil {
		return err
	}
	prefs, err := mergePreferences(DefaultPreferences(), raw)
	if err != nil {
		return err
	}

	s.records = normalizeRecords(data.FeedbackData)
	s.prefs = prefs
	_ = s.save(ctx)

	s.logger.Info("feedback data imported", zap.Int("records", len(s.records)))
	return nil
}

// Clear drops every record and resets preferences to defaults.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = []Record{}
	s.prefs = DefaultPreferences()
	_ = s.save(ctx)
}

// normalizeRecords enforces record invariants on data from outside Collect.
func normalizeRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Rating = clampRating(r.Rating)
		r.Aspects = r.Aspects.normalized()
		r.Tags = tags.Dedupe(r.Tags)
		out[i] = r
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
