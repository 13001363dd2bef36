package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/khanglvm/promptstruct/internal/storage"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// failingStorage rejects every call.
type failingStorage struct{}

func (failingStorage) Init() error { return nil }
func (failingStorage) Get(context.Context, []string) (map[string]json.RawMessage, error) {
	return nil, errors.New("disk on fire")
}
func (failingStorage) Set(context.Context, map[string]json.RawMessage) error {
	return errors.New("disk on fire")
}
func (failingStorage) Close() error { return nil }

// countingUpdater records how often it was called.
type countingUpdater struct {
	calls []Record
}

func (u *countingUpdater) UpdatePreferences(prefs *UserPreferences, record Record) {
	u.calls = append(u.calls, record)
	prefs.PreferredStructures.Accumulator(AspectKey(record.Schema, Accuracy)).Count++
}

func newTestStore(t *testing.T, s storage.Storage, u Updater) *Store {
	t.Helper()
	n := 0
	return NewStore(s, u, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("rec-%d", n) }),
	)
}

func TestCollectDefaults(t *testing.T) {
	st := newTestStore(t, storage.NewMemory(), nil)

	rec, err := st.Collect(context.Background(), &Output{Prompt: "p", JSON: "{}"}, &Judgment{})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if rec.Rating != 3 {
		t.Errorf("expected rating 3, got %d", rec.Rating)
	}
	for _, a := range Aspects {
		if got := rec.Aspects.Get(a); got != 3 {
			t.Errorf("expected %s=3, got %d", a, got)
		}
	}
	if rec.ThumbsUp || rec.IsPreferred {
		t.Error("expected thumbsUp and isPreferred to default to false")
	}
	if rec.TextFeedback != "" {
		t.Errorf("expected empty text feedback, got %q", rec.TextFeedback)
	}
	if rec.Schema != UnknownSchema || rec.Provider != UnknownProvider || rec.Model != UnknownModel {
		t.Errorf("unexpected defaults: %+v", rec)
	}
	if rec.ID != "rec-1" {
		t.Errorf("expected generated id, got %q", rec.ID)
	}
	if rec.Timestamp != fixedNow.UnixMilli() {
		t.Errorf("expected timestamp %d, got %d", fixedNow.UnixMilli(), rec.Timestamp)
	}
}

func TestCollectClampsRatings(t *testing.T) {
	st := newTestStore(t, storage.NewMemory(), nil)

	rec, err := st.Collect(context.Background(),
		&Output{Prompt: "p", Schema: "langchain"},
		&Judgment{Rating: 9, Accuracy: -2, Completeness: 7, Structure: 1, Relevance: 5},
	)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if rec.Rating != 5 {
		t.Errorf("expected rating clamped to 5, got %d", rec.Rating)
	}
	want := AspectScores{Accuracy: 1, Completeness: 5, Structure: 1, Relevance: 5}
	if rec.Aspects != want {
		t.Errorf("expected %+v, got %+v", want, rec.Aspects)
	}
}

func TestCollectInvalidInput(t *testing.T) {
	st := newTestStore(t, storage.NewMemory(), nil)

	if _, err := st.Collect(context.Background(), nil, &Judgment{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil output, got %v", err)
	}
	if _, err := st.Collect(context.Background(), &Output{}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil judgment, got %v", err)
	}
	if st.Len() != 0 {
		t.Errorf("expected no records after invalid input, got %d", st.Len())
	}
}

func TestCollectTags(t *testing.T) {
	st := newTestStore(t, storage.NewMemory(), nil)

	rec, err := st.Collect(context.Background(),
		&Output{Prompt: "Write a python function", JSON: `{"type":"function","parameters":{}}`, Schema: "openai-function"},
		&Judgment{Rating: 4, TextFeedback: "please show brute force"},
	)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := map[string]bool{
		"python":                        true,
		"function":                      true,
		"suggestion:brute":              true,
		"suggestion:include-approaches": true,
		"type:function":                 true,
		"has-parameters":                true,
	}
	got := make(map[string]bool)
	for _, tag := range rec.Tags {
		if got[tag] {
			t.Errorf("duplicate tag %q", tag)
		}
		got[tag] = true
	}
	for tag := range want {
		if !got[tag] {
			t.Errorf("missing tag %q in %v", tag, rec.Tags)
		}
	}
}

func TestCollectCallsUpdaterAndPersists(t *testing.T) {
	mem := storage.NewMemory()
	u := &countingUpdater{}
	st := newTestStore(t, mem, u)

	if _, err := st.Collect(context.Background(), &Output{Prompt: "p", Schema: "s"}, &Judgment{Rating: 5}); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(u.calls) != 1 {
		t.Fatalf("expected updater called once, got %d", len(u.calls))
	}

	// The updated preferences must be durable, not only in memory.
	reloaded := newTestStore(t, mem, nil)
	reloaded.Load(context.Background())

	if reloaded.Len() != 1 {
		t.Errorf("expected 1 persisted record, got %d", reloaded.Len())
	}
	acc, ok := reloaded.Preferences().PreferredStructures.Accumulators[AspectKey("s", Accuracy)]
	if !ok || acc.Count != 1 {
		t.Errorf("expected persisted accumulator with count 1, got %+v", acc)
	}
}

func TestCollectStorageFailure(t *testing.T) {
	st := newTestStore(t, failingStorage{}, &countingUpdater{})

	rec, err := st.Collect(context.Background(), &Output{Prompt: "p"}, &Judgment{Rating: 4})
	if err != nil {
		t.Fatalf("expected storage errors to be swallowed, got %v", err)
	}
	if rec.Rating != 4 {
		t.Errorf("expected constructed record, got %+v", rec)
	}
	if st.Len() != 1 {
		t.Errorf("expected record kept in memory, got %d", st.Len())
	}
	if err := st.Save(context.Background()); err == nil {
		t.Error("expected explicit Save to report storage failure")
	}
}

func TestLoadFailureKeepsDefaults(t *testing.T) {
	st := newTestStore(t, failingStorage{}, nil)
	st.Load(context.Background())

	prefs := st.Preferences()
	if prefs.ComplexityLevel != ComplexityMedium || prefs.DetailLevel != DetailStandard {
		t.Errorf("expected default levels, got %q/%q", prefs.ComplexityLevel, prefs.DetailLevel)
	}
	if prefs.Weights[Accuracy] != 0.3 {
		t.Errorf("expected default accuracy weight, got %v", prefs.Weights[Accuracy])
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	mem := storage.NewMemory()
	err := mem.Set(context.Background(), map[string]json.RawMessage{
		KeyUserPreferences: json.RawMessage(`{"complexityLevel":"complex","weights":{"accuracy":0.7,"relevance":0.3}}`),
		KeyFeedbackData:    json.RawMessage(`[{"id":"a","rating":11,"tags":["x","x","y"]}]`),
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	st := newTestStore(t, mem, nil)
	st.Load(context.Background())

	prefs := st.Preferences()
	if prefs.ComplexityLevel != ComplexityComplex {
		t.Errorf("expected loaded complexity, got %q", prefs.ComplexityLevel)
	}
	if prefs.DetailLevel != DetailStandard {
		t.Errorf("expected default detail level to survive, got %q", prefs.DetailLevel)
	}
	if len(prefs.Weights) != 2 || prefs.Weights[Accuracy] != 0.7 {
		t.Errorf("expected loaded weights to replace defaults, got %v", prefs.Weights)
	}

	records := st.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Rating != 5 {
		t.Errorf("expected loaded rating clamped to 5, got %d", records[0].Rating)
	}
	if len(records[0].Tags) != 2 {
		t.Errorf("expected deduplicated tags, got %v", records[0].Tags)
	}
}

func TestStatsAverageRating(t *testing.T) {
	st := newTestStore(t, storage.NewMemory(), nil)

	for _, r := range []int{5, 5, 4, 2, 1} {
		if _, err := st.Collect(context.Background(), &Output{Prompt: "p", Schema: "openai-function"}, &Judgment{Rating: r}); err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
	}

	stats := st.Stats()
	if stats.TotalFeedback != 5 {
		t.Errorf("expected 5 records, got %d", stats.TotalFeedback)
	}
	if math.Abs(stats.AverageRating-3.4) > 1e-9 {
		t.Errorf("expected average 3.4, got %v", stats.AverageRating)
	}
	if stats.AspectAverages[Structure] != 3 {
		t.Errorf("expected default aspect average 3, got %v", stats.AspectAverages[Structure])
	}
	if len(stats.RecentTrends) != 1 || stats.RecentTrends[0].Count != 5 {
		t.Errorf("expected one recent trend over 5 records, got %+v", stats.RecentTrends)
	}
}

func TestStatsEmptyAndOld(t *testing.T) {
	stats := computeStats(nil, fixedNow)
	if stats.TotalFeedback != 0 || stats.AverageRating != 0 || len(stats.RecentTrends) != 0 {
		t.Errorf("unexpected stats for empty log: %+v", stats)
	}

	old := Record{Rating: 4, ThumbsUp: true, Timestamp: fixedNow.Add(-45 * 24 * time.Hour).UnixMilli(), Tags: []string{"api"}}
	recent := Record{Rating: 2, Timestamp: fixedNow.Add(-time.Hour).UnixMilli(), Tags: []string{"api"}}
	stats = computeStats([]Record{old, recent}, fixedNow)

	if stats.ThumbsUpPercentage != 50 {
		t.Errorf("expected 50%% thumbs up, got %v", stats.ThumbsUpPercentage)
	}
	if stats.TopTags["api"] != 2 {
		t.Errorf("expected tag count 2, got %d", stats.TopTags["api"])
	}
	if len(stats.RecentTrends) != 1 || stats.RecentTrends[0].AverageRating != 2 || stats.RecentTrends[0].Count != 1 {
		t.Errorf("expected only the recent record in trend, got %+v", stats.RecentTrends)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	st := newTestStore(t, storage.NewMemory(), &countingUpdater{})
	if _, err := st.Collect(context.Background(), &Output{Prompt: "p", Schema: "s"}, &Judgment{Rating: 5}); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	data, err := json.Marshal(st.Export())
	if err != nil {
		t.Fatalf("marshal export failed: %v", err)
	}

	var decoded ExportData
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal export failed: %v", err)
	}
	if decoded.Stats == nil || decoded.Stats.TotalFeedback != 1 {
		t.Errorf("expected stats in export, got %+v", decoded.Stats)
	}
	if decoded.ExportDate == "" {
		t.Error("expected export date")
	}

	other := newTestStore(t, storage.NewMemory(), nil)
	if err := other.Import(context.Background(), decoded); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if other.Len() != 1 {
		t.Errorf("expected 1 imported record, got %d", other.Len())
	}
	if _, ok := other.Preferences().PreferredStructures.Accumulators[AspectKey("s", Accuracy)]; !ok {
		t.Error("expected imported accumulator")
	}
}

func TestImportRequiresBothParts(t *testing.T) {
	st := newTestStore(t, storage.NewMemory(), nil)

	if err := st.Import(context.Background(), ExportData{FeedbackData: []Record{}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without preferences, got %v", err)
	}
	prefs := DefaultPreferences()
	if err := st.Import(context.Background(), ExportData{UserPreferences: &prefs}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without records, got %v", err)
	}
}

func TestClear(t *testing.T) {
	mem := storage.NewMemory()
	st := newTestStore(t, mem, &countingUpdater{})
	if _, err := st.Collect(context.Background(), &Output{Prompt: "p"}, &Judgment{}); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	st.Clear(context.Background())

	if st.Len() != 0 {
		t.Errorf("expected empty log, got %d", st.Len())
	}
	if st.Preferences().PreferredStructures.Len() != 0 {
		t.Error("expected preferences reset")
	}

	reloaded := newTestStore(t, mem, nil)
	reloaded.Load(context.Background())
	if reloaded.Len() != 0 {
		t.Errorf("expected cleared state persisted, got %d records", reloaded.Len())
	}
}
