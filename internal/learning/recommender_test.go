package learning

import (
	"testing"

	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/structure"
)

type fakeSource struct {
	records []feedback.Record
	prefs   feedback.UserPreferences
}

func (f fakeSource) Records() []feedback.Record            { return f.records }
func (f fakeSource) Preferences() feedback.UserPreferences { return f.prefs }

func newSource(records ...feedback.Record) fakeSource {
	return fakeSource{records: records, prefs: feedback.DefaultPreferences()}
}

func types(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Type
	}
	return out
}

func hasType(recs []Recommendation, typ string) bool {
	for _, r := range recs {
		if r.Type == typ {
			return true
		}
	}
	return false
}

func TestRecommend_SimilarSuccess(t *testing.T) {
	src := newSource(feedback.Record{
		Schema: "openai-function",
		Prompt: "implement fibonacci sequence in python",
		Rating: 5,
	})
	engine := NewEngine(src, DefaultParams())

	recs := engine.Recommend("implement fibonacci in python", "openai-function")
	if !hasType(recs, TypeSimilarSuccess) {
		t.Fatalf("expected similar_success, got %v", types(recs))
	}
	if recs[0].Examples[0] != "implement fibonacci sequence in python" {
		t.Errorf("unexpected example %v", recs[0].Examples)
	}

	if recs := engine.Recommend("bake a cake", "openai-function"); hasType(recs, TypeSimilarSuccess) {
		t.Errorf("expected no similar_success for unrelated prompt, got %v", types(recs))
	}
}

func TestRecommend_SimilarRequiresSchemaAndRating(t *testing.T) {
	src := newSource(
		feedback.Record{Schema: "langchain", Prompt: "implement fibonacci in python", Rating: 5},
		feedback.Record{Schema: "openai-function", Prompt: "implement fibonacci in python", Rating: 2},
	)
	engine := NewEngine(src, DefaultParams())

	if recs := engine.Recommend("implement fibonacci in python", "openai-function"); hasType(recs, TypeSimilarSuccess) {
		t.Errorf("expected no similar_success, got %v", types(recs))
	}
}

func TestRecommend_EmptyStore(t *testing.T) {
	engine := NewEngine(newSource(), DefaultParams())

	recs := engine.Recommend("bake a cake", "openai-function")
	if recs == nil || len(recs) != 0 {
		t.Errorf("expected empty non-nil list, got %v", recs)
	}
}

func TestRecommend_Themes(t *testing.T) {
	src := newSource(
		feedback.Record{
			Schema:       "s",
			Prompt:       "sort a list",
			TextFeedback: "add complexity please",
			Tags:         []string{"suggestion:complexity", "suggestion:include-complexity"},
		},
		feedback.Record{
			Schema:       "s",
			Prompt:       "reverse a list",
			TextFeedback: "mention complexity",
			Tags:         []string{"suggestion:include-complexity"},
		},
		feedback.Record{
			Schema: "s",
			Prompt: "ignored without text",
			Tags:   []string{"suggestion:optimal"},
		},
	)
	engine := NewEngine(src, DefaultParams())

	recs := engine.Recommend("weather today", "s")
	if len(recs) != 2 {
		t.Fatalf("expected 2 theme recommendations, got %v", types(recs))
	}

	if recs[0].Type != TypeUserSuggestion || recs[0].Message != `Based on your previous feedback: "add complexity please"` {
		t.Errorf("unexpected fallback theme: %+v", recs[0])
	}
	if recs[1].Type != TypeComplexityAnalysis || recs[1].Count != 2 || len(recs[1].Examples) != 2 {
		t.Errorf("unexpected complexity theme: %+v", recs[1])
	}
}

func TestRecommend_PreferredStructure(t *testing.T) {
	src := newSource()
	exemplars := make([]feedback.Exemplar, 5)
	for i := range exemplars {
		exemplars[i] = feedback.Exemplar{Structure: structure.Summary{Type: "object"}, Rating: 5 - i}
	}
	src.prefs.PreferredStructures.Exemplars[feedback.StructureKey("s")] = exemplars
	engine := NewEngine(src, DefaultParams())

	recs := engine.Recommend("weather today", "s")
	if len(recs) != 1 || recs[0].Type != TypePreferredStructure {
		t.Fatalf("expected preferred_structure, got %v", types(recs))
	}
	if len(recs[0].Patterns) != 3 || recs[0].Patterns[0].Rating != 5 {
		t.Errorf("expected top 3 exemplars, got %+v", recs[0].Patterns)
	}
}

func TestRecommend_ProgrammingOrder(t *testing.T) {
	engine := NewEngine(newSource(), DefaultParams())

	recs := engine.Recommend("Implement a Fibonacci algorithm", "s")
	got := types(recs)
	want := []string{TypeAlgorithmEnhancement, TypeCodeEnhancement}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestIsProgrammingPrompt(t *testing.T) {
	tests := []struct {
		prompt string
		want   bool
	}{
		{"Write C++ templates", true},
		{"binary search", true},
		{"decode this", true}, // substring match on "code"
		{"bake a cake", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsProgrammingPrompt(tt.prompt); got != tt.want {
			t.Errorf("IsProgrammingPrompt(%q) = %v, want %v", tt.prompt, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	a := wordSet("implement fibonacci in python")
	b := wordSet("implement fibonacci sequence in python")

	if got := Similarity(a, b); got != 0.8 {
		t.Errorf("expected similarity 0.8, got %f", got)
	}
	if got := Similarity(wordSet(""), wordSet("")); got != 0 {
		t.Errorf("expected 0 for empty sets, got %f", got)
	}
}

func TestSimilarPromptsSorted(t *testing.T) {
	records := []feedback.Record{
		{Schema: "s", Prompt: "parse json files quickly"},
		{Schema: "s", Prompt: "parse json files"},
	}

	matches := SimilarPrompts(records, "parse json files", "s", DefaultSimilarityThreshold)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Similarity != 1 || matches[0].Record.Prompt != "parse json files" {
		t.Errorf("expected exact match first, got %+v", matches[0])
	}
}
