package prompt

import (
	"strings"
	"testing"

	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/learning"
	"github.com/khanglvm/promptstruct/internal/structure"
)

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		schema string
		want   string
	}{
		{SchemaOpenAIFunction, "name, description, and parameters fields."},
		{SchemaLangChain, "LangChain tool format"},
		{SchemaAgentPrompt, "role, task, instructions, and constraints."},
		{SchemaAnthropicTool, "Anthropic Claude tool format"},
		{"custom", "best represents the intent and requirements."},
	}

	for _, tt := range tests {
		got := SystemPrompt(tt.schema)
		if !strings.HasPrefix(got, basePrompt) {
			t.Errorf("%s: missing base prompt", tt.schema)
		}
		if !strings.HasSuffix(got, tt.want) {
			t.Errorf("%s: expected suffix %q, got %q", tt.schema, tt.want, got)
		}
	}
}

func TestEnhanceDefaults(t *testing.T) {
	got := Enhance("BASE", SchemaOpenAIFunction, feedback.DefaultPreferences())

	want := "BASE" +
		" Create a moderately detailed schema with appropriate structure." +
		" Provide good descriptions and reasonable field coverage." +
		" Prioritize technical accuracy and correctness of the schema." +
		" Ensure comprehensive coverage of all necessary fields and properties."
	if got != want {
		t.Errorf("unexpected enhancement:\n got: %q\nwant: %q", got, want)
	}
}

func TestEnhancePatternsAndWeights(t *testing.T) {
	prefs := feedback.DefaultPreferences()
	prefs.ComplexityLevel = feedback.ComplexitySimple
	prefs.DetailLevel = ""
	prefs.Weights = map[feedback.Aspect]float64{
		feedback.Relevance: 0.5,
		feedback.Structure: 0.4,
		feedback.Accuracy:  0.1,
	}
	prefs.PreferredStructures.Exemplars[feedback.StructureKey("s")] = []feedback.Exemplar{{
		Structure: structure.Summary{Type: "object", Patterns: []string{"has-type", "has-properties"}},
		Rating:    5,
	}}

	got := Enhance("B", "s", prefs)

	for _, part := range []string{
		"Keep the schema simple and straightforward with minimal nesting.",
		"Based on user preferences, ensure the schema includes: has-type, has-properties.",
		"Maintain strong relevance to the original prompt requirements. Focus on clean, well-organized schema structure and hierarchy.",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("expected %q in %q", part, got)
		}
	}
	if strings.Contains(got, "Provide good descriptions") {
		t.Error("expected no detail guidance for unset level")
	}
}

func TestEnhanceSuggestionKeys(t *testing.T) {
	prefs := feedback.DefaultPreferences()
	prefs.PreferredStructures.Accumulator("algorithm-complexity_accuracy").Score = 1

	got := Enhance("B", "s", prefs)

	if !strings.Contains(got, " Based on user feedback suggestions: Include parameters for different implementation approaches") {
		t.Errorf("expected approach guidance, got %q", got)
	}
	if !strings.Contains(got, "Include parameters for time and space complexity analysis.") {
		t.Errorf("expected complexity guidance, got %q", got)
	}
	if strings.Contains(got, "providing examples") {
		t.Errorf("unexpected example guidance in %q", got)
	}
}

func TestTopAspectsTies(t *testing.T) {
	weights := map[feedback.Aspect]float64{
		feedback.Relevance:    0.25,
		feedback.Structure:    0.25,
		feedback.Completeness: 0.25,
		feedback.Accuracy:     0.25,
	}

	got := topAspects(weights, 2)
	if len(got) != 2 || got[0] != feedback.Accuracy || got[1] != feedback.Completeness {
		t.Errorf("expected canonical order on ties, got %v", got)
	}
}

func TestWithRecommendations(t *testing.T) {
	if got := WithRecommendations("p", nil); got != "p" {
		t.Errorf("expected unchanged prompt, got %q", got)
	}

	got := WithRecommendations("p", []learning.Recommendation{{Message: "one"}, {Message: "two"}})
	want := "p\n\nConsider the following, based on previous feedback:\n- one\n- two"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEnhancementPrompt(t *testing.T) {
	recs := []learning.Recommendation{{
		Type:     learning.TypeComplexityAnalysis,
		Message:  "Include time and space complexity analysis in the function parameters",
		Examples: []string{"a", "b", "c"},
	}}

	got := EnhancementPrompt("implement fibonacci", SchemaOpenAIFunction, recs)

	for _, part := range []string{
		"Please enhance the following prompt to generate better openai-function schemas. Based on user feedback and successful patterns:",
		"  Examples: a, b\n",
		"  → Include parameters for time and space complexity analysis\n",
		"For programming/algorithm prompts",
		"Original prompt: \"implement fibonacci\"",
		"Return only the enhanced prompt text, no additional formatting or explanation.",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("expected %q in:\n%s", part, got)
		}
	}

	plain := EnhancementPrompt("bake a cake", "langchain", nil)
	if strings.Contains(plain, "Based on user feedback") || strings.Contains(plain, "For programming") {
		t.Errorf("unexpected sections in %q", plain)
	}
}
