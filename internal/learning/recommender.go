package learning

import (
	"sort"
	"strings"

	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/tags"
)

// Recommendation types.
const (
	TypeSimilarSuccess        = "similar_success"
	TypePreferredStructure    = "preferred_structure"
	TypeAlgorithmApproaches   = "algorithm_approaches"
	TypeComplexityAnalysis    = "complexity_analysis"
	TypeIncludeExamples       = "include_examples"
	TypeAlgorithmicApproaches = "algorithmic_approaches"
	TypeUserSuggestion        = "user_suggestion"
	TypeAlgorithmEnhancement  = "algorithm_enhancement"
	TypeCodeEnhancement       = "code_enhancement"
)

const (
	maxSimilarExamples = 3
	maxThemeExamples   = 2
	maxPatterns        = 3
)

// programmingKeywords are matched as substrings of the lowercased prompt.
var programmingKeywords = []string{
	"code", "function", "algorithm", "java", "python", "javascript",
	"c++", "programming", "implement", "fibonacci", "sorting", "search",
}

// Recommendation is one piece of guidance for the next prompt.
type Recommendation struct {
	Type     string              `json:"type"`
	Message  string              `json:"message"`
	Examples []string            `json:"examples,omitempty"`
	Patterns []feedback.Exemplar `json:"patterns,omitempty"`
	Count    int                 `json:"count,omitempty"`
}

// Source is the read-only view the engine needs. *feedback.Store satisfies it.
type Source interface {
	Records() []feedback.Record
	Preferences() feedback.UserPreferences
}

// Engine produces rule-based prompt recommendations.
type Engine struct {
	source Source
	params Params
}

// NewEngine creates an engine over source.
func NewEngine(source Source, params Params) *Engine {
	return &Engine{source: source, params: params.withDefaults()}
}

// Recommend returns recommendations for prompt under schema. Sources are
// emitted in a fixed order: similar prompts, feedback themes, preferred
// structures, then programming hints. No signal yields an empty list.
func (e *Engine) Recommend(prompt, schema string) []Recommendation {
	records := e.source.Records()
	prefs := e.source.Preferences()

	recs := []Recommendation{}

	var examples []string
	for _, m := range SimilarPrompts(records, prompt, schema, e.params.SimilarityThreshold) {
		if m.Record.Rating >= e.params.PreferredRating && len(examples) < maxSimilarExamples {
			examples = append(examples, m.Record.Prompt)
		}
	}
	if len(examples) > 0 {
		recs = append(recs, Recommendation{
			Type:     TypeSimilarSuccess,
			Message:  "Based on similar high-rated prompts, consider adding more specific details",
			Examples: examples,
		})
	}

	recs = append(recs, themeRecommendations(records, schema)...)

	if exemplars, ok := prefs.PreferredStructures.Exemplars[feedback.StructureKey(schema)]; ok {
		if len(exemplars) > maxPatterns {
			exemplars = exemplars[:maxPatterns]
		}
		recs = append(recs, Recommendation{
			Type:     TypePreferredStructure,
			Message:  "Your preferred structure patterns suggest including these elements",
			Patterns: exemplars,
		})
	}

	if IsProgrammingPrompt(prompt) {
		recs = append(recs, programmingRecommendations(prompt)...)
	}

	return recs
}

// Match is a stored record with its similarity to a query prompt.
type Match struct {
	Record     feedback.Record
	Similarity float64
}

// SimilarPrompts returns records of schema whose word-set overlap with prompt
// exceeds threshold, most similar first.
func SimilarPrompts(records []feedback.Record, prompt, schema string, threshold float64) []Match {
	current := wordSet(prompt)

	var matches []Match
	for _, r := range records {
		if r.Schema != schema {
			continue
		}
		if sim := Similarity(current, wordSet(r.Prompt)); sim > threshold {
			matches = append(matches, Match{Record: r, Similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// Similarity is |a∩b| / max(|a|,|b|). Two empty sets have similarity 0.
func Similarity(a, b map[string]struct{}) float64 {
	denom := max(len(a), len(b))
	if denom == 0 {
		return 0
	}

	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	return float64(common) / float64(denom)
}

func wordSet(text string) map[string]struct{} {
	words := tags.Words(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

type theme struct {
	name     string
	count    int
	examples []string
	texts    []string
}

// themeRecommendations groups suggestion tags of records with text feedback.
// Themes are emitted in order of first appearance.
func themeRecommendations(records []feedback.Record, schema string) []Recommendation {
	var order []*theme
	byName := make(map[string]*theme)

	for _, r := range records {
		if r.Schema != schema || strings.TrimSpace(r.TextFeedback) == "" {
			continue
		}
		for _, name := range tags.Suggestions(r.Tags) {
			th, ok := byName[name]
			if !ok {
				th = &theme{name: name}
				byName[name] = th
				order = append(order, th)
			}
			th.count++
			th.examples = append(th.examples, r.Prompt)
			th.texts = append(th.texts, r.TextFeedback)
		}
	}

	recs := make([]Recommendation, 0, len(order))
	for _, th := range order {
		typ, msg := themeMessage(th)
		examples := th.examples
		if len(examples) > maxThemeExamples {
			examples = examples[:maxThemeExamples]
		}
		recs = append(recs, Recommendation{
			Type:     typ,
			Message:  msg,
			Examples: examples,
			Count:    th.count,
		})
	}
	return recs
}

func themeMessage(th *theme) (string, string) {
	switch th.name {
	case tags.ThemeApproaches:
		return TypeAlgorithmApproaches, "Consider asking for both brute force and optimal approaches in the function description"
	case tags.ThemeComplexity:
		return TypeComplexityAnalysis, "Include time and space complexity analysis in the function parameters"
	case tags.ThemeExamples:
		return TypeIncludeExamples, "Add example inputs and outputs to make the function more comprehensive"
	case "brute", "force", "optimal":
		return TypeAlgorithmicApproaches, "Based on your feedback, include parameters for different algorithmic approaches"
	default:
		return TypeUserSuggestion, `Based on your previous feedback: "` + th.texts[0] + `"`
	}
}

// IsProgrammingPrompt reports whether prompt mentions a programming keyword.
func IsProgrammingPrompt(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range programmingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func programmingRecommendations(prompt string) []Recommendation {
	lower := strings.ToLower(prompt)
	var recs []Recommendation

	if strings.Contains(lower, "fibonacci") || strings.Contains(lower, "algorithm") {
		recs = append(recs, Recommendation{
			Type:     TypeAlgorithmEnhancement,
			Message:  "For algorithm problems, consider including parameters for implementation approach (brute force vs optimal)",
			Examples: []string{`approach_type: "brute_force" | "optimal" | "both"`},
		})
	}

	if strings.Contains(lower, "code") || strings.Contains(lower, "implement") {
		recs = append(recs, Recommendation{
			Type:    TypeCodeEnhancement,
			Message: "For code generation, include parameters for complexity analysis and examples",
			Examples: []string{
				"include_complexity: boolean",
				"include_examples: boolean",
				`code_style: "verbose" | "concise"`,
			},
		})
	}

	return recs
}
