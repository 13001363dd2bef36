package prompt

import (
	"sort"
	"strings"

	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/learning"
)

var complexityGuidance = map[feedback.ComplexityLevel]string{
	feedback.ComplexitySimple:  "Keep the schema simple and straightforward with minimal nesting.",
	feedback.ComplexityMedium:  "Create a moderately detailed schema with appropriate structure.",
	feedback.ComplexityComplex: "Generate a comprehensive and detailed schema with rich structure and validation.",
}

var detailGuidance = map[feedback.DetailLevel]string{
	feedback.DetailMinimal:  "Include only essential fields and basic descriptions.",
	feedback.DetailStandard: "Provide good descriptions and reasonable field coverage.",
	feedback.DetailDetailed: "Include comprehensive descriptions, examples, and extensive field coverage.",
}

var aspectGuidance = map[feedback.Aspect]string{
	feedback.Accuracy:     "Prioritize technical accuracy and correctness of the schema.",
	feedback.Completeness: "Ensure comprehensive coverage of all necessary fields and properties.",
	feedback.Structure:    "Focus on clean, well-organized schema structure and hierarchy.",
	feedback.Relevance:    "Maintain strong relevance to the original prompt requirements.",
}

// priorityAspects is how many top-weighted aspects get guidance.
const priorityAspects = 2

// Enhance appends preference-driven guidance to the system prompt base.
func Enhance(base, schema string, prefs feedback.UserPreferences) string {
	var b strings.Builder
	b.WriteString(base)

	if g, ok := complexityGuidance[prefs.ComplexityLevel]; ok {
		b.WriteString(" " + g)
	}
	if g, ok := detailGuidance[prefs.DetailLevel]; ok {
		b.WriteString(" " + g)
	}

	ps := prefs.PreferredStructures
	if list := ps.Exemplars[feedback.StructureKey(schema)]; len(list) > 0 {
		if patterns := list[0].Structure.Patterns; len(patterns) > 0 {
			b.WriteString(" Based on user preferences, ensure the schema includes: " + strings.Join(patterns, ", ") + ".")
		}
	}

	var suggestionKeys []string
	for _, k := range ps.Keys() {
		if strings.Contains(k, "suggestion") || strings.Contains(k, "algorithm") || strings.Contains(k, "complexity") {
			suggestionKeys = append(suggestionKeys, k)
		}
	}
	if len(suggestionKeys) > 0 {
		b.WriteString(" Based on user feedback suggestions:")
		if anyContains(suggestionKeys, "algorithm", "approach") {
			b.WriteString(" Include parameters for different implementation approaches (brute force, optimal, etc.).")
		}
		if anyContains(suggestionKeys, "complexity") {
			b.WriteString(" Include parameters for time and space complexity analysis.")
		}
		if anyContains(suggestionKeys, "example") {
			b.WriteString(" Include parameters for providing examples and explanations.")
		}
	}

	var guidance []string
	for _, a := range topAspects(prefs.Weights, priorityAspects) {
		if g, ok := aspectGuidance[a]; ok {
			guidance = append(guidance, g)
		}
	}
	if len(guidance) > 0 {
		b.WriteString(" " + strings.Join(guidance, " "))
	}

	return b.String()
}

// topAspects returns the n highest-weighted aspects. Ties keep canonical
// aspect order; unknown aspects sort after known ones.
func topAspects(weights map[feedback.Aspect]float64, n int) []feedback.Aspect {
	rank := make(map[feedback.Aspect]int, len(feedback.Aspects))
	for i, a := range feedback.Aspects {
		rank[a] = i
	}

	aspects := make([]feedback.Aspect, 0, len(weights))
	for a := range weights {
		aspects = append(aspects, a)
	}
	sort.Slice(aspects, func(i, j int) bool {
		ai, aj := aspects[i], aspects[j]
		if weights[ai] != weights[aj] {
			return weights[ai] > weights[aj]
		}
		ri, iKnown := rank[ai]
		rj, jKnown := rank[aj]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return ai < aj
		}
	})

	if len(aspects) > n {
		aspects = aspects[:n]
	}
	return aspects
}

func anyContains(keys []string, subs ...string) bool {
	for _, k := range keys {
		for _, s := range subs {
			if strings.Contains(k, s) {
				return true
			}
		}
	}
	return false
}

// WithRecommendations appends recommendation messages to the user prompt.
// The prompt is returned unchanged when recs is empty.
func WithRecommendations(userPrompt string, recs []learning.Recommendation) string {
	if len(recs) == 0 {
		return userPrompt
	}

	var b strings.Builder
	b.WriteString(userPrompt)
	b.WriteString("\n\nConsider the following, based on previous feedback:\n")
	for _, rec := range recs {
		b.WriteString("- " + rec.Message + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// EnhancementPrompt builds the meta-prompt asking a model to rewrite original
// so that it yields better schema output.
func EnhancementPrompt(original, schema string, recs []learning.Recommendation) string {
	var b strings.Builder
	b.WriteString("Please enhance the following prompt to generate better " + schema + " schemas. ")

	if len(recs) > 0 {
		b.WriteString("Based on user feedback and successful patterns:\n\n")
		for _, rec := range recs {
			b.WriteString("- " + rec.Message + "\n")
			if len(rec.Examples) > 0 {
				examples := rec.Examples
				if len(examples) > 2 {
					examples = examples[:2]
				}
				b.WriteString("  Examples: " + strings.Join(examples, ", ") + "\n")
			}

			switch rec.Type {
			case learning.TypeAlgorithmApproaches, learning.TypeAlgorithmicApproaches:
				b.WriteString("  → Add parameters to specify implementation approaches (brute force, optimal, or both)\n")
			case learning.TypeComplexityAnalysis:
				b.WriteString("  → Include parameters for time and space complexity analysis\n")
			case learning.TypeIncludeExamples:
				b.WriteString("  → Add parameters for including example inputs and outputs\n")
			case learning.TypeCodeEnhancement:
				b.WriteString("  → Include parameters for code style and complexity analysis\n")
			}
		}
	}

	if learning.IsProgrammingPrompt(original) {
		b.WriteString("\nFor programming/algorithm prompts, ensure the enhanced prompt includes:\n")
		b.WriteString("- Parameters for different implementation approaches\n")
		b.WriteString("- Options for complexity analysis\n")
		b.WriteString("- Parameters for including examples and explanations\n")
	}

	b.WriteString("\nOriginal prompt: \"" + original + "\"\n\n")
	b.WriteString("Please provide an enhanced version that incorporates the above suggestions and is more specific, detailed, and likely to generate high-quality " + schema + " schemas. ")
	b.WriteString("The enhanced prompt should ask for the specific elements mentioned in the recommendations. ")
	b.WriteString("Return only the enhanced prompt text, no additional formatting or explanation.")

	return b.String()
}
