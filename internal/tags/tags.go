// Package tags derives normalized tags from a prompt, its generated JSON and
// optional free-text feedback.
package tags

import (
	"regexp"
	"strings"

	"github.com/khanglvm/promptstruct/internal/jsonvalue"
)

// SuggestionPrefix marks tags mined from free-text feedback.
const SuggestionPrefix = "suggestion:"

// Composite suggestion themes detected from phrases in the feedback text.
const (
	ThemeApproaches = "include-approaches"
	ThemeComplexity = "include-complexity"
	ThemeExamples   = "include-examples"
)

var wordPattern = regexp.MustCompile(`\w+`)

var (
	// generalKeywords are development and process words kept from prompts.
	generalKeywords = newVocabulary("function", "api", "user", "data", "validate",
		"create", "process", "algorithm", "code", "implementation")

	// programmingKeywords are language and algorithm words kept from prompts.
	// "c++" can never match a word token; it stays for parity with the keyword
	// list the recommender uses.
	programmingKeywords = newVocabulary("java", "python", "javascript", "c++",
		"fibonacci", "sorting", "search", "tree", "graph")

	// suggestionKeywords are words kept from feedback text.
	suggestionKeywords = newVocabulary("brute", "force", "optimal", "efficient",
		"complexity", "time", "space", "approach", "method", "algorithm")
)

type vocabulary map[string]struct{}

func newVocabulary(words ...string) vocabulary {
	v := make(vocabulary, len(words))
	for _, w := range words {
		v[w] = struct{}{}
	}
	return v
}

func (v vocabulary) has(word string) bool {
	_, ok := v[word]
	return ok
}

// Words splits text into lowercase word tokens in order of appearance.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Extract returns the deduplicated tags for one feedback record, in order of
// first derivation. It is a pure function of its inputs.
func Extract(prompt, generatedJSON, feedbackText string) []string {
	b := newBuilder()

	promptWords := Words(prompt)
	for _, w := range promptWords {
		if generalKeywords.has(w) {
			b.add(w)
		}
	}
	for _, w := range promptWords {
		if programmingKeywords.has(w) {
			b.add(w)
		}
	}

	if feedbackText != "" {
		for _, w := range Words(feedbackText) {
			if suggestionKeywords.has(w) {
				b.add(SuggestionPrefix + w)
			}
		}

		lower := strings.ToLower(feedbackText)
		if strings.Contains(lower, "brute force") || strings.Contains(lower, "optimal") {
			b.add(SuggestionPrefix + ThemeApproaches)
		}
		if strings.Contains(lower, "complexity") {
			b.add(SuggestionPrefix + ThemeComplexity)
		}
		if strings.Contains(lower, "example") || strings.Contains(lower, "sample") {
			b.add(SuggestionPrefix + ThemeExamples)
		}
	}

	if v, err := jsonvalue.Parse(generatedJSON); err == nil && v.Kind() == jsonvalue.Object {
		if t, ok := v.Get("type"); ok && !t.IsNull() {
			b.add("type:" + t.Text())
		}
		if v.Has("properties") {
			b.add("has-properties")
		}
		if v.Has("required") {
			b.add("has-required")
		}
		if v.Has("parameters") {
			b.add("has-parameters")
		}
	}

	return b.tags
}

// Suggestions returns the theme names of all suggestion tags, prefix removed.
func Suggestions(tags []string) []string {
	var themes []string
	for _, t := range tags {
		if strings.HasPrefix(t, SuggestionPrefix) {
			themes = append(themes, strings.TrimPrefix(t, SuggestionPrefix))
		}
	}
	return themes
}

// Dedupe removes repeated tags, keeping first occurrences.
func Dedupe(tags []string) []string {
	b := newBuilder()
	for _, t := range tags {
		b.add(t)
	}
	return b.tags
}

type builder struct {
	seen map[string]struct{}
	tags []string
}

func newBuilder() *builder {
	return &builder{seen: make(map[string]struct{}), tags: []string{}}
}

func (b *builder) add(tag string) {
	if _, ok := b.seen[tag]; ok {
		return
	}
	b.seen[tag] = struct{}{}
	b.tags = append(b.tags, tag)
}
