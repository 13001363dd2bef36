/*
Package extract pulls a single JSON document out of free-form model output.

Model replies mix JSON with markdown fences, leading prose and trailing
commentary. Extract strips the known noise and then walks lines with running
brace and bracket depth counters to find where the document ends.

Known limitation: the counters do not understand string literals, so braces
inside JSON strings, or unbalanced input, can keep the scan running past the
real end of the document. Callers always re-parse the result.
*/
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanglvm/promptstruct/internal/jsonvalue"
)

// Empty is returned for blank input.
const Empty = "{}"

// ErrMalformedJSON reports that extracted text still fails to parse.
var ErrMalformedJSON = errors.New("malformed JSON")

var (
	jsonFence    = regexp.MustCompile("(?i)```json\\s*")
	plainFence   = regexp.MustCompile("```\\s*")
	leadingNoise = regexp.MustCompile(`(?i)^(here's|here is|the json|json:|response:)\s*`)
	outerSpan    = regexp.MustCompile(`[{\[][\s\S]*[}\]]`)
)

// Extract returns the best candidate JSON text found in raw. The result is
// valid JSON whenever extraction succeeds; otherwise it is the cleaned
// best-effort substring. Extract never fails.
func Extract(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return Empty
	}

	cleaned = jsonFence.ReplaceAllString(cleaned, "")
	cleaned = plainFence.ReplaceAllString(cleaned, "")
	cleaned = leadingNoise.ReplaceAllString(cleaned, "")

	if span := outerSpan.FindString(cleaned); span != "" {
		cleaned = span
	}

	if scanned, ok := scanBalanced(cleaned); ok {
		return scanned
	}
	return cleaned
}

// scanBalanced accumulates lines from the first one starting with '{' or '['
// until brace and bracket depth both return to zero.
func scanBalanced(text string) (string, bool) {
	var (
		lines    []string
		braces   int
		brackets int
		inJSON   bool
	)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inJSON && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
			inJSON = true
		}
		if !inJSON {
			continue
		}

		lines = append(lines, line)
		for _, c := range line {
			switch c {
			case '{':
				braces++
			case '}':
				braces--
			case '[':
				brackets++
			case ']':
				brackets--
			}
		}

		if braces == 0 && brackets == 0 {
			break
		}
	}

	if len(lines) == 0 {
		return "", false
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), true
}

// Validate reports ErrMalformedJSON when text is not a single JSON document.
func Validate(text string) error {
	if _, err := jsonvalue.Parse(text); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// ExtractValid extracts and validates in one step. On ErrMalformedJSON the
// best-effort text is still returned so it can be shown to the user.
func ExtractValid(raw string) (string, error) {
	text := Extract(raw)
	return text, Validate(text)
}
