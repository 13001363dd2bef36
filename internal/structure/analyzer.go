// Package structure fingerprints the shape of a parsed JSON value so outputs
// can be compared across feedback history.
package structure

import (
	"bytes"
	"encoding/json"

	"github.com/khanglvm/promptstruct/internal/jsonvalue"
)

// MaxDepth is the deepest level Analyze summarizes. Deeper calls return the
// deep-nested sentinel.
const MaxDepth = 3

// DeepNested is the serialized form of the sentinel summary.
const DeepNested = "deep-nested"

// Recognized structural markers.
const (
	PatternType        = "has-type"
	PatternProperties  = "has-properties"
	PatternRequired    = "has-required"
	PatternParameters  = "has-parameters"
	PatternDescription = "has-description"
)

// markerKeys maps the literal object keys to their pattern, in emission order.
var markerKeys = []struct {
	key     string
	pattern string
}{
	{"type", PatternType},
	{"properties", PatternProperties},
	{"required", PatternRequired},
	{"parameters", PatternParameters},
	{"description", PatternDescription},
}

// Summary is a shallow shape fingerprint of a JSON value.
type Summary struct {
	Type     string   `json:"type"`
	Keys     []string `json:"keys"`
	KeyCount *int     `json:"keyCount,omitempty"`
	Length   *int     `json:"length,omitempty"`
	ItemType string   `json:"itemType,omitempty"`
	Patterns []string `json:"patterns"`

	// Deep marks the compact sentinel variant; all other fields are empty.
	Deep bool `json:"-"`
}

// Analyze summarizes v. It never recurses into children; depth only exists
// so callers walking a document can stop at MaxDepth.
func Analyze(v jsonvalue.Value, depth int) Summary {
	if depth > MaxDepth {
		return Summary{Deep: true}
	}

	switch v.Kind() {
	case jsonvalue.Null:
		return Summary{Type: "null", Keys: []string{}, Patterns: []string{}}

	case jsonvalue.Array:
		n := v.Len()
		s := Summary{Type: "array", Keys: []string{}, Patterns: []string{}, Length: &n}
		if n > 0 {
			s.ItemType = v.Index(0).TypeOf()
		}
		return s

	case jsonvalue.Object:
		keys := v.Keys()
		n := len(keys)
		s := Summary{Type: "object", Keys: keys, KeyCount: &n, Patterns: []string{}}
		for _, m := range markerKeys {
			if v.Has(m.key) {
				s.Patterns = append(s.Patterns, m.pattern)
			}
		}
		return s

	default:
		return Summary{Type: v.Kind().String(), Keys: []string{}, Patterns: []string{}}
	}
}

// HasPattern reports whether the summary carries pattern p.
func (s Summary) HasPattern(p string) bool {
	for _, x := range s.Patterns {
		if x == p {
			return true
		}
	}
	return false
}

type summaryJSON Summary

// MarshalJSON encodes the sentinel as the bare string "deep-nested".
func (s Summary) MarshalJSON() ([]byte, error) {
	if s.Deep {
		return json.Marshal(DeepNested)
	}
	return json.Marshal(summaryJSON(s))
}

// UnmarshalJSON accepts both the object form and the sentinel string.
func (s *Summary) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Summary{Deep: str == DeepNested}
		return nil
	}

	var aux summaryJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Summary(aux)
	return nil
}
