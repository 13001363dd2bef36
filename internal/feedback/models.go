/*
Package feedback owns the feedback log and the aggregated user preferences.

Records are immutable once collected and are only ever cleared in bulk. The
persisted shape of Record and UserPreferences doubles as the export/import
file format.
*/
package feedback

import (
	"time"

	"github.com/khanglvm/promptstruct/internal/structure"
)

// Aspect is one of the four independently rated quality dimensions.
type Aspect string

const (
	Accuracy     Aspect = "accuracy"
	Completeness Aspect = "completeness"
	Structure    Aspect = "structure"
	Relevance    Aspect = "relevance"
)

// Aspects lists every aspect in canonical order.
var Aspects = []Aspect{Accuracy, Completeness, Structure, Relevance}

// Rating bounds and the default applied to unset values.
const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 3
)

// AspectScores holds one 1-5 score per aspect.
type AspectScores struct {
	Accuracy     int `json:"accuracy"`
	Completeness int `json:"completeness"`
	Structure    int `json:"structure"`
	Relevance    int `json:"relevance"`
}

// Get returns the score for a, treating an unset score as DefaultRating.
func (s AspectScores) Get(a Aspect) int {
	var v int
	switch a {
	case Accuracy:
		v = s.Accuracy
	case Completeness:
		v = s.Completeness
	case Structure:
		v = s.Structure
	case Relevance:
		v = s.Relevance
	}
	if v == 0 {
		return DefaultRating
	}
	return v
}

func (s AspectScores) normalized() AspectScores {
	return AspectScores{
		Accuracy:     clampRating(s.Accuracy),
		Completeness: clampRating(s.Completeness),
		Structure:    clampRating(s.Structure),
		Relevance:    clampRating(s.Relevance),
	}
}

// Record is one user judgment about one generated output.
type Record struct {
	ID            string       `json:"id"`
	Timestamp     int64        `json:"timestamp"` // ms since epoch
	Prompt        string       `json:"prompt"`
	Schema        string       `json:"schema"`
	GeneratedJSON string       `json:"generatedJson"`
	Provider      string       `json:"provider"`
	Model         string       `json:"model"`
	Rating        int          `json:"rating"`
	ThumbsUp      bool         `json:"thumbsUp"`
	Aspects       AspectScores `json:"aspects"`
	TextFeedback  string       `json:"textFeedback"`
	IsPreferred   bool         `json:"isPreferred"`
	Tags          []string     `json:"tags"`
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Output describes the generated output being judged.
type Output struct {
	Prompt   string `json:"prompt"`
	JSON     string `json:"json"`
	Schema   string `json:"schema"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Judgment is the user's input about an output. Zero values mean "not given"
// and fall back to defaults.
type Judgment struct {
	Rating       int    `json:"rating,omitempty"`
	ThumbsUp     bool   `json:"thumbsUp,omitempty"`
	Accuracy     int    `json:"accuracy,omitempty"`
	Completeness int    `json:"completeness,omitempty"`
	Structure    int    `json:"structure,omitempty"`
	Relevance    int    `json:"relevance,omitempty"`
	TextFeedback string `json:"textFeedback,omitempty"`
	IsPreferred  bool   `json:"isPreferred,omitempty"`
}

// ComplexityLevel steers how elaborate generated schemas should be.
type ComplexityLevel string

const (
	ComplexitySimple  ComplexityLevel = "simple"
	ComplexityMedium  ComplexityLevel = "medium"
	ComplexityComplex ComplexityLevel = "complex"
)

// DetailLevel steers how much descriptive text generated schemas carry.
type DetailLevel string

const (
	DetailMinimal  DetailLevel = "minimal"
	DetailStandard DetailLevel = "standard"
	DetailDetailed DetailLevel = "detailed"
)

// Accumulator is a reinforce or avoid score for one schema/aspect pair.
type Accumulator struct {
	Score float64  `json:"score"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

// Exemplar is one well-liked output shape for a schema.
type Exemplar struct {
	Structure structure.Summary `json:"structure"`
	Rating    int               `json:"rating"`
	Timestamp int64             `json:"timestamp"`
	Tags      []string          `json:"tags"`
}

// UserPreferences is the aggregate learned from all feedback.
type UserPreferences struct {
	PreferredStructures PreferredStructures `json:"preferredStructures"`
	NamingConventions   map[string]any      `json:"namingConventions"`
	ComplexityLevel     ComplexityLevel     `json:"complexityLevel"`
	DetailLevel         DetailLevel         `json:"detailLevel"`
	Weights             map[Aspect]float64  `json:"weights"`
}

// DefaultPreferences returns the preferences of a fresh installation.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		PreferredStructures: NewPreferredStructures(),
		NamingConventions:   map[string]any{},
		ComplexityLevel:     ComplexityMedium,
		DetailLevel:         DetailStandard,
		Weights: map[Aspect]float64{
			Accuracy:     0.3,
			Completeness: 0.25,
			Structure:    0.25,
			Relevance:    0.2,
		},
	}
}

// Clone returns a deep copy.
func (p UserPreferences) Clone() UserPreferences {
	c := p
	c.PreferredStructures = p.PreferredStructures.Clone()

	c.NamingConventions = make(map[string]any, len(p.NamingConventions))
	for k, v := range p.NamingConventions {
		c.NamingConventions[k] = v
	}

	c.Weights = make(map[Aspect]float64, len(p.Weights))
	for k, v := range p.Weights {
		c.Weights[k] = v
	}
	return c
}

// AspectKey is the reinforce accumulator key for schema and aspect.
func AspectKey(schema string, a Aspect) string {
	return schema + "_" + string(a)
}

// AvoidKey is the avoid accumulator key for schema and aspect.
func AvoidKey(schema string, a Aspect) string {
	return schema + "_" + string(a) + "_avoid"
}

// StructureKey is the exemplar list key for schema.
func StructureKey(schema string) string {
	return schema + "_structure"
}

func clampRating(v int) int {
	if v == 0 {
		v = DefaultRating
	}
	if v < MinRating {
		return MinRating
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}
