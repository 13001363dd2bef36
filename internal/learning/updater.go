package learning

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/feedback"
	"github.com/khanglvm/promptstruct/internal/jsonvalue"
	"github.com/khanglvm/promptstruct/internal/structure"
)

// Updater folds feedback records into UserPreferences. It satisfies
// feedback.Updater.
type Updater struct {
	params Params
	now    func() time.Time
	logger *zap.Logger
}

// NewUpdater creates an updater. Zero params fall back to DefaultParams.
func NewUpdater(params Params, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{params: params.withDefaults(), now: time.Now, logger: logger}
}

// SetClock overrides the time source used for recency weighting.
func (u *Updater) SetClock(now func() time.Time) {
	u.now = now
}

// UpdatePreferences mutates prefs in place. The caller persists.
func (u *Updater) UpdatePreferences(prefs *feedback.UserPreferences, record feedback.Record) {
	weight := Weight(record.Rating, record.Time(), u.now(), u.params.DecayDays)

	for _, aspect := range feedback.Aspects {
		score := record.Aspects.Get(aspect)
		switch {
		case score >= u.params.ReinforceThreshold:
			accumulate(prefs, feedback.AspectKey(record.Schema, aspect), weight, record.Tags)
		case score <= u.params.AvoidThreshold:
			accumulate(prefs, feedback.AvoidKey(record.Schema, aspect), weight, record.Tags)
		}
	}

	if record.Rating >= u.params.PreferredRating || record.ThumbsUp {
		u.updatePreferredStructures(prefs, record)
	}
}

func accumulate(prefs *feedback.UserPreferences, key string, weight float64, tags []string) {
	acc := prefs.PreferredStructures.Accumulator(key)
	acc.Score += weight
	acc.Count++
	acc.Tags = append([]string(nil), tags...)
}

// updatePreferredStructures stores the record's output shape as an exemplar.
// Unparseable output is summarized as {"raw": text}.
func (u *Updater) updatePreferredStructures(prefs *feedback.UserPreferences, record feedback.Record) {
	value, err := jsonvalue.Parse(record.GeneratedJSON)
	if err != nil {
		u.logger.Debug("storing raw exemplar for malformed output",
			zap.String("id", record.ID), zap.Error(err))
		value = jsonvalue.NewObject(jsonvalue.Field{Key: "raw", Value: jsonvalue.NewString(record.GeneratedJSON)})
	}

	key := feedback.StructureKey(record.Schema)
	ps := &prefs.PreferredStructures
	if ps.Exemplars == nil {
		ps.Exemplars = make(map[string][]feedback.Exemplar)
	}

	list := append(ps.Exemplars[key], feedback.Exemplar{
		Structure: structure.Analyze(value, 0),
		Rating:    record.Rating,
		Timestamp: record.Timestamp,
		Tags:      append([]string(nil), record.Tags...),
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Rating > list[j].Rating
	})
	if len(list) > u.params.MaxExemplars {
		list = list[:u.params.MaxExemplars]
	}
	ps.Exemplars[key] = list
}
