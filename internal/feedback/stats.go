package feedback

import "time"

// RecentWindow is the span covered by the recent trend.
const RecentWindow = 30 * 24 * time.Hour

// Stats summarizes the feedback log.
type Stats struct {
	TotalFeedback      int                `json:"totalFeedback"`
	AverageRating      float64            `json:"averageRating"`
	ThumbsUpPercentage float64            `json:"thumbsUpPercentage"`
	AspectAverages     map[Aspect]float64 `json:"aspectAverages"`
	TopTags            map[string]int     `json:"topTags"`
	RecentTrends       []Trend            `json:"recentTrends"`
}

// Trend is the mean rating over a recent period.
type Trend struct {
	Period        string  `json:"period"`
	AverageRating float64 `json:"averageRating"`
	Count         int     `json:"count"`
}

// Stats aggregates the in-memory log.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeStats(s.records, s.now())
}

func computeStats(records []Record, now time.Time) Stats {
	stats := Stats{
		TotalFeedback:  len(records),
		AspectAverages: make(map[Aspect]float64, len(Aspects)),
		TopTags:        make(map[string]int),
		RecentTrends:   []Trend{},
	}
	for _, a := range Aspects {
		stats.AspectAverages[a] = 0
	}

	if len(records) == 0 {
		return stats
	}

	n := float64(len(records))
	var ratingSum, thumbsUp int
	aspectSums := make(map[Aspect]int, len(Aspects))

	cutoff := now.Add(-RecentWindow).UnixMilli()
	var recentSum, recentCount int

	for _, r := range records {
		ratingSum += r.Rating
		if r.ThumbsUp {
			thumbsUp++
		}
		for _, a := range Aspects {
			aspectSums[a] += r.Aspects.Get(a)
		}
		for _, tag := range r.Tags {
			stats.TopTags[tag]++
		}
		if r.Timestamp > cutoff {
			recentSum += r.Rating
			recentCount++
		}
	}

	stats.AverageRating = float64(ratingSum) / n
	stats.ThumbsUpPercentage = float64(thumbsUp) / n * 100
	for _, a := range Aspects {
		stats.AspectAverages[a] = float64(aspectSums[a]) / n
	}

	if recentCount > 0 {
		stats.RecentTrends = append(stats.RecentTrends, Trend{
			Period:        "last30days",
			AverageRating: float64(recentSum) / float64(recentCount),
			Count:         recentCount,
		})
	}

	return stats
}
