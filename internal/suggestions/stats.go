package suggestions

import "math"

// Stats summarizes a suggestion list for display.
type Stats struct {
	Total             int              `json:"total"`
	ByType            map[Type]int     `json:"byType"`
	ByPriority        map[Priority]int `json:"byPriority"`
	AverageConfidence float64          `json:"averageConfidence"`
}

// ComputeStats counts items by type and priority and averages their confidence,
// rounded to two decimals. An empty list averages to 0.
func ComputeStats(items []Suggestion) Stats {
	stats := Stats{
		Total:      len(items),
		ByType:     make(map[Type]int),
		ByPriority: make(map[Priority]int),
	}
	if len(items) == 0 {
		return stats
	}
	sum := 0
	for _, item := range items {
		stats.ByType[item.Type]++
		stats.ByPriority[item.Priority]++
		sum += item.Confidence
	}
	mean := float64(sum) / float64(len(items))
	stats.AverageConfidence = math.Round(mean*100) / 100
	return stats
}
