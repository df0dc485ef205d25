package playback

import (
	"sort"

	"streamq/internal/api"
)

// Tier classifies how often a second has been watched relative to the most
// watched second of the item.
type Tier int

const (
	TierNone Tier = iota
	TierMid
	TierHigh
)

// TierFor maps one second's view count to a tier. Counts at or below one
// never tier, and an item whose hottest second is one view has no signal at
// all. The thresholds are ratios of the max: above 0.7 is high, above 0.35
// is mid.
func TierFor(count, maxCount int) Tier {
	if maxCount <= 1 || count <= 1 {
		return TierNone
	}
	ratio := float64(count) / float64(maxCount)
	switch {
	case ratio > 0.7:
		return TierHigh
	case ratio > 0.35:
		return TierMid
	default:
		return TierNone
	}
}

// Segment is one tiered second of an item's heatmap.
type Segment struct {
	Second int
	Tier   Tier
}

// Segments returns the tiered seconds of a heatmap in ascending order,
// dropping untiered seconds.
func Segments(heat api.Heatmap) []Segment {
	maxCount := 0
	for _, count := range heat {
		if count > maxCount {
			maxCount = count
		}
	}
	var out []Segment
	for second, count := range heat {
		if tier := TierFor(count, maxCount); tier != TierNone {
			out = append(out, Segment{Second: second, Tier: tier})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Second < out[j].Second })
	return out
}
