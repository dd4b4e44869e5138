package logbook

import (
	"math"
	"sort"

	"ScubaLog/models"
)

// ComputeStats aggregates dives. Locations are ordered by dive count,
// most first, then by name.
func ComputeStats(dives []models.Dive) models.Stats {
	s := models.Stats{
		TotalDives: len(dives),
		Locations:  []models.LocationCount{},
	}
	if len(dives) == 0 {
		return s
	}

	counts := map[string]int{}
	var depthSum float64
	for _, d := range dives {
		s.TotalMinutes += d.Duration
		depthSum += d.MaxDepth
		if d.MaxDepth > s.MaxDepth {
			s.MaxDepth = d.MaxDepth
		}
		if d.Duration > s.LongestDive {
			s.LongestDive = d.Duration
		}
		counts[d.Location]++
	}

	s.HoursUnderwater = round1(float64(s.TotalMinutes) / 60)
	s.AverageDepth = round1(depthSum / float64(len(dives)))

	for loc, n := range counts {
		s.Locations = append(s.Locations, models.LocationCount{Location: loc, Dives: n})
	}
	sort.Slice(s.Locations, func(i, j int) bool {
		a, b := s.Locations[i], s.Locations[j]
		if a.Dives != b.Dives {
			return a.Dives > b.Dives
		}
		return a.Location < b.Location
	})
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
