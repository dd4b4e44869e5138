package models

// LocationCount is the number of dives logged at one location.
type LocationCount struct {
	Location string `json:"location"`
	Dives    int    `json:"dives"`
}

// Stats aggregates a collection of dives.
type Stats struct {
	TotalDives      int             `json:"totalDives"`
	TotalMinutes    int             `json:"totalMinutes"`
	HoursUnderwater float64         `json:"hoursUnderwater"`
	MaxDepth        float64         `json:"maxDepth"`
	AverageDepth    float64         `json:"averageDepth"`
	LongestDive     int             `json:"longestDive"`
	Locations       []LocationCount `json:"locations"`
}
