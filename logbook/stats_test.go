package logbook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ScubaLog/models"
)

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil)
	assert.Equal(t, 0, s.TotalDives)
	assert.Equal(t, 0.0, s.MaxDepth)
	assert.Equal(t, 0.0, s.HoursUnderwater)
	assert.Empty(t, s.Locations)
	assert.NotNil(t, s.Locations)
}

func TestComputeStats(t *testing.T) {
	dives := []models.Dive{
		{Location: "Fiji", Duration: 44, MaxDepth: 23},
		{Location: "Sydney", Duration: 32, MaxDepth: 5},
		{Location: "Sydney", Duration: 61, MaxDepth: 13.5},
		{Location: "Bali", Duration: 50, MaxDepth: 18},
	}

	s := ComputeStats(dives)
	assert.Equal(t, 4, s.TotalDives)
	assert.Equal(t, 187, s.TotalMinutes)
	assert.Equal(t, 3.1, s.HoursUnderwater)
	assert.Equal(t, 23.0, s.MaxDepth)
	assert.Equal(t, 61, s.LongestDive)
	assert.Equal(t, 14.9, s.AverageDepth)
	assert.Equal(t, []models.LocationCount{
		{Location: "Sydney", Dives: 2},
		{Location: "Bali", Dives: 1},
		{Location: "Fiji", Dives: 1},
	}, s.Locations)
}
