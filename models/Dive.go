package models

import (
	"math"

	"github.com/goccy/go-json"
)

// Dive is one logged dive. Field names match the persisted JSON format.
type Dive struct {
	Id         string   `json:"id"`
	DiveNumber int      `json:"diveNumber"`
	Date       Date     `json:"date"`
	Location   string   `json:"location"`
	Site       string   `json:"site"`
	Duration   int      `json:"duration"`
	MaxDepth   float64  `json:"maxDepth"`
	Visibility *string  `json:"visibility,omitempty"`
	WaterTemp  *float64 `json:"waterTemp,omitempty"`
	Notes      string   `json:"notes"`
	Rating     int      `json:"rating"`
}

// Clone returns a copy of d that shares no pointers with it.
func (d Dive) Clone() Dive {
	if d.Visibility != nil {
		v := *d.Visibility
		d.Visibility = &v
	}
	if d.WaterTemp != nil {
		t := *d.WaterTemp
		d.WaterTemp = &t
	}
	return d
}

// diveJSON is the decoding shape of Dive. Older saves may hold a fractional
// duration.
type diveJSON struct {
	Id         string   `json:"id"`
	DiveNumber int      `json:"diveNumber"`
	Date       Date     `json:"date"`
	Location   string   `json:"location"`
	Site       string   `json:"site"`
	Duration   float64  `json:"duration"`
	MaxDepth   float64  `json:"maxDepth"`
	Visibility *string  `json:"visibility,omitempty"`
	WaterTemp  *float64 `json:"waterTemp,omitempty"`
	Notes      string   `json:"notes"`
	Rating     int      `json:"rating"`
}

// UnmarshalJSON decodes a dive, rounding duration to whole minutes.
func (d *Dive) UnmarshalJSON(b []byte) error {
	var w diveJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Dive{
		Id:         w.Id,
		DiveNumber: w.DiveNumber,
		Date:       w.Date,
		Location:   w.Location,
		Site:       w.Site,
		Duration:   int(math.Round(w.Duration)),
		MaxDepth:   w.MaxDepth,
		Visibility: w.Visibility,
		WaterTemp:  w.WaterTemp,
		Notes:      w.Notes,
		Rating:     w.Rating,
	}
	return nil
}
