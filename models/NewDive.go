package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultRating is applied when a new dive is submitted without a rating.
const DefaultRating = 3

// NewDive is the request body for logging a dive. Tags use gin's "binding"
// key so the same rules apply to HTTP binding and to Validate.
type NewDive struct {
	Date       string   `json:"date" binding:"required,datetime=2006-01-02"`
	Location   string   `json:"location" binding:"required"`
	Site       string   `json:"site" binding:"required"`
	Duration   int      `json:"duration" binding:"gte=0"`
	MaxDepth   float64  `json:"maxDepth" binding:"gte=0"`
	Visibility *string  `json:"visibility"`
	WaterTemp  *float64 `json:"waterTemp"`
	Notes      string   `json:"notes"`
	Rating     *int     `json:"rating" binding:"omitempty,min=1,max=5"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// Validate checks required fields and ranges.
func (n NewDive) Validate() error {
	n.Location = strings.TrimSpace(n.Location)
	n.Site = strings.TrimSpace(n.Site)
	return validate.Struct(n)
}

// ToDive converts a validated request into a Dive. Id and DiveNumber are
// left for the logbook to assign.
func (n NewDive) ToDive() (Dive, error) {
	date, err := ParseDate(n.Date)
	if err != nil {
		return Dive{}, err
	}

	rating := DefaultRating
	if n.Rating != nil {
		rating = *n.Rating
	}

	d := Dive{
		Date:       date,
		Location:   strings.TrimSpace(n.Location),
		Site:       strings.TrimSpace(n.Site),
		Duration:   n.Duration,
		MaxDepth:   n.MaxDepth,
		Visibility: n.Visibility,
		WaterTemp:  n.WaterTemp,
		Notes:      strings.TrimSpace(n.Notes),
		Rating:     rating,
	}
	if d.Visibility != nil && strings.TrimSpace(*d.Visibility) == "" {
		d.Visibility = nil
	}
	return d.Clone(), nil
}
