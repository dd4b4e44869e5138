// Package seed holds the historical dive log used when no saved collection
// exists, and the CSV parser that reads it.
package seed

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"ScubaLog/models"
)

//go:embed dives.csv
var divesCSV string

// Column order: Date,Location,Site,Depth (m),Duration (min),Water temp,Rating,Notes
const (
	colDate = iota
	colLocation
	colSite
	colDepth
	colDuration
	colWaterTemp
	colRating
	colNotes
)

var (
	once   sync.Once
	parsed []models.Dive
)

// Dives returns a fresh copy of the built-in seed collection.
func Dives() []models.Dive {
	once.Do(func() {
		dives, err := Parse(strings.NewReader(divesCSV))
		if err != nil {
			panic(fmt.Sprintf("seed: embedded dive log is invalid: %v", err))
		}
		parsed = dives
	})

	out := make([]models.Dive, len(parsed))
	for i, d := range parsed {
		out[i] = d.Clone()
	}
	return out
}

// Parse reads a dive log CSV with a header row. Row n after the header gets
// id "preload-n" and dive number n. Rows with fewer than two columns are
// skipped.
func Parse(r io.Reader) ([]models.Dive, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []models.Dive{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	dives := []models.Dive{}
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		if len(rec) < 2 {
			continue
		}

		d, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		d.Id = "preload-" + strconv.Itoa(n)
		d.DiveNumber = n
		dives = append(dives, d)
	}
	return dives, nil
}

func parseRow(rec []string) (models.Dive, error) {
	col := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	date, err := models.ParseDate(col(colDate))
	if err != nil {
		return models.Dive{}, err
	}

	d := models.Dive{
		Date:     date,
		Location: col(colLocation),
		Site:     col(colSite),
		MaxDepth: parseFloat(col(colDepth)),
		Duration: int(parseFloat(col(colDuration))),
		Notes:    col(colNotes),
		Rating:   models.DefaultRating,
	}

	if t := strings.TrimSpace(strings.TrimSuffix(col(colWaterTemp), "ºC")); t != "" && t != "-" {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			d.WaterTemp = &v
		}
	}
	if r, err := strconv.Atoi(col(colRating)); err == nil && r >= 1 && r <= 5 {
		d.Rating = r
	}
	return d, nil
}

// parseFloat returns 0 for anything that is not a number.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
