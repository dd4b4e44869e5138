package models

import "strings"

// Diver is the owner of the logbook.
type Diver struct {
	Name string `json:"name" yaml:"name"`
}

// LogTitle is the heading shown above the dive list.
func (d Diver) LogTitle() string {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return "Dive Log"
	}
	return name + "'s Log"
}
