package models

import "strings"

// Stats summarizes the RSVP answers of a guest list
type Stats struct {
	Total        int `json:"total"`
	Attending    int `json:"attending"`
	NotAttending int `json:"notAttending"`
	NotAnswered  int `json:"notAnswered"`
	// TotalGuests is the expected head count of attending parties.
	TotalGuests int `json:"totalGuests"`
}

// ComputeStats counts answers over guests
func ComputeStats(guests []Guest) Stats {
	stats := Stats{Total: len(guests)}
	for _, g := range guests {
		switch g.Attending {
		case Attending:
			stats.Attending++
			stats.TotalGuests += g.NumberOfGuests
		case NotAttending:
			stats.NotAttending++
		default:
			stats.NotAnswered++
		}
	}
	return stats
}

// Filter selects guests for the list view. A nil Status matches every answer.
type Filter struct {
	Search string
	Status *Attendance
}

// Match reports whether g passes the filter. Search is a plain substring
// match against name, phone and group.
func (f Filter) Match(g Guest) bool {
	if f.Search != "" &&
		!strings.Contains(g.Name, f.Search) &&
		!strings.Contains(g.Phone, f.Search) &&
		!strings.Contains(g.Group, f.Search) {
		return false
	}
	if f.Status != nil && g.Attending != *f.Status {
		return false
	}
	return true
}
