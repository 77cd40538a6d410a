package models

import (
	"bytes"
	"fmt"
	"strings"
)

// Guest represents an invited guest and their RSVP state
type Guest struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Group          string     `json:"group"`
	Attending      Attendance `json:"attending"`
	NumberOfGuests int        `json:"numberOfGuests"`
	Answered       bool       `json:"answered"`
}

// Attendance is the RSVP answer of a guest
type Attendance int

const (
	NoResponse Attendance = iota
	Attending
	NotAttending
)

func (a Attendance) String() string {
	switch a {
	case Attending:
		return "attending"
	case NotAttending:
		return "notAttending"
	default:
		return "notAnswered"
	}
}

// ParseAttendance accepts the names returned by String.
func ParseAttendance(s string) (Attendance, error) {
	switch s {
	case "attending":
		return Attending, nil
	case "notAttending":
		return NotAttending, nil
	case "notAnswered", "":
		return NoResponse, nil
	}
	return NoResponse, fmt.Errorf("unknown attendance %q", s)
}

// MarshalJSON stores the answer as true, false or null.
func (a Attendance) MarshalJSON() ([]byte, error) {
	switch a {
	case Attending:
		return []byte("true"), nil
	case NotAttending:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (a *Attendance) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*a = Attending
	case "false":
		*a = NotAttending
	case "null":
		*a = NoResponse
	default:
		return fmt.Errorf("invalid attendance value %s", data)
	}
	return nil
}

// Normalize re-establishes the RSVP invariants after a write:
// declined guests bring nobody and answered follows the attendance state.
func (g *Guest) Normalize() {
	switch g.Attending {
	case NotAttending:
		g.NumberOfGuests = 0
	case Attending:
		if g.NumberOfGuests <= 0 {
			g.NumberOfGuests = 1
		}
	default:
		if g.NumberOfGuests < 0 {
			g.NumberOfGuests = 0
		}
	}
	g.Answered = g.Attending != NoResponse
}

// ResetRSVP clears the answer, as for a freshly invited guest
func (g *Guest) ResetRSVP() {
	g.Attending = NoResponse
	g.NumberOfGuests = 1
	g.Answered = false
}

// PhoneKey reduces a phone number to its digits so that differently
// formatted numbers compare equal. Returns "" when there are no digits.
func PhoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
