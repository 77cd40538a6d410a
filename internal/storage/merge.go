package storage

import (
	"strings"

	"henna-rsvp/internal/models"
)

// MergeImportedGuests reconciles an imported guest list with the stored one,
// matching records by phone.
//
// A matched record takes the imported id, name, phone and group and keeps
// the stored RSVP answer. Unmatched imported records start unanswered.
// Stored records whose phone is absent from the import are kept. The merged
// collection is written once and returned.
func (s *Store) MergeImportedGuests(imported []models.Guest) ([]models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadGuests()
	if err != nil {
		return nil, err
	}

	merged := mergeByPhone(current, imported)
	if err := s.dedupeIDs(merged); err != nil {
		return nil, err
	}
	if err := s.saveGuests(merged); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("imported", len(imported)).
		Int("before", len(current)).
		Int("after", len(merged)).
		Msg("Merged imported guests")
	return merged, nil
}

// mergeByPhone keeps lookup order: a phone keeps the position where it was
// first seen, later records for the same phone replace the value.
func mergeByPhone(current, imported []models.Guest) []models.Guest {
	type slot struct {
		guest models.Guest
	}
	var order []*slot
	byPhone := make(map[string]*slot, len(current)+len(imported))

	put := func(key string, g models.Guest) {
		if key == "" {
			order = append(order, &slot{guest: g})
			return
		}
		if sl, ok := byPhone[key]; ok {
			sl.guest = g
			return
		}
		sl := &slot{guest: g}
		byPhone[key] = sl
		order = append(order, sl)
	}

	for _, g := range current {
		put(mergeKey(g.Phone), g)
	}

	for _, in := range imported {
		key := mergeKey(in.Phone)
		g := in
		if sl, ok := byPhone[key]; ok && key != "" {
			g.Attending = sl.guest.Attending
			g.NumberOfGuests = sl.guest.NumberOfGuests
			g.Answered = sl.guest.Answered
		} else {
			g.ResetRSVP()
		}
		g.Normalize()
		put(key, g)
	}

	result := make([]models.Guest, len(order))
	for i, sl := range order {
		result[i] = sl.guest
	}
	return result
}

// mergeKey is the phone digits, or the trimmed text for a phone without
// digits such as "N/A". Only a blank phone yields "".
func mergeKey(phone string) string {
	if key := models.PhoneKey(phone); key != "" {
		return key
	}
	return strings.TrimSpace(phone)
}
