package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"henna-rsvp/internal/kv"
	"henna-rsvp/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Persisted keys
const (
	GuestsKey            = "henna-guests"
	TemplateKey          = "henna-whatsapp-message"
	ConfirmationImageKey = "henna-confirmation-image"
	GroupsKey            = "henna-groups"
)

// DefaultTemplate is used until the administrator saves a template
const DefaultTemplate = "היי [שם], נשמח לראות אותך באירוע החינה שלנו! אנא אשר/י הגעה כאן: [לינק אישי]"

var ErrGuestNotFound = errors.New("guest not found")

// DefaultGroups seeds the group list
func DefaultGroups() []string {
	return []string{"משפחה", "חברים", "עבודה"}
}

// SeedGuests are written on first access to an empty store
func SeedGuests() []models.Guest {
	return []models.Guest{
		{ID: "guest1", Name: "דניאל כהן", Phone: "052-1234567", Group: "משפחה", NumberOfGuests: 2},
		{ID: "guest2", Name: "מיכל לוי", Phone: "054-7654321", Group: "חברים", NumberOfGuests: 1},
		{ID: "guest3", Name: "יעקב ישראלי", Phone: "050-1122334", Group: "עבודה", NumberOfGuests: 2},
	}
}

// Store is the guest list and settings of the event. Each write serializes
// the whole guest collection into a single key.
type Store struct {
	mu      sync.Mutex
	backend kv.Backend
	log     zerolog.Logger
	newID   func() (string, error)
}

type Option func(*Store)

// WithLogger sets the logger; the default discards everything
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log.With().Str("component", "Storage").Logger()
	}
}

// WithIDGenerator replaces the nanoid based id generator
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates a store over backend
func New(backend kv.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     zerolog.Nop(),
		newID:   newGuestID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newGuestID() (string, error) {
	id, err := gonanoid.New(16)
	if err != nil {
		return "", err
	}
	return "guest" + id, nil
}

// ListGuests returns all guests in insertion order
func (s *Store) ListGuests() ([]models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadGuests()
}

// GetGuest retrieves a guest by id
func (s *Store) GetGuest(id string) (models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests, err := s.loadGuests()
	if err != nil {
		return models.Guest{}, err
	}
	if i := indexOf(guests, id); i >= 0 {
		return guests[i], nil
	}
	return models.Guest{}, ErrGuestNotFound
}

// FindByPhone retrieves the last guest whose phone has the same key as
// phone. key defaults to models.PhoneKey; phones with an empty key never
// match.
func (s *Store) FindByPhone(phone string, key func(string) string) (models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == nil {
		key = models.PhoneKey
	}
	want := key(phone)
	if want == "" {
		return models.Guest{}, ErrGuestNotFound
	}
	guests, err := s.loadGuests()
	if err != nil {
		return models.Guest{}, err
	}
	for i := len(guests) - 1; i >= 0; i-- {
		if key(guests[i].Phone) == want {
			return guests[i], nil
		}
	}
	return models.Guest{}, ErrGuestNotFound
}

// FilterGuests returns the guests matching f, in insertion order
func (s *Store) FilterGuests(f models.Filter) ([]models.Guest, error) {
	guests, err := s.ListGuests()
	if err != nil {
		return nil, err
	}
	result := make([]models.Guest, 0, len(guests))
	for _, g := range guests {
		if f.Match(g) {
			result = append(result, g)
		}
	}
	return result, nil
}

// Stats counts answers over the whole guest list
func (s *Store) Stats() (models.Stats, error) {
	guests, err := s.ListGuests()
	if err != nil {
		return models.Stats{}, err
	}
	return models.ComputeStats(guests), nil
}

// AddGuest stores guest under a fresh id and returns the stored copy.
// Any id set on guest is ignored.
func (s *Store) AddGuest(guest models.Guest) (models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests, err := s.loadGuests()
	if err != nil {
		return models.Guest{}, err
	}

	id, err := s.uniqueID(idSet(guests))
	if err != nil {
		return models.Guest{}, err
	}
	guest.ID = id
	guest.Normalize()

	guests = append(guests, guest)
	if err := s.saveGuests(guests); err != nil {
		return models.Guest{}, err
	}

	s.log.Debug().Str("id", guest.ID).Str("name", guest.Name).Msg("Guest added")
	return guest, nil
}

// UpdateGuest replaces the guest with the same id. It reports false, and
// writes nothing, when no such guest exists.
func (s *Store) UpdateGuest(guest models.Guest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests, err := s.loadGuests()
	if err != nil {
		return false, err
	}
	i := indexOf(guests, guest.ID)
	if i < 0 {
		s.log.Debug().Str("id", guest.ID).Msg("Update ignored, guest not found")
		return false, nil
	}

	guest.Normalize()
	guests[i] = guest
	if err := s.saveGuests(guests); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteGuest removes a guest. Deleting an unknown id is a no-op that
// reports false.
func (s *Store) DeleteGuest(id string) (bool, error) {
	n, err := s.DeleteGuests([]string{id})
	return n > 0, err
}

// DeleteGuests removes every listed guest with one write and returns how
// many were removed.
func (s *Store) DeleteGuests(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests, err := s.loadGuests()
	if err != nil {
		return 0, err
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := guests[:0:0]
	for _, g := range guests {
		if _, ok := drop[g.ID]; !ok {
			kept = append(kept, g)
		}
	}

	removed := len(guests) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.saveGuests(kept); err != nil {
		return 0, err
	}

	s.log.Debug().Int("count", removed).Msg("Guests deleted")
	return removed, nil
}

// SetAttendance records a guest's answer. numberOfGuests only matters for
// Attending, where a non-positive value means 1: an attending party of 0
// cannot be stored. Reports false for an unknown id.
func (s *Store) SetAttendance(id string, attending models.Attendance, numberOfGuests int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests, err := s.loadGuests()
	if err != nil {
		return false, err
	}
	i := indexOf(guests, id)
	if i < 0 {
		return false, nil
	}

	guests[i].Attending = attending
	guests[i].NumberOfGuests = numberOfGuests
	guests[i].Normalize()
	if err := s.saveGuests(guests); err != nil {
		return false, err
	}

	s.log.Info().
		Str("id", id).
		Str("attending", attending.String()).
		Int("numberOfGuests", guests[i].NumberOfGuests).
		Msg("Attendance updated")
	return true, nil
}

// ReplaceAllGuests overwrites the guest collection with one write
func (s *Store) ReplaceAllGuests(guests []models.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Guest, len(guests))
	copy(out, guests)
	for i := range out {
		out[i].Normalize()
	}
	if err := s.dedupeIDs(out); err != nil {
		return err
	}
	return s.saveGuests(out)
}

func (s *Store) loadGuests() ([]models.Guest, error) {
	data, ok, err := s.backend.Get(GuestsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read guests: %w", err)
	}
	if !ok {
		if err := s.seed(); err != nil {
			return nil, err
		}
		return SeedGuests(), nil
	}

	var guests []models.Guest
	if err := json.Unmarshal([]byte(data), &guests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guests: %w", err)
	}
	if guests == nil {
		guests = []models.Guest{}
	}
	return guests, nil
}

// seed writes the example guests and, unless one is stored, the default
// template
func (s *Store) seed() error {
	_, hasTemplate, err := s.backend.Get(TemplateKey)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	if err := s.saveGuests(SeedGuests()); err != nil {
		return err
	}
	if !hasTemplate {
		if err := s.backend.Set(TemplateKey, DefaultTemplate); err != nil {
			return err
		}
	}
	s.log.Info().Msg("Seeded example guests")
	return nil
}

func (s *Store) saveGuests(guests []models.Guest) error {
	if guests == nil {
		guests = []models.Guest{}
	}
	data, err := json.Marshal(guests)
	if err != nil {
		return fmt.Errorf("failed to marshal guests: %w", err)
	}
	if err := s.backend.Set(GuestsKey, string(data)); err != nil {
		s.log.Error().Err(err).Msg("Failed to save guests")
		return err
	}
	return nil
}

// uniqueID draws ids until one is not in taken
func (s *Store) uniqueID(taken map[string]struct{}) (string, error) {
	for {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}
		if _, dup := taken[id]; !dup {
			return id, nil
		}
	}
}

// dedupeIDs gives a fresh id to every guest whose id is empty or already
// used by an earlier guest.
func (s *Store) dedupeIDs(guests []models.Guest) error {
	taken := idSet(guests)
	seen := make(map[string]struct{}, len(guests))
	for i := range guests {
		if _, dup := seen[guests[i].ID]; dup || guests[i].ID == "" {
			id, err := s.uniqueID(taken)
			if err != nil {
				return err
			}
			s.log.Warn().Str("old", guests[i].ID).Str("new", id).Msg("Reassigned duplicate guest id")
			guests[i].ID = id
			taken[id] = struct{}{}
		}
		seen[guests[i].ID] = struct{}{}
	}
	return nil
}

func idSet(guests []models.Guest) map[string]struct{} {
	ids := make(map[string]struct{}, len(guests))
	for _, g := range guests {
		ids[g.ID] = struct{}{}
	}
	return ids
}

func indexOf(guests []models.Guest, id string) int {
	for i, g := range guests {
		if g.ID == id {
			return i
		}
	}
	return -1
}
