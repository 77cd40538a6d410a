package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"henna-rsvp/internal/kv"
	"henna-rsvp/internal/models"
)

func newTestStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	return New(backend), backend
}

// emptyStore skips the example seed
func emptyStore(t *testing.T) *Store {
	t.Helper()
	s, _ := newTestStore(t)
	if err := s.ReplaceAllGuests(nil); err != nil {
		t.Fatalf("clear store: %v", err)
	}
	return s
}

func TestListGuestsSeedsEmptyStore(t *testing.T) {
	s, backend := newTestStore(t)

	guests, err := s.ListGuests()
	if err != nil {
		t.Fatalf("list guests: %v", err)
	}
	if len(guests) != 3 {
		t.Fatalf("expected 3 seeded guests, got %d", len(guests))
	}
	for _, g := range guests {
		if g.Attending != models.NoResponse || g.Answered {
			t.Fatalf("seeded guest %s already answered", g.ID)
		}
	}
	if _, ok, _ := backend.Get(GuestsKey); !ok {
		t.Fatal("expected seed to be persisted")
	}
	if tmpl, ok, _ := backend.Get(TemplateKey); !ok || tmpl != DefaultTemplate {
		t.Fatalf("expected default template seeded, got %q", tmpl)
	}

	again, err := s.ListGuests()
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(again) != 3 || again[0].ID != guests[0].ID {
		t.Fatalf("seed not stable across reads: %+v", again)
	}
}

func TestAddGuestAssignsDistinctIDs(t *testing.T) {
	s := emptyStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		g, err := s.AddGuest(models.Guest{ID: "ignored", Name: fmt.Sprintf("guest %d", i)})
		if err != nil {
			t.Fatalf("add guest %d: %v", i, err)
		}
		if g.ID == "" || g.ID == "ignored" {
			t.Fatalf("unexpected id %q", g.ID)
		}
		if seen[g.ID] {
			t.Fatalf("duplicate id %s", g.ID)
		}
		seen[g.ID] = true
	}

	guests, _ := s.ListGuests()
	if len(guests) != 50 {
		t.Fatalf("expected 50 guests, got %d", len(guests))
	}
	if guests[0].Name != "guest 0" || guests[49].Name != "guest 49" {
		t.Fatal("guests not in insertion order")
	}
}

func TestAddGuestRedrawsCollidingID(t *testing.T) {
	ids := []string{"g1", "g1", "g2"}
	s := New(kv.NewMemory(), WithIDGenerator(func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}))
	if err := s.ReplaceAllGuests([]models.Guest{}); err != nil {
		t.Fatalf("clear: %v", err)
	}

	first, err := s.AddGuest(models.Guest{Name: "a"})
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	second, err := s.AddGuest(models.Guest{Name: "b"})
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if first.ID != "g1" || second.ID != "g2" {
		t.Fatalf("got ids %s, %s", first.ID, second.ID)
	}
}

func TestAddGuestNormalizes(t *testing.T) {
	s := emptyStore(t)

	g, err := s.AddGuest(models.Guest{Name: "x", Attending: models.NotAttending, NumberOfGuests: 4})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if g.NumberOfGuests != 0 || !g.Answered {
		t.Fatalf("stored guest not normalized: %+v", g)
	}
}

func TestGetGuestNotFound(t *testing.T) {
	s := emptyStore(t)
	if _, err := s.GetGuest("nope"); !errors.Is(err, ErrGuestNotFound) {
		t.Fatalf("expected ErrGuestNotFound, got %v", err)
	}
}

func TestUpdateGuest(t *testing.T) {
	s := emptyStore(t)
	g, _ := s.AddGuest(models.Guest{Name: "Dana", Phone: "050"})

	g.Name = "Dana Levi"
	g.Group = "Friends"
	applied, err := s.UpdateGuest(g)
	if err != nil || !applied {
		t.Fatalf("update: applied=%v err=%v", applied, err)
	}
	got, _ := s.GetGuest(g.ID)
	if got.Name != "Dana Levi" || got.Group != "Friends" {
		t.Fatalf("update not stored: %+v", got)
	}

	applied, err = s.UpdateGuest(models.Guest{ID: "missing", Name: "ghost"})
	if err != nil || applied {
		t.Fatalf("update of unknown id: applied=%v err=%v", applied, err)
	}
	guests, _ := s.ListGuests()
	if len(guests) != 1 {
		t.Fatalf("unknown update created a guest: %d guests", len(guests))
	}
}

func TestDeleteGuestIsIdempotent(t *testing.T) {
	s := emptyStore(t)
	a, _ := s.AddGuest(models.Guest{Name: "a"})
	b, _ := s.AddGuest(models.Guest{Name: "b"})

	removed, err := s.DeleteGuest(a.ID)
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	if _, err := s.GetGuest(a.ID); !errors.Is(err, ErrGuestNotFound) {
		t.Fatalf("deleted guest still found: %v", err)
	}

	removed, err = s.DeleteGuest(a.ID)
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
	guests, _ := s.ListGuests()
	if len(guests) != 1 || guests[0].ID != b.ID {
		t.Fatalf("unexpected guests after delete: %+v", guests)
	}
}

func TestDeleteGuests(t *testing.T) {
	s := emptyStore(t)
	a, _ := s.AddGuest(models.Guest{Name: "a"})
	b, _ := s.AddGuest(models.Guest{Name: "b"})
	c, _ := s.AddGuest(models.Guest{Name: "c"})

	n, err := s.DeleteGuests([]string{a.ID, c.ID, "unknown"})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	guests, _ := s.ListGuests()
	if len(guests) != 1 || guests[0].ID != b.ID {
		t.Fatalf("unexpected guests after bulk delete: %+v", guests)
	}
}

func TestSetAttendance(t *testing.T) {
	s := emptyStore(t)
	g, _ := s.AddGuest(models.Guest{Name: "Dana"})

	cases := []struct {
		name       string
		attending  models.Attendance
		n          int
		wantCount  int
		wantAnswer bool
	}{
		{"attending with party", models.Attending, 4, 4, true},
		{"declined ignores count", models.NotAttending, 7, 0, true},
		{"attending defaults to one", models.Attending, 0, 1, true},
		{"reset", models.NoResponse, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			applied, err := s.SetAttendance(g.ID, tc.attending, tc.n)
			if err != nil || !applied {
				t.Fatalf("set attendance: applied=%v err=%v", applied, err)
			}
			got, _ := s.GetGuest(g.ID)
			if got.Attending != tc.attending {
				t.Fatalf("attending = %v, want %v", got.Attending, tc.attending)
			}
			if got.NumberOfGuests != tc.wantCount {
				t.Fatalf("numberOfGuests = %d, want %d", got.NumberOfGuests, tc.wantCount)
			}
			if got.Answered != tc.wantAnswer {
				t.Fatalf("answered = %v, want %v", got.Answered, tc.wantAnswer)
			}
		})
	}

	applied, err := s.SetAttendance("missing", models.Attending, 2)
	if err != nil || applied {
		t.Fatalf("unknown id: applied=%v err=%v", applied, err)
	}
}

func TestWriteFailureLeavesStoredState(t *testing.T) {
	s, backend := newTestStore(t)
	if err := s.ReplaceAllGuests(nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	g, _ := s.AddGuest(models.Guest{Name: "Dana"})

	backend.FailWrites = errors.New("quota exceeded")
	_, err := s.SetAttendance(g.ID, models.Attending, 3)
	var werr *kv.WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if _, err := s.AddGuest(models.Guest{Name: "other"}); !errors.As(err, &werr) {
		t.Fatalf("expected WriteError from add, got %v", err)
	}

	backend.FailWrites = nil
	guests, _ := s.ListGuests()
	if len(guests) != 1 || guests[0].Attending != models.NoResponse {
		t.Fatalf("failed writes changed state: %+v", guests)
	}
}

func TestFindByPhone(t *testing.T) {
	s := emptyStore(t)
	g, _ := s.AddGuest(models.Guest{Name: "Dana", Phone: "050-111-1111"})

	got, err := s.FindByPhone("(050) 1111111", nil)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != g.ID {
		t.Fatalf("found %s, want %s", got.ID, g.ID)
	}
	if _, err := s.FindByPhone("", nil); !errors.Is(err, ErrGuestNotFound) {
		t.Fatalf("empty phone: %v", err)
	}

	// strip a leading country code so local and international forms match
	local := func(phone string) string {
		key := models.PhoneKey(phone)
		if strings.HasPrefix(key, "972") {
			return "0" + key[3:]
		}
		return key
	}
	got, err = s.FindByPhone("+972-50-111-1111", local)
	if err != nil || got.ID != g.ID {
		t.Fatalf("find with custom key: %+v, %v", got, err)
	}
}

// failingGet fails reads of a single key
type failingGet struct {
	kv.Backend
	key string
	err error
}

func (f *failingGet) Get(key string) (string, bool, error) {
	if key == f.key {
		return "", false, f.err
	}
	return f.Backend.Get(key)
}

func TestSeedReportsTemplateReadError(t *testing.T) {
	readErr := errors.New("backend offline")
	s := New(&failingGet{Backend: kv.NewMemory(), key: TemplateKey, err: readErr})

	if _, err := s.ListGuests(); !errors.Is(err, readErr) {
		t.Fatalf("expected template read error, got %v", err)
	}
}

func TestFilterAndStats(t *testing.T) {
	s := emptyStore(t)
	a, _ := s.AddGuest(models.Guest{Name: "Dana", Group: "Friends"})
	b, _ := s.AddGuest(models.Guest{Name: "Avi", Group: "Family"})
	s.AddGuest(models.Guest{Name: "Noa", Group: "Friends"})
	s.SetAttendance(a.ID, models.Attending, 2)
	s.SetAttendance(b.ID, models.NotAttending, 0)

	status := models.Attending
	attending, err := s.FilterGuests(models.Filter{Status: &status})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(attending) != 1 || attending[0].ID != a.ID {
		t.Fatalf("unexpected attending filter result: %+v", attending)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := models.Stats{Total: 3, Attending: 1, NotAttending: 1, NotAnswered: 1, TotalGuests: 2}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestReplaceAllGuestsReassignsDuplicateIDs(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.ReplaceAllGuests([]models.Guest{
		{ID: "g1", Name: "a"},
		{ID: "g1", Name: "b"},
		{ID: "", Name: "c"},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	guests, _ := s.ListGuests()
	ids := map[string]bool{}
	for _, g := range guests {
		if g.ID == "" || ids[g.ID] {
			t.Fatalf("bad id %q in %+v", g.ID, guests)
		}
		ids[g.ID] = true
	}
	if guests[0].ID != "g1" {
		t.Fatalf("first guest should keep its id, got %s", guests[0].ID)
	}
}
