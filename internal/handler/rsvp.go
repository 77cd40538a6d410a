package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"henna-rsvp/internal/invite"
	"henna-rsvp/internal/models"
	"henna-rsvp/internal/storage"
	"henna-rsvp/internal/whatsapp"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"
)

// Sender delivers a text message to a phone number
type Sender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

type RSVPHandler struct {
	sender  Sender
	storage *storage.Store
	config  *Config
	log     zerolog.Logger
}

type Config struct {
	// BaseURL prefixes personal RSVP links.
	BaseURL string
	// MaxPartySize caps the party size a guest can announce in a reply.
	MaxPartySize int
}

// NewRSVPHandler creates a new RSVP handler
func NewRSVPHandler(sender Sender, store *storage.Store, cfg *Config, log zerolog.Logger) *RSVPHandler {
	if cfg.MaxPartySize <= 0 {
		cfg.MaxPartySize = 5
	}
	return &RSVPHandler{
		sender:  sender,
		storage: store,
		config:  cfg,
		log:     log.With().Str("component", "RSVP").Logger(),
	}
}

// HandleMessage processes incoming WhatsApp messages for RSVP responses
func (h *RSVPHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil {
		return nil
	}

	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return nil
	}

	return h.HandleReply(context.Background(), whatsapp.SenderPhone(msg.Info.Sender), text)
}

// HandleReply records the answer in a reply from phoneNumber and sends a
// confirmation back. Messages from unknown numbers and messages that are not
// a clear yes or no are ignored.
func (h *RSVPHandler) HandleReply(ctx context.Context, phoneNumber, text string) error {
	guest, err := h.storage.FindByPhone(phoneNumber, internationalKey)
	if errors.Is(err, storage.ErrGuestNotFound) {
		// Not an invited guest - ignore
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up guest: %w", err)
	}

	attending, count, ok := ParseReply(text)
	if !ok {
		return nil
	}
	if attending == models.Attending {
		if count == 0 {
			count = guest.NumberOfGuests
		}
		if count > h.config.MaxPartySize {
			count = h.config.MaxPartySize
		}
	}

	applied, err := h.storage.SetAttendance(guest.ID, attending, count)
	if err != nil {
		return fmt.Errorf("failed to update RSVP: %w", err)
	}
	if !applied {
		h.log.Debug().Str("guest", guest.ID).Msg("Guest removed before the reply was recorded")
		return nil
	}
	updated, err := h.storage.GetGuest(guest.ID)
	if err != nil {
		return fmt.Errorf("failed to reload guest: %w", err)
	}

	h.log.Info().
		Str("guest", guest.ID).
		Str("attending", attending.String()).
		Int("numberOfGuests", updated.NumberOfGuests).
		Msg("RSVP received over WhatsApp")

	if err := h.sender.SendMessage(ctx, phoneNumber, confirmationMessage(updated)); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	return nil
}

// SendInvitation renders the stored template for a guest and sends it
func (h *RSVPHandler) SendInvitation(ctx context.Context, guestID string) error {
	guest, err := h.storage.GetGuest(guestID)
	if err != nil {
		return fmt.Errorf("failed to get guest: %w", err)
	}
	if models.PhoneKey(guest.Phone) == "" {
		return fmt.Errorf("guest %s has no phone number", guest.ID)
	}

	tmpl, err := h.storage.Template()
	if err != nil {
		return fmt.Errorf("failed to get template: %w", err)
	}

	message := invite.RenderMessage(tmpl, guest, h.config.BaseURL)
	if err := h.sender.SendMessage(ctx, guest.Phone, message); err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}

	h.log.Info().Str("guest", guest.ID).Msg("Invitation sent")
	return nil
}

// internationalKey compares phones in 972 form so that a WhatsApp sender
// matches a locally written number.
func internationalKey(phone string) string {
	return whatsapp.NormalizePhoneNumber(models.PhoneKey(phone))
}

var (
	declinePhrases = []string{"not coming", "can't come", "cannot come", "won't come", "can't make it", "decline", "nope", "לא מגיע", "לא מגיעה", "לא מגיעים", "לא נגיע", "לא אגיע", "לא נוכל", "לא אוכל"}
	acceptKeywords = []string{"yes", "yep", "yeah", "accept", "attending", "coming", "will come", "will be there", "כן", "מגיע", "מגיעה", "מגיעים", "נגיע", "אגיע"}
	// bare negations only count when nothing in the reply accepts
	negations = []string{"no", "לא"}
)

// ParseReply classifies a free text reply. Explicit decline phrases win,
// then acceptances, then a bare "no". For acceptances, the first number in
// the text is the party size (0 when absent).
func ParseReply(text string) (attending models.Attendance, count int, ok bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) && r != '\''
	})
	phrase := " " + strings.Join(words, " ") + " "

	switch {
	case containsAny(phrase, declinePhrases...) || strings.Contains(text, "❌"):
		return models.NotAttending, 0, true
	case containsAny(phrase, acceptKeywords...) || strings.Contains(text, "✅"):
		return models.Attending, firstNumber(words), true
	case containsAny(phrase, negations...):
		return models.NotAttending, 0, true
	}
	return models.NoResponse, 0, false
}

// containsAny checks if the phrase contains any of the keywords as whole words
func containsAny(phrase string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(phrase, " "+keyword+" ") {
			return true
		}
	}
	return false
}

func firstNumber(words []string) int {
	for _, w := range words {
		if n, err := strconv.Atoi(w); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func confirmationMessage(g models.Guest) string {
	if g.Attending == models.Attending {
		return fmt.Sprintf("תודה %s! אישרת הגעה של %d אורחים. נתראה בחינה! 💕", g.Name, g.NumberOfGuests)
	}
	return fmt.Sprintf("תודה %s על העדכון. חבל שלא תוכל/י להגיע 💕", g.Name)
}
