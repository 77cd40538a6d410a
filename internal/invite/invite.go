// Package invite renders invitation messages and WhatsApp share links.
package invite

import (
	"net/url"
	"strings"
	"unicode"

	"henna-rsvp/internal/models"
)

// Template placeholders
const (
	NamePlaceholder = "[שם]"
	LinkPlaceholder = "[לינק אישי]"
)

// ContactBaseURL is the WhatsApp click-to-chat endpoint
const ContactBaseURL = "https://api.whatsapp.com/send"

// PersonalLink is the RSVP page of a guest
func PersonalLink(baseURL, guestID string) string {
	return strings.TrimRight(baseURL, "/") + "/rsvp/" + guestID
}

// RenderMessage fills the first occurrence of each placeholder in tmpl with
// the guest's name and personal link. Later occurrences are left as is.
func RenderMessage(tmpl string, guest models.Guest, baseURL string) string {
	msg := strings.Replace(tmpl, NamePlaceholder, guest.Name, 1)
	return strings.Replace(msg, LinkPlaceholder, PersonalLink(baseURL, guest.ID), 1)
}

// FormatPhone removes dashes, whitespace and parentheses
func FormatPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '(' || r == ')' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// BuildContactLink returns a click-to-chat URL that opens a chat with the
// guest, prefilled with message.
func BuildContactLink(guest models.Guest, message string) string {
	return ContactBaseURL + "?phone=" + encodeComponent(FormatPhone(guest.Phone)) + "&text=" + encodeComponent(message)
}

// encodeComponent percent-encodes s for use inside a query value, writing
// spaces as %20 rather than +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
