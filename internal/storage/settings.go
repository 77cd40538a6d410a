package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidImage = errors.New("confirmation image must be a data URI")

// Template returns the invitation message template
func (s *Store) Template() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the template is seeded together with the guests
	if _, err := s.loadGuests(); err != nil {
		return "", err
	}
	tmpl, ok, err := s.backend.Get(TemplateKey)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	if !ok || tmpl == "" {
		return DefaultTemplate, nil
	}
	return tmpl, nil
}

func (s *Store) SetTemplate(tmpl string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.backend.Set(TemplateKey, tmpl)
}

// ConfirmationImage returns the data URI shown after a guest confirms, or ""
func (s *Store) ConfirmationImage() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, _, err := s.backend.Get(ConfirmationImageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation image: %w", err)
	}
	return img, nil
}

// SetConfirmationImage stores a data URI; an empty string removes the image
func (s *Store) SetConfirmationImage(dataURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dataURI == "" {
		return s.backend.Remove(ConfirmationImageKey)
	}
	if !strings.HasPrefix(dataURI, "data:") {
		return ErrInvalidImage
	}
	return s.backend.Set(ConfirmationImageKey, dataURI)
}

// Groups returns the group labels in order
func (s *Store) Groups() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadGroups()
}

// SetGroups replaces the group list, dropping blanks and repeats
func (s *Store) SetGroups(groups []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, g := range groups {
		out = appendGroup(out, g)
	}
	return s.saveGroups(out)
}

// AddGroup appends a label and reports whether it was new
func (s *Store) AddGroup(group string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups()
	if err != nil {
		return false, err
	}
	updated := appendGroup(groups, group)
	if len(updated) == len(groups) {
		return false, nil
	}
	if err := s.saveGroups(updated); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveGroup drops a label. Guests keep their group text.
func (s *Store) RemoveGroup(group string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups()
	if err != nil {
		return false, err
	}
	group = strings.TrimSpace(group)
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if g != group {
			out = append(out, g)
		}
	}
	if len(out) == len(groups) {
		return false, nil
	}
	if err := s.saveGroups(out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) loadGroups() ([]string, error) {
	data, ok, err := s.backend.Get(GroupsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read groups: %w", err)
	}
	if !ok {
		return DefaultGroups(), nil
	}
	var groups []string
	if err := json.Unmarshal([]byte(data), &groups); err != nil {
		return nil, fmt.Errorf("failed to unmarshal groups: %w", err)
	}
	return groups, nil
}

func (s *Store) saveGroups(groups []string) error {
	if groups == nil {
		groups = []string{}
	}
	data, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("failed to marshal groups: %w", err)
	}
	return s.backend.Set(GroupsKey, string(data))
}

func appendGroup(groups []string, group string) []string {
	group = strings.TrimSpace(group)
	if group == "" {
		return groups
	}
	for _, g := range groups {
		if g == group {
			return groups
		}
	}
	return append(groups, group)
}
