package registry

import (
	"fmt"
	"net/url"
	"strings"
)

// Entry describes one supported upstream platform.
type Entry struct {
	ID          string `yaml:"id" json:"id"`
	BaseURL     string `yaml:"base_url" json:"base_url"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Hostname returns the lowercased hostname of the entry's base URL.
func (e Entry) Hostname() (string, error) {
	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", e.BaseURL, err)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("base url %q has no hostname", e.BaseURL)
	}
	return strings.ToLower(hostname), nil
}

// Registry is an immutable, ordered set of platform entries. Entry order is
// the order they appeared in the source document; the matcher's tie-breaks
// depend on it, so it is preserved.
type Registry struct {
	entries []Entry
	byID    map[string]int
}

// New builds a registry from a list of entries. Identifiers must be unique
// and non-empty, and the list must not be empty. Entries whose base URL does
// not parse are kept: the matcher skips them at match time, so one bad entry
// degrades coverage without taking down the whole registry.
func New(entries []Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("registry must contain at least one platform")
	}

	byID := make(map[string]int, len(entries))
	for i, entry := range entries {
		if entry.ID == "" {
			return nil, fmt.Errorf("platforms[%d]: id cannot be empty", i)
		}
		if entry.BaseURL == "" {
			return nil, fmt.Errorf("platforms[%d](%s): base_url cannot be empty", i, entry.ID)
		}
		if prev, ok := byID[entry.ID]; ok {
			return nil, fmt.Errorf("platforms[%d](%s): duplicate id, first defined at platforms[%d]", i, entry.ID, prev)
		}
		byID[entry.ID] = i
	}

	reg := &Registry{
		entries: make([]Entry, len(entries)),
		byID:    byID,
	}
	copy(reg.entries, entries)

	return reg, nil
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns the entries in source order. The returned slice is a copy.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Lookup returns the entry for an identifier.
func (r *Registry) Lookup(id string) (Entry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// specialHostnames are resolved by the matcher's hard-coded routing, so
// colliding entries for them are expected rather than a misconfiguration.
var specialHostnames = map[string]bool{
	"ghcr.io":    true,
	"github.com": true,
}

// CheckCollisions reports pairs of entries whose base URL hostnames are
// equal but whose identifiers differ, outside the special-cased hostnames.
// Such collisions are a configuration error: which entry wins for that
// hostname silently depends on source order.
func (r *Registry) CheckCollisions() error {
	seen := make(map[string]Entry, len(r.entries))

	for _, entry := range r.entries {
		hostname, err := entry.Hostname()
		if err != nil {
			continue
		}
		if specialHostnames[hostname] {
			continue
		}
		if prev, ok := seen[hostname]; ok && prev.ID != entry.ID {
			return fmt.Errorf("platforms %q and %q share hostname %q; matching for it depends on source order",
				prev.ID, entry.ID, hostname)
		}
		seen[hostname] = entry
	}

	return nil
}
