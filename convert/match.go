package convert

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/codymoss/hopgate/logger"
	"github.com/codymoss/hopgate/registry"
	"github.com/codymoss/hopgate/urlutil"
)

// ErrInvalidURL is returned when a target URL is not a valid absolute URL.
var ErrInvalidURL = errors.New("invalid target url")

// Tier names the matching strategy that produced a match. Tiers are tried
// in a fixed priority order; the first hit wins.
type Tier string

const (
	// TierExact matches the target hostname against an entry hostname exactly.
	TierExact Tier = "exact"
	// TierSpecial is the hard-coded routing for ghcr.io and github.com.
	TierSpecial Tier = "special"
	// TierSubdomain matches the target as a subdomain of an entry hostname.
	TierSubdomain Tier = "subdomain"
	// TierBaseDomain compares the last two hostname labels of target and entry.
	TierBaseDomain Tier = "basedomain"
)

// Match is the outcome of platform detection.
type Match struct {
	ID      string
	BaseURL string
	Tier    Tier
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithPublicSuffix switches the base-domain tier from the last-two-labels
// heuristic to public-suffix-aware eTLD+1 comparison. Off by default: the
// heuristic misclassifies suffixes like .co.uk, but changing it changes
// which platforms match, so the upgrade is opt-in.
func WithPublicSuffix(enabled bool) MatcherOption {
	return func(m *Matcher) { m.publicSuffix = enabled }
}

// WithLogger sets the logger used for skipped-entry warnings.
func WithLogger(log logger.Logger) MatcherOption {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

// Matcher detects which registered platform a target URL belongs to. It is
// bound to one immutable registry snapshot and is safe for concurrent use.
type Matcher struct {
	entries      []registry.Entry
	hosts        []string // lowercased entry hostnames, "" where the base URL does not parse
	log          logger.Logger
	publicSuffix bool
	tiers        []matchTier
}

type matchTier struct {
	name Tier
	fn   func(*url.URL) *Match
}

// NewMatcher creates a matcher over a registry snapshot. Entries whose base
// URL does not parse are warned about once and skipped during matching.
func NewMatcher(reg *registry.Registry, opts ...MatcherOption) *Matcher {
	m := &Matcher{log: logger.Noop()}
	for _, opt := range opts {
		opt(m)
	}

	m.entries = reg.Entries()
	m.hosts = make([]string, len(m.entries))
	for i, entry := range m.entries {
		hostname, err := entry.Hostname()
		if err != nil {
			m.log.Warn("skipping platform with invalid base url", "platform", entry.ID, "error", err)
			continue
		}
		m.hosts[i] = hostname
	}

	m.tiers = []matchTier{
		{TierExact, m.matchExact},
		{TierSpecial, m.matchSpecial},
		{TierSubdomain, m.matchSubdomain},
		{TierBaseDomain, m.matchBaseDomain},
	}

	return m
}

// Match detects the platform for a target URL string.
// Returns (nil, nil) when no tier matches.
func (m *Matcher) Match(rawURL string) (*Match, error) {
	u, err := urlutil.ParseAndValidate(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return m.MatchURL(u), nil
}

// MatchURL detects the platform for an already parsed URL.
// Returns nil when no tier matches.
func (m *Matcher) MatchURL(u *url.URL) *Match {
	for _, tier := range m.tiers {
		if match := tier.fn(u); match != nil {
			match.Tier = tier.name
			return match
		}
	}
	return nil
}

func (m *Matcher) matchExact(u *url.URL) *Match {
	hostname := strings.ToLower(u.Hostname())

	for i, entry := range m.entries {
		if m.hosts[i] == "" {
			continue
		}
		if m.hosts[i] == hostname {
			return &Match{ID: entry.ID, BaseURL: entry.BaseURL}
		}
	}
	return nil
}

// matchSpecial applies the hard-coded routing for hostnames whose platform
// depends on the path, not just the host. It only runs when no entry
// matched the hostname exactly.
func (m *Matcher) matchSpecial(u *url.URL) *Match {
	hostname := strings.ToLower(u.Hostname())
	path := u.EscapedPath()

	switch hostname {
	case "ghcr.io":
		if strings.Contains(path, "/v2/homebrew/") {
			return &Match{ID: "homebrew-bottles", BaseURL: "https://ghcr.io"}
		}
		return &Match{ID: "cr-ghcr", BaseURL: "https://ghcr.io"}
	case "github.com":
		if strings.HasPrefix(strings.ToLower(path), "/homebrew/") {
			return &Match{ID: "homebrew", BaseURL: "https://github.com/Homebrew"}
		}
		return &Match{ID: "gh", BaseURL: "https://github.com"}
	}
	return nil
}

func (m *Matcher) matchSubdomain(u *url.URL) *Match {
	hostname := strings.ToLower(u.Hostname())

	for i, entry := range m.entries {
		if m.hosts[i] == "" {
			continue
		}
		if strings.HasSuffix(hostname, "."+m.hosts[i]) {
			return &Match{ID: entry.ID, BaseURL: entry.BaseURL}
		}
	}
	return nil
}

func (m *Matcher) matchBaseDomain(u *url.URL) *Match {
	hostname := strings.ToLower(u.Hostname())

	for i, entry := range m.entries {
		if m.hosts[i] == "" {
			continue
		}
		if m.sameSite(hostname, m.hosts[i]) {
			return &Match{ID: entry.ID, BaseURL: entry.BaseURL}
		}
	}
	return nil
}

func (m *Matcher) sameSite(a, b string) bool {
	if m.publicSuffix {
		da := urlutil.RegistrableDomain(a)
		db := urlutil.RegistrableDomain(b)
		return da != "" && da == db
	}

	da := urlutil.BaseDomain(a)
	db := urlutil.BaseDomain(b)
	return da == db && strings.Contains(da, ".")
}
