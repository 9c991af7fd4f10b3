// Package convert turns URLs from supported upstream platforms into URLs
// served through the accelerating gateway. Detection, path rewriting, and
// composition are pure functions over one immutable registry snapshot.
package convert

import (
	"fmt"

	"github.com/codymoss/hopgate/registry"
	"github.com/codymoss/hopgate/urlutil"
)

// Result is the outcome of one conversion.
type Result struct {
	Matched    bool   `json:"matched"`
	Platform   string `json:"platform,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
	Tier       Tier   `json:"tier,omitempty"`
	Path       string `json:"path,omitempty"`
	GatewayURL string `json:"gateway_url,omitempty"`
}

// Converter runs the full pipeline: detect the platform, rewrite the path,
// compose the gateway URL.
type Converter struct {
	matcher *Matcher
	gateway string
}

// New creates a converter over a registry snapshot and gateway domain.
func New(reg *registry.Registry, gatewayDomain string, opts ...MatcherOption) *Converter {
	return &Converter{
		matcher: NewMatcher(reg, opts...),
		gateway: gatewayDomain,
	}
}

// Convert rewrites a target URL into its gateway form. An unrecognized
// hostname yields a Result with Matched false; only a malformed target URL
// is an error.
func (c *Converter) Convert(rawURL string) (*Result, error) {
	u, err := urlutil.ParseAndValidate(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	match := c.matcher.MatchURL(u)
	if match == nil {
		return &Result{}, nil
	}

	path := Rewrite(match.ID, u)

	return &Result{
		Matched:    true,
		Platform:   match.ID,
		BaseURL:    match.BaseURL,
		Tier:       match.Tier,
		Path:       path,
		GatewayURL: Compose(c.gateway, match.ID, path),
	}, nil
}
