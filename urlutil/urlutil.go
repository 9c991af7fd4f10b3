package urlutil

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ParseAndValidate parses a URL string and validates it has a scheme and host.
func ParseAndValidate(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("url must be absolute with scheme and host")
	}

	return parsedURL, nil
}

// Hostname extracts the hostname (without port) from a URL string.
func Hostname(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("url has no host: %s", urlStr)
	}

	return strings.ToLower(hostname), nil
}

// BaseDomain returns the last two dot-separated labels of a hostname.
// This is a coarse same-site heuristic, not public-suffix aware: it
// misclassifies multi-label suffixes such as .co.uk. Hostnames with fewer
// than two labels are returned unchanged.
func BaseDomain(hostname string) string {
	labels := strings.Split(hostname, ".")
	if len(labels) <= 2 {
		return hostname
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// RegistrableDomain returns the public-suffix-aware eTLD+1 of a hostname.
// It returns an empty string when the hostname is itself a public suffix
// or otherwise has no registrable domain.
func RegistrableDomain(hostname string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return ""
	}
	return domain
}
