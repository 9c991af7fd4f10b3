package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codymoss/hopgate/registry"
)

func newTestRegistry(t *testing.T, entries []registry.Entry) *registry.Registry {
	t.Helper()
	reg, err := registry.New(entries)
	require.NoError(t, err)
	return reg
}

func TestMatchExactHostname(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi", BaseURL: "https://pypi.org"},
		{ID: "npm", BaseURL: "https://registry.npmjs.org"},
	})
	m := NewMatcher(reg)

	match, err := m.Match("https://registry.npmjs.org/left-pad/-/left-pad-1.3.0.tgz")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "npm", match.ID)
	assert.Equal(t, "https://registry.npmjs.org", match.BaseURL)
	assert.Equal(t, TierExact, match.Tier)
}

func TestMatchExactOutranksSubdomain(t *testing.T) {
	// files.pythonhosted.org matches pypi-files exactly and is also a
	// subdomain of pythonhosted.org; the exact tier must win.
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pythonhosted", BaseURL: "https://pythonhosted.org"},
		{ID: "pypi-files", BaseURL: "https://files.pythonhosted.org"},
	})
	m := NewMatcher(reg)

	match, err := m.Match("https://files.pythonhosted.org/packages/py3/r/requests.whl")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "pypi-files", match.ID)
	assert.Equal(t, TierExact, match.Tier)
}

func TestMatchExactOutranksSpecial(t *testing.T) {
	// A registry entry whose hostname is github.com wins over the
	// hard-coded routing; the special tier only runs on a tier-1 miss.
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "github-mirror", BaseURL: "https://github.com"},
	})
	m := NewMatcher(reg)

	match, err := m.Match("https://github.com/Homebrew/brew")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "github-mirror", match.ID)
	assert.Equal(t, TierExact, match.Tier)
}

func TestMatchDuplicateHostnameFirstEntryWins(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "first", BaseURL: "https://mirror.example.org"},
		{ID: "second", BaseURL: "https://mirror.example.org"},
	})
	m := NewMatcher(reg)

	match, err := m.Match("https://mirror.example.org/some/file")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "first", match.ID)
}

func TestMatchSpecialGhcr(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi", BaseURL: "https://pypi.org"},
	})
	m := NewMatcher(reg)

	tests := []struct {
		name   string
		target string
		wantID string
	}{
		{"homebrew bottles", "https://ghcr.io/v2/homebrew/core/wget/blobs/sha256:abc", "homebrew-bottles"},
		{"other ghcr path", "https://ghcr.io/codymoss/hopgate", "cr-ghcr"},
		{"ghcr root", "https://ghcr.io/", "cr-ghcr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := m.Match(tt.target)
			require.NoError(t, err)
			require.NotNil(t, match)
			assert.Equal(t, tt.wantID, match.ID)
			assert.Equal(t, "https://ghcr.io", match.BaseURL)
			assert.Equal(t, TierSpecial, match.Tier)
		})
	}
}

func TestMatchSpecialGitHub(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi", BaseURL: "https://pypi.org"},
	})
	m := NewMatcher(reg)

	tests := []struct {
		name     string
		target   string
		wantID   string
		wantBase string
	}{
		{"homebrew repo", "https://github.com/Homebrew/brew", "homebrew", "https://github.com/Homebrew"},
		{"homebrew lowercase", "https://github.com/homebrew/core", "homebrew", "https://github.com/Homebrew"},
		{"ordinary repo", "https://github.com/torvalds/linux", "gh", "https://github.com"},
		{"github root", "https://github.com/", "gh", "https://github.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := m.Match(tt.target)
			require.NoError(t, err)
			require.NotNil(t, match)
			assert.Equal(t, tt.wantID, match.ID)
			assert.Equal(t, tt.wantBase, match.BaseURL)
			assert.Equal(t, TierSpecial, match.Tier)
		})
	}
}

func TestMatchSubdomain(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi", BaseURL: "https://pypi.org"},
		{ID: "sourceforge", BaseURL: "https://sourceforge.net"},
	})
	m := NewMatcher(reg)

	match, err := m.Match("https://downloads.sourceforge.net/project/sevenzip/7z.exe")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "sourceforge", match.ID)
	assert.Equal(t, TierSubdomain, match.Tier)
}

func TestMatchBaseDomain(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi-files", BaseURL: "https://files.pythonhosted.org"},
	})
	m := NewMatcher(reg)

	// api.pythonhosted.org is not a subdomain of files.pythonhosted.org,
	// but both share the base domain pythonhosted.org.
	match, err := m.Match("https://api.pythonhosted.org/simple/")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "pypi-files", match.ID)
	assert.Equal(t, TierBaseDomain, match.Tier)
}

func TestMatchBaseDomainHeuristic(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "mirror-uk", BaseURL: "https://mirror.foo.co.uk"},
	})

	// The naive last-two-labels heuristic treats every .co.uk host as the
	// same site. That misclassification is preserved by default.
	m := NewMatcher(reg)
	match, err := m.Match("https://downloads.bar.co.uk/file.tar.gz")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "mirror-uk", match.ID)
	assert.Equal(t, TierBaseDomain, match.Tier)

	// Public-suffix mode compares registrable domains instead.
	strict := NewMatcher(reg, WithPublicSuffix(true))
	match, err = strict.Match("https://downloads.bar.co.uk/file.tar.gz")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchNoMatch(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi", BaseURL: "https://pypi.org"},
	})
	m := NewMatcher(reg)

	match, err := m.Match("https://wholly-unrelated.example.net/file")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchInvalidTarget(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi", BaseURL: "https://pypi.org"},
	})
	m := NewMatcher(reg)

	for _, target := range []string{"", "not a url", "pypi.org/simple"} {
		_, err := m.Match(target)
		assert.ErrorIs(t, err, ErrInvalidURL, "target %q", target)
	}
}

func TestMatchSkipsInvalidEntries(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "broken", BaseURL: "://not-a-url"},
		{ID: "pypi", BaseURL: "https://pypi.org"},
	})
	m := NewMatcher(reg)

	match, err := m.Match("https://pypi.org/simple/requests/")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "pypi", match.ID)
}

func TestMatchDeterministic(t *testing.T) {
	reg := newTestRegistry(t, []registry.Entry{
		{ID: "pypi", BaseURL: "https://pypi.org"},
		{ID: "npm", BaseURL: "https://registry.npmjs.org"},
	})
	m := NewMatcher(reg)

	first, err := m.Match("https://pypi.org/simple/requests/")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := m.Match("https://pypi.org/simple/requests/")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
