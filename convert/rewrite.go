package convert

import (
	"net/url"
	"regexp"
	"strings"
)

// githubBlobPattern matches /{owner}/{repo}/blob/{rest}.
var githubBlobPattern = regexp.MustCompile(`^/([^/]+)/([^/]+)/blob/(.+)$`)

// Rewrite derives the gateway path for a matched platform from the target
// URL's path and raw query. The result is either empty or starts with "/".
func Rewrite(id string, u *url.URL) string {
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	switch id {
	case "gh":
		path = rewriteGitHubBlob(path)
	case "homebrew":
		path = stripLeadingSegment(path, "/homebrew")
	case "homebrew-api":
		path = stripLeadingSegment(path, "/api")
	}

	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// rewriteGitHubBlob turns /{owner}/{repo}/blob/{branch}/{file} into
// /{owner}/{repo}/raw/refs/heads/{branch}/{file}. The first segment after
// blob/ is taken as the branch, so branch names containing "/" are not
// supported. Non-blob paths pass through unchanged.
func rewriteGitHubBlob(path string) string {
	matches := githubBlobPattern.FindStringSubmatch(path)
	if matches == nil {
		return path
	}

	branch, filePath, _ := strings.Cut(matches[3], "/")

	return "/" + matches[1] + "/" + matches[2] + "/raw/refs/heads/" + branch + "/" + filePath
}

// stripLeadingSegment removes one leading path segment, matched
// case-insensitively. A result of "" or "/" collapses to the empty string
// so the platform root maps to the gateway's platform root.
func stripLeadingSegment(path, segment string) string {
	lower := strings.ToLower(path)
	if lower == segment {
		return ""
	}
	if strings.HasPrefix(lower, segment+"/") {
		path = path[len(segment):]
	}
	if path == "/" {
		return ""
	}
	return path
}
