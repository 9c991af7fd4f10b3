package convert

import "strings"

// Compose joins the gateway domain, platform identifier, and rewritten path
// into the final accelerated URL. Trailing slashes on the gateway domain
// are stripped; the identifier is used verbatim since identifiers are
// controlled configuration values. No reachability check is performed.
func Compose(gatewayDomain, id, path string) string {
	return strings.TrimRight(gatewayDomain, "/") + "/" + id + path
}
