// Package catalog renders the browsable listing of supported platforms and
// their accelerated domains.
package catalog

import (
	"html/template"
	"io"

	"github.com/microcosm-cc/bluemonday"

	"github.com/codymoss/hopgate/convert"
	"github.com/codymoss/hopgate/registry"
)

// Platform is one row of the public catalog.
type Platform struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	GatewayURL  string `json:"gateway_url"`
}

// sanitizer strips all markup. Names and descriptions come from
// operator-edited registry files that may pass through several hands, so
// they are treated as untrusted text rather than HTML.
var sanitizer = bluemonday.StrictPolicy()

// Build flattens a registry snapshot into catalog rows, in registry order.
func Build(reg *registry.Registry, gatewayDomain string) []Platform {
	entries := reg.Entries()
	platforms := make([]Platform, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name
		if name == "" {
			name = entry.ID
		}

		domain, err := entry.Hostname()
		if err != nil {
			domain = ""
		}

		platforms = append(platforms, Platform{
			ID:          entry.ID,
			Name:        sanitizer.Sanitize(name),
			Description: sanitizer.Sanitize(entry.Description),
			Domain:      domain,
			GatewayURL:  convert.Compose(gatewayDomain, entry.ID, ""),
		})
	}

	return platforms
}

var pageTemplate = template.Must(template.New("catalog").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Supported platforms</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 56rem; padding: 0 1rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #ddd; }
code { background: #f4f4f4; padding: 0.1rem 0.3rem; }
</style>
</head>
<body>
<h1>Supported platforms</h1>
<p>URLs from the domains below are rewritten to <code>{{.Gateway}}</code>.</p>
<table>
<thead><tr><th>Platform</th><th>Domain</th><th>Gateway prefix</th><th></th></tr></thead>
<tbody>
{{- range .Platforms}}
<tr>
<td>{{.Name}}</td>
<td>{{if .Domain}}<code>{{.Domain}}</code>{{end}}</td>
<td><code>{{.GatewayURL}}</code></td>
<td>{{.Description}}</td>
</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

type pageData struct {
	Gateway   string
	Platforms []Platform
}

// RenderHTML writes the catalog page for the given platforms.
func RenderHTML(w io.Writer, gatewayDomain string, platforms []Platform) error {
	return pageTemplate.Execute(w, pageData{
		Gateway:   gatewayDomain,
		Platforms: platforms,
	})
}
