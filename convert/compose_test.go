package convert

import "testing"

func TestCompose(t *testing.T) {
	tests := []struct {
		name    string
		gateway string
		id      string
		path    string
		want    string
	}{
		{
			name:    "trailing slash stripped",
			gateway: "https://gw.example/",
			id:      "gh",
			path:    "/owner/repo",
			want:    "https://gw.example/gh/owner/repo",
		},
		{
			name:    "no trailing slash",
			gateway: "https://gw.example",
			id:      "gh",
			path:    "/owner/repo",
			want:    "https://gw.example/gh/owner/repo",
		},
		{
			name:    "empty path yields platform root",
			gateway: "https://gw.example",
			id:      "homebrew",
			path:    "",
			want:    "https://gw.example/homebrew",
		},
		{
			name:    "identifier used verbatim",
			gateway: "https://gw.example",
			id:      "cr-ghcr",
			path:    "/v2/library/alpine/manifests/latest",
			want:    "https://gw.example/cr-ghcr/v2/library/alpine/manifests/latest",
		},
		{
			name:    "path with query",
			gateway: "https://gw.example",
			id:      "pypi",
			path:    "/search?q=requests",
			want:    "https://gw.example/pypi/search?q=requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.gateway, tt.id, tt.path)
			if got != tt.want {
				t.Errorf("Compose(%q, %q, %q) = %q, want %q", tt.gateway, tt.id, tt.path, got, tt.want)
			}
		})
	}
}
