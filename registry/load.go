package registry

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v2"

	"github.com/codymoss/hopgate/logger"
)

// document is the on-disk shape of a platform file.
type document struct {
	Platforms []Entry `yaml:"platforms"`
}

// Parse builds a registry from a YAML platform document.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse platform document: %w", err)
	}
	return New(doc.Platforms)
}

// LoadFile loads a registry from a YAML platform file. Hostname collisions
// and unparseable base URLs are logged as warnings but do not fail the load.
func LoadFile(path string, log logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.Noop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform file: %w", err)
	}

	reg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	warnOnBadEntries(reg, log)

	return reg, nil
}

// warnOnBadEntries logs configuration problems that degrade matching
// coverage without being fatal.
func warnOnBadEntries(reg *Registry, log logger.Logger) {
	for _, entry := range reg.Entries() {
		if _, err := entry.Hostname(); err != nil {
			log.Warn("platform base url does not parse; entry will be skipped by the matcher",
				"platform", entry.ID, "error", err)
		}
	}
	if err := reg.CheckCollisions(); err != nil {
		log.Warn("platform hostname collision", "error", err)
	}
}
