// Package intake loads user profiles into the workflow: one-shot loading
// from a YAML or JSON file, and a drop-directory watcher that feeds
// profiles into runs as they arrive.
package intake

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/aida/proposal"
)

// LoadProfile reads and validates a user profile from a YAML or JSON
// file. The format is chosen by extension; .yaml/.yml parse as YAML,
// everything else as JSON.
func LoadProfile(path string) (*proposal.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var profile proposal.UserProfile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", filepath.Base(path), err)
		}
	default:
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", filepath.Base(path), err)
		}
	}

	if err := proposal.ValidateProfile(&profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", filepath.Base(path), err)
	}
	return &profile, nil
}
