// Package prompt loads versioned system prompts from YAML files. Each prompt
// file carries the prompt text and a version identifier; the version is
// recorded on every generation so content can be traced back to the prompt
// that produced it.
package prompt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SystemPrompt is one loaded prompt definition.
type SystemPrompt struct {
	// Content is the prompt text sent as the system message.
	Content string `yaml:"content"`
	// Version identifies the prompt revision (recorded on generations).
	Version string `yaml:"version"`
}

// Load reads a prompt file of the form:
//
//	system:
//	  content: |
//	    ...
//	  version: "1.0"
func Load(path string) (*SystemPrompt, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var doc struct {
		System SystemPrompt `yaml:"system"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", path, err)
	}
	if doc.System.Content == "" {
		return nil, fmt.Errorf("prompt file %s has no system content", path)
	}
	return &doc.System, nil
}
