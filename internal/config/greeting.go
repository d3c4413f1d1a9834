package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed greeting.yaml
var greetingFile []byte

type greetingScript struct {
	Lines []string `yaml:"lines"`
}

// LoadGreeting returns the scripted cold-start greeting lines.
func LoadGreeting() ([]string, error) {
	return parseGreeting(greetingFile)
}

func parseGreeting(data []byte) ([]string, error) {
	var script greetingScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse greeting: %w", err)
	}
	if len(script.Lines) == 0 {
		return nil, fmt.Errorf("greeting has no lines")
	}
	return script.Lines, nil
}
