package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// KeywordRule is one keyword replacement rule as written in a rules file.
// Rules apply in file order; see the transform package for semantics.
type KeywordRule struct {
	Pattern     string    `toml:"pattern" yaml:"pattern"`
	Replacement string    `toml:"replacement" yaml:"replacement"`
	Regex       bool      `toml:"regex" yaml:"regex"`
	Rescan      bool      `toml:"rescan" yaml:"rescan"`
	Style       RuleStyle `toml:"style" yaml:"style"`
}

// RuleStyle carries optional font/color overrides for matched text.
type RuleStyle struct {
	Bold      bool    `toml:"bold" yaml:"bold"`
	Italic    bool    `toml:"italic" yaml:"italic"`
	Underline bool    `toml:"underline" yaml:"underline"`
	Color     string  `toml:"color" yaml:"color"` // hex "#rrggbb" or named
	SizePt    float64 `toml:"size_pt" yaml:"size_pt"`
}

// rulesFile is the top-level structure of a rules file.
type rulesFile struct {
	Rules []KeywordRule `toml:"rules" yaml:"rules"`
}

// LoadRules loads keyword replacement rules from a TOML or YAML file.
// A missing file is not an error: rewriting is simply disabled.
func LoadRules(path string) ([]KeywordRule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rf rulesFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("failed to parse rules file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("failed to parse rules file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported rules file extension %q (use .toml or .yaml)", ext)
	}

	return rf.Rules, nil
}
