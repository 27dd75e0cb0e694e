// Package defaults loads the starter categories and keyword dictionary that
// every new account receives.
package defaults

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var embedded []byte

type Category struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type Keyword struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
}

type Set struct {
	Categories []Category `yaml:"categories"`
	Keywords   []Keyword  `yaml:"keywords"`
}

// Load reads the defaults from path, or the built-in set when path is empty.
func Load(path string) (*Set, error) {
	data := embedded
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read defaults file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates a defaults document.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every keyword points at a declared category.
func (s *Set) Validate() error {
	var errs []error
	names := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, errors.New("category with empty name"))
			continue
		}
		key := strings.ToLower(c.Name)
		if names[key] {
			errs = append(errs, fmt.Errorf("duplicate category %q", c.Name))
		}
		names[key] = true
	}
	for _, k := range s.Keywords {
		if strings.TrimSpace(k.Keyword) == "" {
			errs = append(errs, errors.New("keyword with empty text"))
			continue
		}
		if !names[strings.ToLower(k.Category)] {
			errs = append(errs, fmt.Errorf("keyword %q references unknown category %q", k.Keyword, k.Category))
		}
	}
	return errors.Join(errs...)
}
