package entity

import (
	"fmt"
	"strings"
)

// StrategyKind selects how a listing page is rendered and parsed.
type StrategyKind string

const (
	// StrategyDefault parses the common blog listing layout.
	StrategyDefault StrategyKind = "default"
	// StrategyAlternate parses the category listing layout used by a few blogs.
	StrategyAlternate StrategyKind = "alternate"
)

// ParseStrategyKind maps a configuration value onto a StrategyKind.
// An empty value selects StrategyDefault.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch StrategyKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyDefault:
		return StrategyDefault, nil
	case StrategyAlternate:
		return StrategyAlternate, nil
	default:
		return "", &ValidationError{
			Field:   "strategy",
			Message: fmt.Sprintf("unknown strategy %q (must be default or alternate)", s),
		}
	}
}

// Source is a monitored blog listing page. Sources are static configuration.
type Source struct {
	ID          string       `yaml:"id"`
	DisplayName string       `yaml:"display_name"`
	URL         string       `yaml:"url"`
	Strategy    StrategyKind `yaml:"strategy"`
}

// Name returns the display name, falling back to the id.
func (s Source) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.ID
}

// Validate checks the source fields and normalizes an empty strategy to default.
func (s *Source) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return &ValidationError{Field: "id", Message: "source id is required"}
	}
	if strings.ContainsAny(s.ID, " /\t\n") {
		return &ValidationError{Field: "id", Message: "source id must not contain whitespace or slashes"}
	}

	kind, err := ParseStrategyKind(string(s.Strategy))
	if err != nil {
		return err
	}
	s.Strategy = kind

	if err := ValidateURL(s.URL); err != nil {
		return fmt.Errorf("source %s: %w", s.ID, err)
	}
	return nil
}
