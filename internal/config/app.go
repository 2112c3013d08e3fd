// Package config holds the application configuration: which blog listings
// are monitored and who is alerted about them.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"post-alert/internal/domain/entity"
	envconfig "post-alert/pkg/config"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// ErrNoSources is returned by Validate when no source is configured.
var ErrNoSources = errors.New("at least one source is required")

// AppConfig is the monitored source table and the recipient list.
//
// A YAML file looks like:
//
//	sources:
//	  - id: chamberine3
//	    url: https://blog.naver.com/PostList.naver?blogId=chamberine3&categoryNo=0&from=postList
//	  - id: ranto28
//	    url: https://blog.naver.com/PostList.naver?blogId=ranto28&categoryNo=21&from=postList
//	    strategy: alternate
//	recipients:
//	  - telegram:123456789
//	  - discord:default
type AppConfig struct {
	Sources       []entity.Source `yaml:"sources"`
	Recipients    []string        `yaml:"recipients"`
	PermalinkBase string          `yaml:"permalink_base"`
}

// DefaultSources returns the built-in source table used when no config file exists.
func DefaultSources() []entity.Source {
	return []entity.Source{
		naverSource("chamberine3", 0, entity.StrategyDefault),
		naverSource("ranto28", 21, entity.StrategyAlternate),
		naverSource("going_tothe_moon", 0, entity.StrategyDefault),
		naverSource("lhd1371", 0, entity.StrategyDefault),
		naverSource("ldhwc", 0, entity.StrategyDefault),
	}
}

func naverSource(blogID string, categoryNo int, strategy entity.StrategyKind) entity.Source {
	return entity.Source{
		ID:       blogID,
		URL:      fmt.Sprintf("https://blog.naver.com/PostList.naver?blogId=%s&categoryNo=%d&from=postList", blogID, categoryNo),
		Strategy: strategy,
	}
}

// Load reads the YAML file at path. A missing file yields the built-in
// sources and no recipients; an unreadable or malformed file is an error.
// The result is not validated.
func Load(path string) (*AppConfig, error) {
	// #nosec G304 -- path comes from CONFIG_PATH or a CLI flag
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &AppConfig{Sources: DefaultSources()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	return &cfg, nil
}

// LoadFromEnv loads CONFIG_PATH (default config.yaml). A non-empty
// RECIPIENTS variable ("telegram:1,discord:default") replaces the file's
// recipients. The result is validated.
func LoadFromEnv() (*AppConfig, error) {
	cfg, err := Load(envconfig.GetEnvString("CONFIG_PATH", DefaultPath))
	if err != nil {
		return nil, err
	}
	if recipients := envconfig.GetEnvStringList("RECIPIENTS", nil); recipients != nil {
		cfg.Recipients = recipients
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks every source and recipient and normalizes source strategies.
// Source ids must be unique.
func (c *AppConfig) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i := range c.Sources {
		if err := c.Sources[i].Validate(); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		id := c.Sources[i].ID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("sources[%d]: %w", i, &entity.ValidationError{
				Field:   "id",
				Message: fmt.Sprintf("duplicate source id %q", id),
			})
		}
		seen[id] = struct{}{}
	}

	if _, err := c.ParsedRecipients(); err != nil {
		return err
	}
	if c.PermalinkBase != "" {
		if err := entity.ValidateURL(c.PermalinkBase); err != nil {
			return fmt.Errorf("permalink_base: %w", err)
		}
	}
	return nil
}

// ParsedRecipients parses the "channel:id" recipient strings, keeping their order.
func (c *AppConfig) ParsedRecipients() ([]entity.Recipient, error) {
	out := make([]entity.Recipient, 0, len(c.Recipients))
	for i, s := range c.Recipients {
		r, err := entity.ParseRecipient(s)
		if err != nil {
			return nil, fmt.Errorf("recipients[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SourceList serves a fixed source table in configuration order.
type SourceList struct {
	sources []entity.Source
}

// NewSourceList copies sources into a SourceList.
func NewSourceList(sources []entity.Source) *SourceList {
	cp := make([]entity.Source, len(sources))
	copy(cp, sources)
	return &SourceList{sources: cp}
}

// ListActive returns a copy of the source table.
func (l *SourceList) ListActive(ctx context.Context) ([]entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]entity.Source, len(l.sources))
	copy(out, l.sources)
	return out, nil
}
