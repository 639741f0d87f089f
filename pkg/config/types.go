package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory/dedup"
)

// Config represents the persistent recall configuration stored as config.toml
// in the .recall/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Dedup       DedupConfig       `toml:"dedup"`
	Metadata    MetadataConfig    `toml:"metadata"`
	Search      SearchConfig      `toml:"search"`
	API         APIConfig         `toml:"api"`
	Events      EventsConfig      `toml:"events"`
	Client      ClientConfig      `toml:"client"`
}

// StorageConfig holds database locations used when the vector store target
// is not set explicitly.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// DedupConfig holds duplicate detection defaults for add.
type DedupConfig struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold,omitempty"`
	Policy    string  `toml:"policy,omitempty"`
}

// MetadataConfig bounds tag and people lists.
type MetadataConfig struct {
	MaxItems      int `toml:"max_items,omitempty"`
	MaxItemLength int `toml:"max_item_length,omitempty"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit int `toml:"default_limit,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig selects where memory events are published.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// recall server (e.g. recall add, recall search).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`

	// UserID and ProjectID are the owner scope sent with every request.
	UserID    string `toml:"user_id,omitempty"`
	ProjectID string `toml:"project_id,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path":     stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":    stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.api_key":    stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),
	"embedding.provider":      stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":        stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":         stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.api_key":       stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"dedup.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Dedup.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for dedup.enabled: %w", err)
			}
			c.Dedup.Enabled = b
			return nil
		},
	},
	"dedup.threshold": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Dedup.Threshold, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for dedup.threshold: %w", err)
			}
			if err := dedup.ValidateThreshold(f); err != nil {
				return err
			}
			c.Dedup.Threshold = f
			return nil
		},
	},
	"dedup.policy": {
		get: func(c *Config) string { return c.Dedup.Policy },
		set: func(c *Config, v string) error {
			p, err := dedup.ParsePolicy(v)
			if err != nil {
				return err
			}
			c.Dedup.Policy = string(p)
			return nil
		},
	},
	"metadata.max_items":       intKey("metadata.max_items", func(c *Config) *int { return &c.Metadata.MaxItems }),
	"metadata.max_item_length": intKey("metadata.max_item_length", func(c *Config) *int { return &c.Metadata.MaxItemLength }),
	"search.default_limit":     intKey("search.default_limit", func(c *Config) *int { return &c.Search.DefaultLimit }),
	"api.listen":               stringKey(func(c *Config) *string { return &c.API.Listen }),
	"events.provider":          stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.topic":             stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			var brokers []string
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					brokers = append(brokers, b)
				}
			}
			c.Events.Brokers = brokers
			return nil
		},
	},
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"client.user_id":    stringKey(func(c *Config) *string { return &c.Client.UserID }),
	"client.project_id": stringKey(func(c *Config) *string { return &c.Client.ProjectID }),
}
