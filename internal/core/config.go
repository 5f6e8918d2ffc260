package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the process configuration, layered from built-in defaults and
// MAKISO_* environment variables.
type Config struct {
	Data struct {
		Dir string `koanf:"dir"`
	} `koanf:"data"`

	Scope struct {
		Org       string `koanf:"org"`
		Workspace string `koanf:"workspace"`
		Project   string `koanf:"project"`
		Repo      string `koanf:"repo"`
	} `koanf:"scope"`

	Webhook struct {
		Port   int    `koanf:"port"`
		Secret string `koanf:"secret"`
		Routes string `koanf:"routes"`
		Source string `koanf:"source"`
	} `koanf:"webhook"`

	Poll struct {
		Topic    string `koanf:"topic"`
		Agent    string `koanf:"agent"`
		Interval int    `koanf:"interval"` // milliseconds, also the minimum inter-poll spacing
	} `koanf:"poll"`

	Retention struct {
		Completed int `koanf:"completed"` // days
		Pending   int `koanf:"pending"`   // days
	} `koanf:"retention"`
}

// DefaultOrg is the org every scope falls back to when nothing supplies one.
const DefaultOrg = "default"

// LoadConfig builds the configuration from defaults and the environment.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	_ = k.Load(confmap.Provider(map[string]interface{}{
		"data.dir":            filepath.Join(home, ".config", "makiso"),
		"scope.org":           DefaultOrg,
		"webhook.port":        8787,
		"webhook.source":      "webhook",
		"poll.topic":          "events",
		"poll.agent":          "agent",
		"poll.interval":       5000,
		"retention.completed": 30,
		"retention.pending":   7,
	}, "."), nil)

	if err := k.Load(env.Provider("MAKISO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MAKISO_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.Data.Dir, "events.db")
}

// TriggerPath returns the trigger file watchers observe for new events.
func (c *Config) TriggerPath() string {
	return filepath.Join(c.Data.Dir, ".trigger")
}

// EnsureDataDir creates the data directory if missing.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.Data.Dir, 0o755)
}

// ParseRoutes parses the webhook route map from "path=topic,path=topic" form.
// Leading and trailing slashes on paths are ignored.
func (c *Config) ParseRoutes() map[string]string {
	routes := make(map[string]string)
	for _, pair := range strings.Split(c.Webhook.Routes, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, topic, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), "/")
		topic = strings.TrimSpace(topic)
		if key == "" || topic == "" {
			continue
		}
		routes[key] = topic
	}
	return routes
}
