package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Backends struct {
		TasksURL   string `yaml:"tasks_url"`
		RewriteURL string `yaml:"rewrite_url"`
		SearchURL  string `yaml:"search_url"`
		SubmitURL  string `yaml:"submit_url"`
		LogURL     string `yaml:"log_url"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"backends"`
	Search struct {
		DatabaseURL      string              `yaml:"database_url"`
		ModelID          string              `yaml:"model_id"`
		VersionID        string              `yaml:"version_id"`
		NumResults       int                 `yaml:"num_results"`
		ReposAndProjects map[string][]string `yaml:"repos_and_projects"`
	} `yaml:"search"`
	Assignment struct {
		TTL string `yaml:"ttl"`
	} `yaml:"assignment"`
}

const defaultGateway = "https://maestro.localhost:4269"

// Load reads YAML config from path and repairs missing backend settings
// field by field, the same way the client's connection settings are repaired.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills every blank backend or search field with its default.
func (c *Config) ApplyDefaults() {
	if c.Backends.TasksURL == "" {
		c.Backends.TasksURL = defaultGateway + "/issues-db-api/tasks"
	}
	if c.Backends.RewriteURL == "" {
		c.Backends.RewriteURL = defaultGateway + "/dl-manager/gpt"
	}
	if c.Backends.SearchURL == "" {
		c.Backends.SearchURL = defaultGateway + "/search-engine/search"
	}
	if c.Backends.SubmitURL == "" {
		c.Backends.SubmitURL = defaultGateway + "/issues-db-api/submit-ratings"
	}
	if c.Backends.LogURL == "" {
		c.Backends.LogURL = defaultGateway + "/issues-db-api/log"
	}
	if c.Search.DatabaseURL == "" {
		c.Search.DatabaseURL = defaultGateway + "/issues-db-api"
	}
	if c.Search.ModelID == "" {
		c.Search.ModelID = "issue-search"
	}
	if c.Search.VersionID == "" {
		c.Search.VersionID = "v1"
	}
	if c.Search.NumResults == 0 {
		c.Search.NumResults = 10
	}
	if len(c.Search.ReposAndProjects) == 0 {
		c.Search.ReposAndProjects = map[string][]string{
			"Apache": {"CASSANDRA", "HDFS", "TAJO", "YARN"},
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
