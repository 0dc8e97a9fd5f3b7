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
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Session struct {
		// Quiet period after the last answer before the class counts as done.
		Stabilization string `yaml:"stabilization"`
	} `yaml:"session"`
	Problems struct {
		TTL string `yaml:"ttl"`
	} `yaml:"problems"`
	Grading struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		Context string `yaml:"context"`
		Timeout string `yaml:"timeout"`
	} `yaml:"grading"`
	Runner struct {
		Dir     string `yaml:"dir"`
		Timeout string `yaml:"timeout"`
	} `yaml:"runner"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
