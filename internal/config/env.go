package config

import (
	"os"
	"strings"
)

// Environment variables that override file values. main loads a .env file
// into the environment first.
const (
	EnvConfigPath = "DUTYCAL_CONFIG"
	EnvListen     = "DUTYCAL_LISTEN"
	EnvSource     = "DUTYCAL_SOURCE"
	EnvLogLevel   = "DUTYCAL_LOG_LEVEL"
)

// ApplyEnv overrides c with any DUTYCAL_* variables that are set. A source
// override replaces the configured source list with that single source.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSource); v != "" {
		c.SetSingleSource(v)
	}
}

// SetSingleSource replaces the source list with one path or URL.
func (c *Config) SetSingleSource(location string) {
	src := SourceConfig{ID: "override", Path: location}
	if isURL(location) {
		src = SourceConfig{ID: "override", URL: location}
	}
	c.Sources = []SourceConfig{src}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
