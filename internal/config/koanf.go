// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/conventus/config.yaml",
	"/etc/conventus/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces Conventus environment variables, e.g.
// CONVENTUS_SERVER_PORT=8080 maps to server.port.
const envPrefix = "CONVENTUS_"

// Load builds the configuration: defaults, then the YAML config file (if
// found), then environment overrides, then validation.
func Load() (*Config, error) {
	return LoadFrom(resolveConfigPath())
}

// LoadFrom loads configuration with an explicit config file path. An empty
// path skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: struct defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: optional YAML config file.
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment overrides. CONVENTUS_SOURCES_EVENTBRITE_TOKEN
	// maps to sources.eventbrite.token. Key names in the tree contain
	// underscores, so only the section separators become dots; the koanf
	// tree is at most three levels deep and every leaf is resolvable by
	// greedy longest-key matching against known keys.
	if err := k.Load(env.Provider(envPrefix, ".", envKeyTransform(k)), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveConfigPath returns the config file to load, or "" if none exists.
func resolveConfigPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeyTransform maps CONVENTUS_FOO_BAR_BAZ to a known koanf key. Leaf and
// section names themselves contain underscores (ingestion.batch_size,
// sources.meetup_web.enabled), so every underscore is tried as a section
// boundary and the first candidate present in the default tree wins.
func envKeyTransform(k *koanf.Koanf) func(string) string {
	return func(s string) string {
		raw := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.Split(raw, "_")
		if len(parts) < 2 {
			return raw
		}

		// Two-level candidate: section.leaf_with_underscores.
		if cand := parts[0] + "." + strings.Join(parts[1:], "_"); k.Exists(cand) {
			return cand
		}

		// Three-level candidates: section.sub_section.leaf.
		for j := 2; j < len(parts); j++ {
			cand := parts[0] + "." + strings.Join(parts[1:j], "_") + "." + strings.Join(parts[j:], "_")
			if k.Exists(cand) {
				return cand
			}
		}

		// Unknown key: keep the plain dot mapping so typos surface in logs.
		return strings.ReplaceAll(raw, "_", ".")
	}
}
