// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/photowall/config.yaml",
	"/etc/photowall/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Media: MediaConfig{
			StaticDir:              "static",
			Dir:                    "img",
			Placeholder:            ".gitkeep",
			DownloadTimeout:        60 * time.Second,
			MaxConcurrentDownloads: 8,
			Allocator:              AllocatorSerialized,
		},
		Twilio: TwilioConfig{
			PrefixWidth: 2, // "+1"
			PositiveAck: "Photo received - check the screen to see it pop up!",
			NegativeAck: ":( Doesn't look like there was a photo in that message.",
		},
		Instagram: InstagramConfig{
			APIBaseURL:      "https://api.instagram.com/v1",
			AuthURL:         "https://api.instagram.com/oauth/authorize",
			TokenURL:        "https://api.instagram.com/oauth/access_token",
			Tag:             "shinergasp",
			RequiredTags:    []string{"shinergasp"},
			PollEnabled:     true,
			PollInterval:    10 * time.Second,
			RequestTimeout:  15 * time.Second,
			RateLimitPerSec: 2,
			RateLimitBurst:  4,
			DedupWindow:     10 * time.Minute,
		},
		Store: StoreConfig{
			Path: "data/store",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in defaults
//  2. Config File: optional YAML file (explicitPath, CONFIG_PATH, or DefaultConfigPaths)
//  3. Environment Variables: override any setting
func LoadWithKoanf(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := findConfigFile(explicitPath)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile resolves the config file to load. An explicit path that does
// not exist is an error; the search paths are optional.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"instagram.required_tags",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	// Server
	"port":             "server.port",
	"http_port":        "server.port",
	"http_host":        "server.host",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"idle_timeout":     "server.idle_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Media
	"statics_dir":              "media.static_dir",
	"media_dir":                "media.dir",
	"media_placeholder":        "media.placeholder",
	"download_timeout":         "media.download_timeout",
	"max_concurrent_downloads": "media.max_concurrent_downloads",
	"sequence_allocator":       "media.allocator",

	// Twilio
	"twilio_prefix_width": "twilio.prefix_width",
	"twilio_positive_ack": "twilio.positive_ack",
	"twilio_negative_ack": "twilio.negative_ack",
	"twilio_auth_token":   "twilio.auth_token",
	"twilio_public_url":   "twilio.public_url",

	// Instagram
	"instagram_api_base_url":       "instagram.api_base_url",
	"instagram_auth_url":           "instagram.auth_url",
	"instagram_token_url":          "instagram.token_url",
	"instagram_client_id":          "instagram.client_id",
	"instagram_client_secret":      "instagram.client_secret",
	"instagram_redirect_url":       "instagram.redirect_url",
	"instagram_access_token":       "instagram.default_token",
	"instagram_verify_token":       "instagram.verify_token",
	"instagram_tag":                "instagram.tag",
	"instagram_required_tags":      "instagram.required_tags",
	"instagram_poll_enabled":       "instagram.poll_enabled",
	"instagram_poll_interval":      "instagram.poll_interval",
	"instagram_request_timeout":    "instagram.request_timeout",
	"instagram_rate_limit_per_sec": "instagram.rate_limit_per_sec",
	"instagram_rate_limit_burst":   "instagram.rate_limit_burst",
	"instagram_dedup_window":       "instagram.dedup_window",

	// Store
	"store_path":      "store.path",
	"store_in_memory": "store.in_memory",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_reqs":     "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"rate_limit_disabled": "security.rate_limit_disabled",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - STATICS_DIR -> media.static_dir
//   - INSTAGRAM_REQUIRED_TAGS -> instagram.required_tags
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
