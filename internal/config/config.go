// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

// Package config loads Photowall configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence.
package config

import (
	"path/filepath"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Media     MediaConfig     `koanf:"media"`
	Twilio    TwilioConfig    `koanf:"twilio"`
	Instagram InstagramConfig `koanf:"instagram"`
	Store     StoreConfig     `koanf:"store"`
	Logging   LoggingConfig   `koanf:"logging"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MediaConfig controls where acquired media is written and how downloads run.
type MediaConfig struct {
	// StaticDir is served as the web root; public media paths are relative to it.
	StaticDir string `koanf:"static_dir"`

	// Dir is the media root below StaticDir holding {collectionType}/{collectionKey}.
	Dir string `koanf:"dir"`

	// Placeholder is the file kept in empty directories and hidden from snapshots.
	Placeholder string `koanf:"placeholder"`

	DownloadTimeout        time.Duration `koanf:"download_timeout"`
	MaxConcurrentDownloads int           `koanf:"max_concurrent_downloads"`

	// Allocator selects the sequence allocator: "serialized" or "naive".
	Allocator string `koanf:"allocator"`
}

// Root returns the absolute-or-relative media root directory on disk.
func (m MediaConfig) Root() string {
	return filepath.Join(m.StaticDir, m.Dir)
}

// TwilioConfig holds MMS webhook settings
type TwilioConfig struct {
	// PrefixWidth is the number of leading characters stripped from the sender ("+1").
	PrefixWidth int    `koanf:"prefix_width"`
	PositiveAck string `koanf:"positive_ack"`
	NegativeAck string `koanf:"negative_ack"`

	// AuthToken enables X-Twilio-Signature verification when set.
	AuthToken string `koanf:"auth_token"`
	// PublicURL is the externally visible URL of the /message endpoint used for signing.
	PublicURL string `koanf:"public_url"`
}

// InstagramConfig holds social API, OAuth and poller settings
type InstagramConfig struct {
	APIBaseURL   string `koanf:"api_base_url"`
	AuthURL      string `koanf:"auth_url"`
	TokenURL     string `koanf:"token_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`

	// DefaultToken is used when no credential is on file for an account.
	DefaultToken string `koanf:"default_token"`

	VerifyToken  string   `koanf:"verify_token"`
	Tag          string   `koanf:"tag"`
	RequiredTags []string `koanf:"required_tags"`

	PollEnabled  bool          `koanf:"poll_enabled"`
	PollInterval time.Duration `koanf:"poll_interval"`

	RequestTimeout  time.Duration `koanf:"request_timeout"`
	RateLimitPerSec float64       `koanf:"rate_limit_per_sec"`
	RateLimitBurst  int           `koanf:"rate_limit_burst"`
	DedupWindow     time.Duration `koanf:"dedup_window"`
}

// StoreConfig holds the persisted credential/cursor store settings
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds CORS and inbound rate limiting settings
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}
