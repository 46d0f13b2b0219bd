// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Sequence allocator names accepted by media.allocator.
const (
	AllocatorSerialized = "serialized"
	AllocatorNaive      = "naive"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateTwilio(); err != nil {
		return err
	}
	if err := c.validateInstagram(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if strings.TrimSpace(c.Media.StaticDir) == "" {
		return fmt.Errorf("STATICS_DIR is required")
	}
	if strings.TrimSpace(c.Media.Dir) == "" {
		return fmt.Errorf("MEDIA_DIR is required")
	}
	if c.Media.DownloadTimeout <= 0 {
		return fmt.Errorf("DOWNLOAD_TIMEOUT must be positive")
	}
	if c.Media.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be at least 1")
	}
	switch c.Media.Allocator {
	case AllocatorSerialized, AllocatorNaive:
	default:
		return fmt.Errorf("SEQUENCE_ALLOCATOR must be %q or %q, got %q", AllocatorSerialized, AllocatorNaive, c.Media.Allocator)
	}
	return nil
}

func (c *Config) validateTwilio() error {
	if c.Twilio.PrefixWidth < 0 {
		return fmt.Errorf("TWILIO_PREFIX_WIDTH must not be negative")
	}
	if c.Twilio.AuthToken != "" && c.Twilio.PublicURL == "" {
		return fmt.Errorf("TWILIO_PUBLIC_URL is required when TWILIO_AUTH_TOKEN is set")
	}
	return nil
}

func (c *Config) validateInstagram() error {
	if _, err := url.ParseRequestURI(c.Instagram.APIBaseURL); err != nil {
		return fmt.Errorf("INSTAGRAM_API_BASE_URL is invalid: %w", err)
	}
	if len(c.Instagram.RequiredTags) == 0 {
		return fmt.Errorf("INSTAGRAM_REQUIRED_TAGS must contain at least one tag")
	}
	if c.Instagram.PollEnabled {
		if c.Instagram.Tag == "" {
			return fmt.Errorf("INSTAGRAM_TAG is required when polling is enabled")
		}
		if c.Instagram.PollInterval <= 0 {
			return fmt.Errorf("INSTAGRAM_POLL_INTERVAL must be positive")
		}
	}
	if c.Instagram.RequestTimeout <= 0 {
		return fmt.Errorf("INSTAGRAM_REQUEST_TIMEOUT must be positive")
	}
	if c.Instagram.RateLimitPerSec <= 0 || c.Instagram.RateLimitBurst < 1 {
		return fmt.Errorf("INSTAGRAM_RATE_LIMIT_PER_SEC and INSTAGRAM_RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
