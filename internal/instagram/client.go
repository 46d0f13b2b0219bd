// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package instagram talks to the social media API: resolving a media id to its
tags and delivery URL, reading pages of the tagged content stream, and
exchanging OAuth authorization codes for access tokens.

Resilience:
  - Outbound requests are paced by a token bucket (golang.org/x/time/rate)
  - HTTP 429 is retried with exponential backoff honouring Retry-After
  - CircuitBreakerClient wraps the client with sony/gobreaker

Access tokens travel in the query string, so request URLs are redacted
before they can reach an error message or log line.
*/
package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/photowall/internal/config"
	"github.com/tomtom215/photowall/internal/metrics"
	"github.com/tomtom215/photowall/internal/models"
	"github.com/tomtom215/photowall/internal/validation"
)

// maxErrorBodySize limits how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// API is the subset of the social media API the ingestors need.
type API interface {
	MediaInfo(ctx context.Context, mediaID, accessToken string) (*models.SocialMedia, error)
	RecentTagged(ctx context.Context, tag, minTagID, accessToken string) (*models.TagPage, error)
}

// Client is a plain HTTP client for the API. Safe for concurrent use.
type Client struct {
	baseURL        string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a Client from configuration. httpClient may be nil.
func NewClient(cfg *config.InstagramConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	limit := rate.Limit(cfg.RateLimitPerSec)
	if cfg.RateLimitPerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.APIBaseURL, "/"),
		client:         httpClient,
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

// MediaInfo resolves a media id to its tags, type, uploader and
// highest-resolution delivery URL.
func (c *Client) MediaInfo(ctx context.Context, mediaID, accessToken string) (*models.SocialMedia, error) {
	if mediaID == "" {
		return nil, errors.New("media id is required")
	}
	params := url.Values{}
	params.Set("access_token", accessToken)

	var resp mediaResponse
	if err := c.get(ctx, "media", "/media/"+url.PathEscape(mediaID), params, &resp); err != nil {
		return nil, err
	}
	if err := checkMeta("media", resp.Meta); err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&resp.Data); verr != nil {
		return nil, fmt.Errorf("invalid media response: %w", verr)
	}

	m := resp.Data.toSocial()
	if m.URL == "" {
		return nil, fmt.Errorf("media %s has no image rendition", mediaID)
	}
	return &m, nil
}

// RecentTagged returns the page of posts tagged with tag that are newer than
// minTagID. An empty minTagID returns the newest page.
func (c *Client) RecentTagged(ctx context.Context, tag, minTagID, accessToken string) (*models.TagPage, error) {
	if tag == "" {
		return nil, errors.New("tag is required")
	}
	params := url.Values{}
	params.Set("access_token", accessToken)
	if minTagID != "" {
		params.Set("min_tag_id", minTagID)
	}

	var resp tagResponse
	if err := c.get(ctx, "tag_recent", "/tags/"+url.PathEscape(tag)+"/media/recent", params, &resp); err != nil {
		return nil, err
	}
	if err := checkMeta("tag_recent", resp.Meta); err != nil {
		return nil, err
	}

	page := &models.TagPage{NextCursor: resp.Pagination.MinTagID}
	for i := range resp.Data {
		item := &resp.Data[i]
		if verr := validation.ValidateStruct(item); verr != nil {
			continue
		}
		page.Items = append(page.Items, item.toSocial())
	}
	return page, nil
}

func checkMeta(endpoint string, m meta) error {
	// Some endpoints omit meta on success.
	if m.Code == 0 || m.Code == http.StatusOK {
		return nil
	}
	return &APIError{Endpoint: endpoint, Code: m.Code, Type: m.ErrorType, Message: m.ErrorMessage}
}

// get issues a GET and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, result interface{}) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	resp, err := c.doRequestWithRateLimit(ctx, endpoint, reqURL)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Meta meta `json:"meta"`
		}
		raw := readBodyForError(resp.Body)
		if json.Unmarshal(raw, &body) == nil && body.Meta.Code != 0 {
			return &APIError{Endpoint: endpoint, Code: body.Meta.Code, Type: body.Meta.ErrorType, Message: body.Meta.ErrorMessage}
		}
		return &APIError{Endpoint: endpoint, Code: resp.StatusCode, Message: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// doRequestWithRateLimit performs a GET, retrying HTTP 429 with
// exponential backoff (1s, 2s, 4s, ...) or the server's Retry-After.
func (c *Client) doRequestWithRateLimit(ctx context.Context, endpoint, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", redact(err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			metrics.RecordInstagramRequest(endpoint, "error")
			return nil, redact(err)
		}
		metrics.RecordInstagramRequest(endpoint, strconv.Itoa(resp.StatusCode))

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// redact strips the query string from URLs embedded in transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil {
			u.RawQuery = ""
			urlErr.URL = u.String()
		}
	}
	return err
}
