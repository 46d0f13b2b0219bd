// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/photowall/internal/config"
	"github.com/tomtom215/photowall/internal/models"
)

// ErrNoUser is returned when a token response does not identify its user.
var ErrNoUser = errors.New("token response carries no user")

// OAuth performs the authorization code flow that lets a contributor link
// their account so notifications about their posts can be resolved.
type OAuth struct {
	conf       *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewOAuth builds the flow from configuration. httpClient may be nil.
func NewOAuth(cfg *config.InstagramConfig, httpClient *http.Client) *OAuth {
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"basic"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// AuthCodeURL returns the provider URL the contributor is redirected to.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for a credential and reports the
// account id the credential belongs to.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, models.UserCredential, error) {
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return "", models.UserCredential{}, redact(fmt.Errorf("token exchange failed: %w", err))
	}

	raw, ok := tok.Extra("user").(map[string]interface{})
	if !ok {
		return "", models.UserCredential{}, ErrNoUser
	}
	accountID := stringField(raw["id"])
	if accountID == "" {
		return "", models.UserCredential{}, ErrNoUser
	}

	cred := models.UserCredential{
		DisplayName: stringField(raw["username"]),
		AccessToken: tok.AccessToken,
		UpdatedAt:   o.now().UTC(),
	}
	return accountID, cred, nil
}

// stringField renders a decoded JSON scalar as a string. Ids arrive as either
// strings or numbers depending on the API version.
func stringField(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
