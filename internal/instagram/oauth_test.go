// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package instagram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/tomtom215/photowall/internal/config"
)

func newTestOAuth(t *testing.T, tokenBody string) (*OAuth, *url.Values) {
	t.Helper()
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, tokenBody)
	}))
	t.Cleanup(srv.Close)

	o := NewOAuth(&config.InstagramConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "https://wall.example/auth/instagram/callback",
		AuthURL:      srv.URL + "/oauth/authorize",
		TokenURL:     srv.URL + "/oauth/access_token",
	}, srv.Client())
	o.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return o, &form
}

func TestOAuth_AuthCodeURL(t *testing.T) {
	o, _ := newTestOAuth(t, `{}`)

	u, err := url.Parse(o.AuthCodeURL("state-123"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("state") != "state-123" || q.Get("response_type") != "code" {
		t.Errorf("query = %v", q)
	}
	if q.Get("redirect_uri") != "https://wall.example/auth/instagram/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestOAuth_Exchange(t *testing.T) {
	tests := []struct {
		name string
		body string
		id   string
	}{
		{"string id", `{"access_token":"tok-1","user":{"id":"456","username":"jane"}}`, "456"},
		{"numeric id", `{"access_token":"tok-1","user":{"id":456,"username":"jane"}}`, "456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, form := newTestOAuth(t, tt.body)

			id, cred, err := o.Exchange(context.Background(), "the-code")
			if err != nil {
				t.Fatalf("Exchange() error = %v", err)
			}
			if id != tt.id {
				t.Errorf("account id = %q, want %q", id, tt.id)
			}
			if cred.AccessToken != "tok-1" || cred.DisplayName != "jane" {
				t.Errorf("credential = %+v", cred)
			}
			if !cred.UpdatedAt.Equal(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)) {
				t.Errorf("UpdatedAt = %v", cred.UpdatedAt)
			}
			if form.Get("code") != "the-code" || form.Get("client_secret") != "secret" {
				t.Errorf("token request form = %v", *form)
			}
		})
	}
}

func TestOAuth_ExchangeWithoutUser(t *testing.T) {
	o, _ := newTestOAuth(t, `{"access_token":"tok-1"}`)

	_, _, err := o.Exchange(context.Background(), "code")
	if !errors.Is(err, ErrNoUser) {
		t.Errorf("error = %v, want ErrNoUser", err)
	}
}
