// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package api

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the provider signs with HMAC-SHA1
	"encoding/base64"
	"encoding/xml"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/photowall/internal/ingest"
	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/metrics"
)

// maxMMSMedia is the most attachments a single MMS can carry.
const maxMMSMedia = 10

// twimlResponse is the reply document for the MMS webhook.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// Message handles the inbound MMS webhook. The reply is always 200 with a
// TwiML body; only a failed signature check is refused. A malformed form
// gets the negative acknowledgment.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		metrics.RecordWebhook("mms", "rejected")
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Malformed MMS webhook form")
		respondTwiML(w, h.config.Twilio.NegativeAck)
		return
	}

	if h.config.Twilio.AuthToken != "" {
		if !validTwilioSignature(h.config.Twilio.AuthToken, h.config.Twilio.PublicURL, r.PostForm, r.Header.Get("X-Twilio-Signature")) {
			metrics.RecordWebhook("mms", "forbidden")
			logging.Ctx(r.Context()).Warn().Msg("MMS webhook signature mismatch")
			respondError(w, http.StatusForbidden, "FORBIDDEN", "invalid request signature", nil)
			return
		}
	}

	msg := parseMMSForm(r.PostForm)
	accepted := h.webhooks.HandleMMS(r.Context(), msg)

	reply := h.config.Twilio.NegativeAck
	if accepted {
		reply = h.config.Twilio.PositiveAck
	}
	respondTwiML(w, reply)
}

// parseMMSForm reads the sender and attachments from the webhook form. A
// missing or unparseable media count yields a message without media.
func parseMMSForm(form url.Values) ingest.MMSMessage {
	msg := ingest.MMSMessage{From: form.Get("From")}

	n, err := strconv.Atoi(strings.TrimSpace(form.Get("NumMedia")))
	if err != nil || n <= 0 {
		return msg
	}
	if n > maxMMSMedia {
		n = maxMMSMedia
	}

	for i := 0; i < n; i++ {
		idx := strconv.Itoa(i)
		u := form.Get("MediaUrl" + idx)
		if u == "" {
			continue
		}
		msg.Media = append(msg.Media, ingest.MMSAttachment{
			URL:         u,
			ContentType: form.Get("MediaContentType" + idx),
		})
	}
	return msg
}

// validTwilioSignature checks the HMAC-SHA1 of the public URL followed by
// every form key and value in key order.
func validTwilioSignature(authToken, publicURL string, form url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	expected := twilioSignature(authToken, publicURL, form)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func twilioSignature(authToken, publicURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(publicURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func respondTwiML(w http.ResponseWriter, message string) {
	body, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal TwiML reply")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append([]byte(xml.Header), body...)); err != nil {
		logging.Error().Err(err).Msg("Failed to write TwiML reply")
	}
}
