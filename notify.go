// Copyright 2025 The OHD Server Manager Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ohdsm

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Embed colors used for the different restart causes.
const (
	ColorModUpdate   = 10038562
	ColorBuildUpdate = 2067276
	ColorCrash       = 11027200
	ColorFatal       = 16711680
)

// Notifier receives human-readable status messages for crash, update, and
// restart events.  Delivery is strictly best effort: implementations must
// never return an error or block the control loop for long.
type Notifier interface {
	Notify(title string, description string, color int)
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

func (NoopNotifier) Notify(string, string, int) {}

// WebhookNotifier posts Discord-style embeds to a webhook URL.  A failed
// post is retried exactly once; both failures are logged and swallowed.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// NewWebhookNotifier returns a WebhookNotifier for url.  An empty url
// yields a notifier that logs (at most) and posts nothing.
func NewWebhookNotifier(url string, logger *log.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type webhookPayload struct {
	Content *string        `json:"content"`
	Embeds  []webhookEmbed `json:"embeds"`
}

func (n *WebhookNotifier) Notify(title string, description string, color int) {
	if n.url == "" {
		return
	}
	payload := webhookPayload{
		Embeds: []webhookEmbed{{Title: title, Description: description, Color: color}},
	}
	body, e := json.Marshal(payload)
	if e != nil {
		n.logger.Printf("Failed to encode webhook payload: %v", e)
		return
	}
	if n.post(body) == nil {
		n.logger.Printf("Webhook posted: %s", description)
		return
	}
	// One fallback attempt, then give up.  A down webhook must never
	// take the server manager with it.
	if e := n.post(body); e != nil {
		n.logger.Printf("Failed to post webhook (after retry): %v", e)
		return
	}
	n.logger.Printf("Webhook posted on retry: %s", description)
}

func (n *WebhookNotifier) post(body []byte) error {
	res, e := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if e != nil {
		return e
	}
	res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &httpStatusError{res.StatusCode, res.Status}
	}
	return nil
}

type httpStatusError struct {
	code   int
	status string
}

func (e *httpStatusError) Error() string {
	return e.status
}
