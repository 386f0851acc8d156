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
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"
)

const steamWebBase = "https://api.steampowered.com"

// SteamWeb queries the public Steam Web API for workshop item metadata.
// Only the published file details endpoint is used, and only to learn the
// last-updated timestamp of an item.
type SteamWeb struct {
	base   string
	client *http.Client
	logger *log.Logger
}

// NewSteamWeb returns a SteamWeb against the public API.
func NewSteamWeb(logger *log.Logger) *SteamWeb {
	return &SteamWeb{
		base:   steamWebBase,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type fileDetailsResponse struct {
	Response struct {
		PublishedFileDetails []struct {
			PublishedFileID string `json:"publishedfileid"`
			TimeUpdated     int64  `json:"time_updated"`
		} `json:"publishedfiledetails"`
	} `json:"response"`
}

// ItemUpdatedAt returns the last update time of a workshop item.  The
// second return value is false when Steam answered but did not include a
// usable timestamp (hidden or deleted items do this); an error means the
// query itself failed.
func (w *SteamWeb) ItemUpdatedAt(itemID string) (time.Time, bool, error) {
	form := url.Values{}
	form.Set("itemcount", "1")
	form.Set("publishedfileids[0]", itemID)
	res, e := w.client.PostForm(
		w.base+"/ISteamRemoteStorage/GetPublishedFileDetails/v1/", form)
	if e != nil {
		return time.Time{}, false, e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return time.Time{}, false, &httpStatusError{res.StatusCode, res.Status}
	}
	var body fileDetailsResponse
	if e := json.NewDecoder(res.Body).Decode(&body); e != nil {
		return time.Time{}, false, e
	}
	details := body.Response.PublishedFileDetails
	if len(details) == 0 || details[0].TimeUpdated == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(details[0].TimeUpdated, 0), true, nil
}

// formatModTime renders a workshop timestamp the way the manifest stores
// it, in local time.
func formatModTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
