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
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWebhookNotifier(t *testing.T) {
	logger := log.New(ioutil.Discard, "", 0)

	Convey("A posted embed carries title, text, and color", t, func() {
		var got webhookPayload
		posts := 0
		ts := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				posts++
				b, _ := ioutil.ReadAll(r.Body)
				json.Unmarshal(b, &got)
				w.WriteHeader(http.StatusNoContent)
			}))
		defer ts.Close()

		n := NewWebhookNotifier(ts.URL, logger)
		n.Notify("My Server", "Server crashed, restarting.", ColorCrash)

		So(posts, ShouldEqual, 1)
		So(len(got.Embeds), ShouldEqual, 1)
		So(got.Embeds[0].Title, ShouldEqual, "My Server")
		So(got.Embeds[0].Description, ShouldEqual,
			"Server crashed, restarting.")
		So(got.Embeds[0].Color, ShouldEqual, ColorCrash)
	})

	Convey("A failed post is retried once", t, func() {
		posts := 0
		ts := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				posts++
				if posts == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
		defer ts.Close()

		n := NewWebhookNotifier(ts.URL, logger)
		n.Notify("My Server", "Restarting due to mod update.", ColorModUpdate)
		So(posts, ShouldEqual, 2)
	})

	Convey("Persistent failure is swallowed", t, func() {
		posts := 0
		ts := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				posts++
				w.WriteHeader(http.StatusBadGateway)
			}))
		defer ts.Close()

		n := NewWebhookNotifier(ts.URL, logger)
		So(func() {
			n.Notify("My Server", "whatever", ColorFatal)
		}, ShouldNotPanic)
		So(posts, ShouldEqual, 2)
	})

	Convey("An empty URL posts nothing", t, func() {
		n := NewWebhookNotifier("", logger)
		So(func() {
			n.Notify("My Server", "quiet", ColorBuildUpdate)
		}, ShouldNotPanic)
	})
}
