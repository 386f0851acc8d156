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
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeSteamAPI serves GetPublishedFileDetails for a fixed set of items.
// Item ids mapped to zero get no timestamp; ids absent from the map get an
// HTTP error.
func fakeSteamAPI(items map[string]int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			id := r.FormValue("publishedfileids[0]")
			ts, ok := items[id]
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprintf(w, `{"response":{"publishedfiledetails":[`+
				`{"publishedfileid":%q,"time_updated":%d}]}}`,
				id, ts)
		}))
}

func newTestSteamWeb(base string) *SteamWeb {
	return &SteamWeb{
		base:   base,
		client: &http.Client{},
		logger: log.New(ioutil.Discard, "", 0),
	}
}

func TestSteamWeb(t *testing.T) {
	Convey("Given a fake Steam API", t, func() {
		when := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
		ts := fakeSteamAPI(map[string]int64{
			"123": when.Unix(),
			"456": 0,
		})
		Reset(ts.Close)
		web := newTestSteamWeb(ts.URL)

		Convey("A known item yields its timestamp", func() {
			got, ok, e := web.ItemUpdatedAt("123")
			So(e, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(got.Unix(), ShouldEqual, when.Unix())
		})

		Convey("A zero timestamp is reported as absent", func() {
			_, ok, e := web.ItemUpdatedAt("456")
			So(e, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("A server error is an error", func() {
			_, _, e := web.ItemUpdatedAt("999")
			So(e, ShouldNotBeNil)
		})
	})
}

func TestManifest(t *testing.T) {
	logger := log.New(ioutil.Discard, "", 0)

	Convey("Given a manifest on disk", t, func() {
		dir, e := ioutil.TempDir("", "ohdsm")
		So(e, ShouldBeNil)
		Reset(func() { os.RemoveAll(dir) })
		path := filepath.Join(dir, "localupdates.json")

		m := &Manifest{
			DirPath: "/srv/cache",
			Mods: []ManifestEntry{
				{ID: "123", DT: "2025-05-01 08:30:00"},
				{ID: "456", DT: manifestNA},
			},
		}
		So(m.Save(path), ShouldBeNil)

		Convey("It round-trips", func() {
			got, e := LoadManifest(path)
			So(e, ShouldBeNil)
			So(got.DirPath, ShouldEqual, "/srv/cache")
			So(len(got.Mods), ShouldEqual, 2)
			So(got.Mods[1].DT, ShouldEqual, "NA")
		})

		Convey("A missing file is ErrNoManifest", func() {
			_, e := LoadManifest(filepath.Join(dir, "nothere.json"))
			So(errors.Is(e, ErrNoManifest), ShouldBeTrue)
		})
	})

	Convey("BuildManifest scans the cache directory", t, func() {
		when := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
		ts := fakeSteamAPI(map[string]int64{
			"123": when.Unix(),
		})
		Reset(ts.Close)
		web := newTestSteamWeb(ts.URL)

		cache, e := ioutil.TempDir("", "ohdsm")
		So(e, ShouldBeNil)
		Reset(func() { os.RemoveAll(cache) })
		So(os.Mkdir(filepath.Join(cache, "456"), 0755), ShouldBeNil)
		So(os.Mkdir(filepath.Join(cache, "123"), 0755), ShouldBeNil)
		// Loose files in the cache are not workshop items.
		So(ioutil.WriteFile(filepath.Join(cache, "stray.txt"),
			[]byte("x"), 0644), ShouldBeNil)

		m, e := BuildManifest(cache, web, logger)
		So(e, ShouldBeNil)
		So(len(m.Mods), ShouldEqual, 2)
		So(m.Mods[0].ID, ShouldEqual, "123")
		So(m.Mods[0].DT, ShouldEqual, formatModTime(when))
		// 456 cannot be queried; it is recorded as NA.
		So(m.Mods[1].ID, ShouldEqual, "456")
		So(m.Mods[1].DT, ShouldEqual, manifestNA)
	})
}

func TestModChecker(t *testing.T) {
	logger := log.New(ioutil.Discard, "", 0)
	when := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)

	Convey("Given a mod checker", t, func() {
		dir, e := ioutil.TempDir("", "ohdsm")
		So(e, ShouldBeNil)
		Reset(func() { os.RemoveAll(dir) })
		path := filepath.Join(dir, "localupdates.json")

		ts := fakeSteamAPI(map[string]int64{
			"123": when.Unix(),
		})
		Reset(ts.Close)
		mc := NewModChecker(newTestSteamWeb(ts.URL), path, logger)

		Convey("A missing manifest reports no updates", func() {
			So(mc.Check(), ShouldBeFalse)
		})

		Convey("Matching timestamps report no updates", func() {
			m := &Manifest{Mods: []ManifestEntry{
				{ID: "123", DT: formatModTime(when)},
			}}
			So(m.Save(path), ShouldBeNil)
			So(mc.Check(), ShouldBeFalse)
		})

		Convey("A changed timestamp reports an update", func() {
			m := &Manifest{Mods: []ManifestEntry{
				{ID: "123", DT: "2024-01-01 00:00:00"},
			}}
			So(m.Save(path), ShouldBeNil)
			So(mc.Check(), ShouldBeTrue)
		})

		Convey("An NA entry updates once the query works", func() {
			m := &Manifest{Mods: []ManifestEntry{
				{ID: "123", DT: manifestNA},
			}}
			So(m.Save(path), ShouldBeNil)
			So(mc.Check(), ShouldBeTrue)
		})

		Convey("Query failures fail open", func() {
			m := &Manifest{Mods: []ManifestEntry{
				{ID: "999", DT: "2024-01-01 00:00:00"},
			}}
			So(m.Save(path), ShouldBeNil)
			So(mc.Check(), ShouldBeFalse)
		})
	})
}
