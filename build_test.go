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
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildChecker(t *testing.T) {
	logger := log.New(ioutil.Discard, "", 0)

	Convey("Given a build checker", t, func() {
		f := &fakeRunner{
			infoOut:   `"buildid"		"100"`,
			updateOut: "Success! App '950900' fully installed.",
		}
		steam, dir := newTestSteamCmd(t, f)
		Reset(func() { os.RemoveAll(dir) })

		install, e := ioutil.TempDir("", "ohdsm")
		So(e, ShouldBeNil)
		Reset(func() { os.RemoveAll(install) })

		record := filepath.Join(install, "appinfo_950900.json")
		bc := NewBuildChecker(steam, newFakeClock(), logger)

		Convey("First check installs and records the build", func() {
			st := bc.Check("950900", install, record)
			So(st, ShouldEqual, BuildUpdated)
			So(f.sawArg("+app_update"), ShouldBeTrue)

			rec, e := loadBuildRecord(record)
			So(e, ShouldBeNil)
			So(rec.AppID, ShouldEqual, "950900")
			So(rec.BuildID, ShouldEqual, "100")
			So(rec.Checked, ShouldNotBeEmpty)
		})

		Convey("A matching record is up to date and untouched", func() {
			So(bc.Check("950900", install, record), ShouldEqual, BuildUpdated)
			before, e := ioutil.ReadFile(record)
			So(e, ShouldBeNil)

			So(bc.Check("950900", install, record), ShouldEqual, BuildUpToDate)
			after, e := ioutil.ReadFile(record)
			So(e, ShouldBeNil)
			So(string(after), ShouldEqual, string(before))
		})

		Convey("A new build supersedes the recorded one", func() {
			So(bc.Check("950900", install, record), ShouldEqual, BuildUpdated)
			f.infoOut = `"buildid"		"101"`
			So(bc.Check("950900", install, record), ShouldEqual, BuildUpdated)
			rec, _ := loadBuildRecord(record)
			So(rec.BuildID, ShouldEqual, "101")
		})

		Convey("The record is written before the update runs", func() {
			f.updateErr = errors.New("exit status 8")
			So(bc.Check("950900", install, record), ShouldEqual,
				BuildCheckFailed)
			// The crash-safe ordering leaves the new id recorded.
			rec, e := loadBuildRecord(record)
			So(e, ShouldBeNil)
			So(rec.BuildID, ShouldEqual, "100")
		})

		Convey("Missing success markers still count as updated", func() {
			f.updateOut = "some future steamcmd chatter"
			So(bc.Check("950900", install, record), ShouldEqual, BuildUpdated)
		})

		Convey("An unparseable app info fails the check", func() {
			f.infoOut = "login failure"
			So(bc.Check("950900", install, record), ShouldEqual,
				BuildCheckFailed)
			So(f.sawArg("+app_update"), ShouldBeFalse)
		})

		Convey("A tool failure fails the check", func() {
			f.infoErr = errors.New("exit status 8")
			So(bc.Check("950900", install, record), ShouldEqual,
				BuildCheckFailed)
		})
	})
}
