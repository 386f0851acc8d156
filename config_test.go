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
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		c := DefaultConfig()

		Convey("Stock settings are present", func() {
			So(c.AppID, ShouldEqual, "950900")
			So(c.WorkshopAppID, ShouldEqual, "736590")
			So(c.SteamUser, ShouldEqual, "anonymous")
			So(c.Port, ShouldEqual, 7777)
			So(c.UpdateInterval, ShouldEqual, 600)
			So(c.EnableAutoChecks, ShouldBeTrue)
			So(c.PurgeCache, ShouldBeTrue)
			So(len(c.Mods), ShouldEqual, 0)
		})

		Convey("Derived paths hang off the install directory", func() {
			So(c.WorkshopDir(), ShouldEqual, filepath.Join(c.InstallDir,
				"steamapps", "workshop", "content", "736590"))
			So(c.ModsDir(), ShouldEqual, filepath.Join(c.InstallDir,
				"HarshDoorstop", "Mods"))
			So(c.ExePath(), ShouldEqual,
				filepath.Join(c.BinDir(), c.ServerExe))
			So(c.RecordPath(), ShouldEqual,
				filepath.Join(c.InstallDir, "appinfo_950900.json"))
		})
	})

	Convey("Given a partial JSON document", t, func() {
		doc := `{
			"install_dir": "/srv/ohd",
			"map": "AAS-Compound",
			"mods": [
				{"id": "123", "folder": "CoolMod"}
			]
		}`
		c, e := ConfigFromJson(strings.NewReader(doc))
		So(e, ShouldBeNil)

		Convey("Named fields are overridden", func() {
			So(c.InstallDir, ShouldEqual, "/srv/ohd")
			So(c.Map, ShouldEqual, "AAS-Compound")
			So(len(c.Mods), ShouldEqual, 1)
			So(c.Mods[0].ItemID, ShouldEqual, "123")
			So(c.Mods[0].Folder, ShouldEqual, "CoolMod")
		})

		Convey("Unnamed fields keep their defaults", func() {
			So(c.AppID, ShouldEqual, "950900")
			So(c.Port, ShouldEqual, 7777)
			So(c.ManifestPath, ShouldEqual, "localupdates.json")
		})
	})

	Convey("Loading a missing file yields the defaults", t, func() {
		c, e := LoadConfig("/nonesuch/ohdsm.json")
		So(e, ShouldBeNil)
		So(c.AppID, ShouldEqual, "950900")
	})

	Convey("Malformed JSON is an error", t, func() {
		_, e := ConfigFromJson(strings.NewReader("{not json"))
		So(e, ShouldNotBeNil)
	})
}

func TestSteamCmdExe(t *testing.T) {
	Convey("SteamCMD entry points per platform", t, func() {
		So(steamCmdExe("windows"), ShouldEqual, "steamcmd.exe")
		So(steamCmdExe("linux"), ShouldEqual, "steamcmd.sh")
		So(steamCmdExe("darwin"), ShouldEqual, "steamcmd.sh")
	})
}
