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

// +build darwin dragonfly freebsd linux netbsd openbsd solaris

// These tests launch a small shell script in place of the game server,
// which keeps them POSIX specific.

package ohdsm

import (
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// newTestProcess builds a ServerProcess whose "server" is a shell script
// that sleeps until signalled.
func newTestProcess(t *testing.T) (*ServerProcess, *Config, func()) {
	logger := log.New(ioutil.Discard, "", 0)

	install, e := ioutil.TempDir("", "ohdsm")
	if e != nil {
		t.Fatalf("TempDir: %v", e)
	}
	cfg := DefaultConfig()
	cfg.InstallDir = install
	cfg.GameBinRel = ""
	cfg.ServerExe = "server_stub.sh"

	script := "#!/bin/sh\ntrap 'exit 0' TERM\nwhile :; do sleep 1; done\n"
	if e := ioutil.WriteFile(cfg.ExePath(), []byte(script), 0755); e != nil {
		t.Fatalf("WriteFile: %v", e)
	}

	steam, steamDir := newTestSteamCmd(t, &fakeRunner{})
	p := NewServerProcess(cfg, steam, NewClock(), logger)
	cleanup := func() {
		p.Kill()
		os.RemoveAll(install)
		os.RemoveAll(steamDir)
	}
	return p, cfg, cleanup
}

func TestServerProcess(t *testing.T) {
	Convey("Given a server process", t, func() {
		p, cfg, cleanup := newTestProcess(t)
		Reset(cleanup)

		Convey("It starts and reports running", func() {
			So(p.Start(""), ShouldBeTrue)
			So(p.IsRunning(), ShouldBeTrue)
			So(p.Pid(), ShouldBeGreaterThan, 0)
		})

		Convey("Kill stops it and is idempotent", func() {
			So(p.Start("Alpha;Beta"), ShouldBeTrue)
			p.Kill()
			So(p.IsRunning(), ShouldBeFalse)
			So(p.Pid(), ShouldEqual, 0)
			So(p.Kill, ShouldNotPanic)
		})

		Convey("A dead child is noticed", func() {
			So(p.Start(""), ShouldBeTrue)
			pid := p.Pid()
			proc, e := os.FindProcess(pid)
			So(e, ShouldBeNil)
			proc.Kill()
			// Wait for the reaper to observe the exit.
			for i := 0; i < 100 && p.IsRunning(); i++ {
				time.Sleep(10 * time.Millisecond)
			}
			So(p.IsRunning(), ShouldBeFalse)
		})

		Convey("A missing executable fails the launch", func() {
			So(os.Remove(cfg.ExePath()), ShouldBeNil)
			So(p.Start(""), ShouldBeFalse)
			So(p.IsRunning(), ShouldBeFalse)
		})
	})
}

func TestLaunchArgs(t *testing.T) {
	Convey("The launch command line is assembled from the config", t, func() {
		cfg := DefaultConfig()
		cfg.Map = "AAS-Compound"
		cfg.GameMode = "HDCustomGameMode"
		cfg.ExtraParams = "?MaxPlayers=32"
		cfg.ServerTitle = "Test Server"
		p := &ServerProcess{cfg: cfg}

		args := p.launchArgs("Alpha;Beta")
		So(args[0], ShouldEqual,
			"AAS-Compound?game=HDCustomGameMode?MaxPlayers=32")
		So(args, ShouldContain, "-log")
		So(args, ShouldContain, "-Port=7777")
		So(args, ShouldContain, "-QueryPort=27005")
		So(args, ShouldContain, "-RCONPort=7779")
		So(args, ShouldContain, "-MapCycle=MapCycle.cfg")
		So(args, ShouldContain, "-SteamServerName=Test Server")
		So(args, ShouldContain, "-Mods=Alpha;Beta")

		Convey("Without mods the flag is omitted", func() {
			args := p.launchArgs("")
			So(args, ShouldNotContain, "-Mods=")
			for _, a := range args {
				So(a, ShouldNotStartWith, "-Mods")
			}
		})
	})
}
