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

// Command ohdsmctl is the client for the server manager daemon.  It uses
// subcommands.
//
// The flags are
//
//	-a <address>	- daemon address, default is
//			  http://127.0.0.1:8321
//	-u <user:pass>	- user name & password for basic auth
//
// Subcommands are
//
//	status    - show manager and server status
//	log       - dump the retained manager log
//	manifest  - show the installed mod manifest
//	restart   - restart the game server
//	check     - run the update checks now
//	ui        - interactive monitor (the default)
//
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/PERPGamer/OHDServerManagerScript/ohdsmctl/ui"
	"github.com/PERPGamer/OHDServerManagerScript/rest"
)

var addr string = "http://127.0.0.1:8321"
var auth string = ""

func usage() {
	log.Fatalf("Usage: %s [-a <address>] [-u <user:pass>] <subcommand>",
		os.Args[0])
}

func showStatus(s *rest.StatusInfo) {
	run := "down"
	if s.Running {
		run = fmt.Sprintf("up (pid %d)", s.Pid)
	}
	fmt.Printf("State:       %s\n", s.State)
	fmt.Printf("Server:      %s\n", run)
	fmt.Printf("Launches:    %d\n", s.Iteration)
	if !s.Since.IsZero() {
		d := time.Since(s.Since)
		d -= d % time.Second
		fmt.Printf("Up for:      %s\n", d)
	}
	if s.LoadList != "" {
		fmt.Printf("Mods:        %s\n", s.LoadList)
	}
	fmt.Printf("Build check: %s", s.BuildCheck)
	if !s.BuildCheckTime.IsZero() {
		fmt.Printf(" (%s)", s.BuildCheckTime.Format(time.Stamp))
	}
	fmt.Printf("\n")
}

func main() {
	flag.StringVar(&addr, "a", addr, "daemon address")
	flag.StringVar(&auth, "u", auth, "user:pass authentication")
	flag.Parse()

	client := rest.NewClient(nil, addr)
	if auth != "" {
		a := strings.SplitN(auth, ":", 2)
		if len(a) != 2 {
			log.Fatalf("Bad user:pass supplied")
		}
		client.SetAuth(a[0], a[1])
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"ui"}
	}

	switch args[0] {
	case "status":
		s, e := client.GetStatus()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		showStatus(s)
	case "log":
		l, e := client.GetLog()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, r := range l.Records {
			fmt.Printf("%s %s\n",
				r.Time.Format(time.StampMilli), r.Text)
		}
	case "manifest":
		var m struct {
			DirPath string `json:"dirpath"`
			Mods    []struct {
				ID string `json:"id"`
				DT string `json:"dt"`
			} `json:"mods"`
		}
		if e := client.GetManifest(&m); e != nil {
			log.Fatalf("Failed: %v", e)
		}
		fmt.Printf("Cache: %s\n", m.DirPath)
		for _, mod := range m.Mods {
			fmt.Printf("%12s  %s\n", mod.ID, mod.DT)
		}
	case "restart":
		if e := client.Restart(); e != nil {
			log.Fatalf("Failed: %v", e)
		}
	case "check":
		if e := client.Check(); e != nil {
			log.Fatalf("Failed: %v", e)
		}
	case "ui":
		ui.NewApp(client, addr).Run()
	default:
		usage()
	}
}
