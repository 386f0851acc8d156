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

// ohdsmd is the server manager daemon.  It launches the dedicated server,
// keeps it running, syncs workshop content, and serves the management API.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ohdsm "github.com/PERPGamer/OHDServerManagerScript"
	"github.com/PERPGamer/OHDServerManagerScript/rest"
)

var (
	addr    = "127.0.0.1:8321"
	cfgFile = "ohdsm.json"
	logFile = ""
	once    = false
	debug   = false
	noHook  = false
	rebuild = false
)

func main() {
	flag.StringVar(&addr, "a", addr, "listen address")
	flag.StringVar(&cfgFile, "c", cfgFile, "configuration file")
	flag.StringVar(&logFile, "logfile", logFile, "log to file as well")
	flag.BoolVar(&once, "once", once, "run a single server lifetime and exit")
	flag.BoolVar(&debug, "debug", debug, "verbose logging")
	flag.BoolVar(&noHook, "no-webhook", noHook, "disable webhook notifications")
	flag.BoolVar(&rebuild, "rebuild-manifest", rebuild,
		"rebuild the mod manifest from the workshop cache and exit")
	flag.Parse()

	cfg, e := ohdsm.LoadConfig(cfgFile)
	if e != nil {
		log.Fatalf("Failed to load configuration %s: %v", cfgFile, e)
	}
	// The webhook URL can be kept out of the config file.
	if env := os.Getenv("OHD_DISCORD_WEBHOOK"); env != "" {
		cfg.WebhookURL = env
	}
	if noHook {
		cfg.WebhookURL = ""
	}

	ml := ohdsm.NewMultiLogger()
	ml.AddLogger(log.New(os.Stderr, "", log.LstdFlags))
	ring := ohdsm.NewLog(0)
	ml.AddLogger(log.New(ring, "", 0))
	if logFile != "" {
		f, e := os.OpenFile(logFile,
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if e != nil {
			log.Fatalf("Failed to open log file %s: %v", logFile, e)
		}
		defer f.Close()
		ml.AddLogger(log.New(f, "", log.LstdFlags))
	}
	logger := ml.Logger()

	if debug {
		if b, e := json.MarshalIndent(cfg, "", "  "); e == nil {
			logger.Printf("Effective configuration:\n%s", b)
		}
	}

	web := ohdsm.NewSteamWeb(logger)

	if rebuild {
		dir := cfg.WorkshopDir()
		if flag.Arg(0) != "" {
			dir = flag.Arg(0)
		}
		m, e := ohdsm.BuildManifest(dir, web, logger)
		if e != nil {
			log.Fatalf("Failed to rebuild manifest: %v", e)
		}
		if e := m.Save(cfg.ManifestPath); e != nil {
			log.Fatalf("Failed to save manifest %s: %v",
				cfg.ManifestPath, e)
		}
		logger.Printf("Manifest rebuilt: %s (%d mods)",
			cfg.ManifestPath, len(m.Mods))
		return
	}

	if _, e := ohdsm.EnsureSteamCmd(cfg.SteamCmdDir, logger); e != nil {
		logger.Printf("SteamCMD unavailable: %v", e)
	}

	clock := ohdsm.NewClock()
	steam := ohdsm.NewSteamCmd(cfg.SteamCmdDir, cfg.SteamUser, logger)
	builds := ohdsm.NewBuildChecker(steam, clock, logger)
	mods := ohdsm.NewModChecker(web, cfg.ManifestPath, logger)
	syncer := ohdsm.NewSynchronizer(cfg, steam, web, clock, logger)
	proc := ohdsm.NewServerProcess(cfg, steam, clock, logger)

	var notify ohdsm.Notifier = ohdsm.NoopNotifier{}
	if cfg.WebhookURL != "" {
		notify = ohdsm.NewWebhookNotifier(cfg.WebhookURL, logger)
	}

	sup := ohdsm.NewSupervisor(cfg, proc, builds, mods, syncer, notify,
		clock, ring, logger, once)

	go func() {
		log.Fatal(http.ListenAndServe(addr,
			rest.NewHandler(sup, cfg.ManifestPath)))
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Printf("Signal received; shutting down")
		sup.Stop()
		sup.Restart()
	}()

	if e := sup.Run(); e != nil {
		log.Fatalf("Supervisor failed: %v", e)
	}
}
