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
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// ModEntry names one workshop item to install: the published item id on
// Steam, and the folder name the server loads it under.  The order of the
// entries in Config.Mods is the load order; it is never derived from the
// filesystem.
type ModEntry struct {
	ItemID string `json:"id"`
	Folder string `json:"folder"`
}

// Config is the immutable description of the managed server.  It is built
// once at startup (ConfigFromJson or DefaultConfig) and then only read;
// every component receives it by pointer and none of them mutates it.
type Config struct {
	// Steam identities and tool location.
	InstallDir    string `json:"install_dir"`
	AppID         string `json:"app_id"`
	WorkshopAppID string `json:"workshop_app_id"`
	SteamCmdDir   string `json:"steamcmd_dir"`
	SteamUser     string `json:"steam_user"`

	// Server binary location, relative to InstallDir.
	GameBinRel string `json:"game_bin_rel"`
	ServerExe  string `json:"server_exe"`

	// Launch arguments.
	Map         string `json:"map"`
	GameMode    string `json:"game_mode"`
	ExtraParams string `json:"extra_params"`
	Port        int    `json:"port"`
	QueryPort   int    `json:"query_port"`
	RCONPort    int    `json:"rcon_port"`
	MapCycle    string `json:"map_cycle"`
	ServerTitle string `json:"server_title"`

	// Workshop content, in load order.
	Mods []ModEntry `json:"mods"`

	// Where the mod manifest is kept.  Relative paths are resolved
	// against the manager's working directory, matching the original
	// deployment layout.
	ManifestPath string `json:"manifest_path"`

	// Timings, all in seconds.
	UpdateInterval int `json:"update_interval"`
	InitWaitTime   int `json:"init_wait_time"`
	RestartDelay   int `json:"restart_delay"`
	SettleDelay    int `json:"settle_delay"`

	// Policy switches.
	EnableAutoChecks bool `json:"enable_auto_update_checks"`
	PurgeCache       bool `json:"purge_cache"`

	// Notification webhook; empty disables posting.
	WebhookURL string `json:"webhook_url"`
}

// DefaultConfig returns a Config with the stock Harsh Doorstop settings
// for the current operating system.  Windows servers ship the Win64 build
// and use steamcmd.exe; everything else gets the Linux build and
// steamcmd.sh under the invoking user's home directory.
func DefaultConfig() *Config {
	c := &Config{
		AppID:            "950900",
		WorkshopAppID:    "736590",
		SteamUser:        "anonymous",
		Map:              "AAS-TestMap",
		ExtraParams:      "?MaxPlayers=16",
		Port:             7777,
		QueryPort:        27005,
		RCONPort:         7779,
		MapCycle:         "MapCycle.cfg",
		ServerTitle:      "Harsh Doorstop Dedicated Server",
		ManifestPath:     "localupdates.json",
		UpdateInterval:   600,
		InitWaitTime:     30,
		RestartDelay:     30,
		SettleDelay:      5,
		EnableAutoChecks: true,
		PurgeCache:       true,
	}
	switch runtime.GOOS {
	case "windows":
		c.InstallDir = `C:\OHDServers\OHDVanillaClassic`
		c.SteamCmdDir = `C:\steamcmd`
		c.GameBinRel = filepath.Join("HarshDoorstop", "Binaries", "Win64")
		c.ServerExe = "HarshDoorstopServer-Win64-Shipping.exe"
	default:
		home := os.Getenv("HOME")
		c.InstallDir = filepath.Join(home, "OHDServers", "OHDVanillaClassic")
		c.SteamCmdDir = filepath.Join(home, ".steamcmd")
		c.GameBinRel = filepath.Join("HarshDoorstop", "Binaries", "Linux")
		c.ServerExe = "HarshDoorstopServer-Linux-Shipping"
	}
	return c
}

// ConfigFromJson reads a JSON configuration document, layering it over the
// platform defaults.  Fields absent from the document keep their default
// values, so a minimal file need only name the install directory and mods.
func ConfigFromJson(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	dec := json.NewDecoder(r)
	if e := dec.Decode(c); e != nil {
		return nil, e
	}
	return c, nil
}

// LoadConfig reads the configuration file at path.  A missing file is not
// an error: the defaults are returned so the manager can run against a
// stock install.
func LoadConfig(path string) (*Config, error) {
	f, e := os.Open(path)
	if e != nil {
		if os.IsNotExist(e) {
			return DefaultConfig(), nil
		}
		return nil, e
	}
	defer f.Close()
	return ConfigFromJson(f)
}

// WorkshopDir is the transient cache SteamCMD downloads workshop items
// into, one subdirectory per item id.
func (c *Config) WorkshopDir() string {
	return filepath.Join(c.InstallDir, "steamapps", "workshop", "content",
		c.WorkshopAppID)
}

// ModsDir is the directory the server actually loads mods from.
func (c *Config) ModsDir() string {
	return filepath.Join(c.InstallDir, "HarshDoorstop", "Mods")
}

// BinDir is the directory holding the server executable; it is also the
// working directory the server is launched with.
func (c *Config) BinDir() string {
	return filepath.Join(c.InstallDir, c.GameBinRel)
}

// ExePath is the absolute path of the server executable.
func (c *Config) ExePath() string {
	return filepath.Join(c.BinDir(), c.ServerExe)
}

// RecordPath is where the build record for AppID is kept.
func (c *Config) RecordPath() string {
	return filepath.Join(c.InstallDir, "appinfo_"+c.AppID+".json")
}

// steamCmdExe returns the name of the SteamCMD entry point for an OS.
func steamCmdExe(goos string) string {
	if goos == "windows" {
		return "steamcmd.exe"
	}
	return "steamcmd.sh"
}
