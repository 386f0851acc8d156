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
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Synchronizer installs the configured workshop mods: download into the
// SteamCMD cache, record timestamps in the manifest, stage each item's
// payload into the server's Mods directory, and optionally purge the
// cache.
type Synchronizer struct {
	cfg    *Config
	steam  *SteamCmd
	web    *SteamWeb
	clock  Clock
	logger *log.Logger
}

// NewSynchronizer returns a Synchronizer for cfg.
func NewSynchronizer(cfg *Config, steam *SteamCmd, web *SteamWeb, clock Clock,
	logger *log.Logger) *Synchronizer {

	return &Synchronizer{cfg: cfg, steam: steam, web: web, clock: clock,
		logger: logger}
}

// Sync performs a full content sync and returns the semicolon-joined load
// list in configured order, plus whether a sync actually ran.  With no
// mods configured it returns ("", false) without touching the filesystem.
// Per-item failures are logged and skipped; the item's folder still
// appears in the load list so a transient download failure does not
// silently drop a mod from the server's load order.
func (s *Synchronizer) Sync() (string, bool) {
	if len(s.cfg.Mods) == 0 {
		return "", false
	}

	// Give a just-stopped server a moment to release file handles on
	// the mod tree before we rewrite it.
	for i := s.cfg.SettleDelay; i > 0; i-- {
		s.logger.Printf("Syncing mods in %d...", i)
		s.clock.Sleep(time.Second)
	}

	for _, mod := range s.cfg.Mods {
		s.logger.Printf("Downloading workshop item %s", mod.ItemID)
		if e := s.steam.DownloadItem(s.cfg.InstallDir,
			s.cfg.WorkshopAppID, mod.ItemID); e != nil {
			s.logger.Printf("Download of item %s failed: %v", mod.ItemID, e)
		}
	}

	if m, e := BuildManifest(s.cfg.WorkshopDir(), s.web, s.logger); e != nil {
		s.logger.Printf("Could not build manifest: %v", e)
	} else if e := m.Save(s.cfg.ManifestPath); e != nil {
		s.logger.Printf("Could not save manifest: %v", e)
	}

	modsDir := s.cfg.ModsDir()
	if e := os.MkdirAll(modsDir, 0755); e != nil {
		s.logger.Printf("Could not create %s: %v", modsDir, e)
		return "", false
	}

	folders := make([]string, 0, len(s.cfg.Mods))
	for _, mod := range s.cfg.Mods {
		folders = append(folders, mod.Folder)
		cache := filepath.Join(s.cfg.WorkshopDir(), mod.ItemID)
		payload, e := payloadRoot(cache)
		if e != nil {
			s.logger.Printf("Skipping item %s: %v", mod.ItemID, e)
			continue
		}
		dst := filepath.Join(modsDir, mod.Folder)
		if e := os.RemoveAll(dst); e != nil {
			s.logger.Printf("Could not clear %s: %v", dst, e)
			continue
		}
		if e := copyTree(payload, dst); e != nil {
			s.logger.Printf("Could not stage item %s into %s: %v",
				mod.ItemID, dst, e)
			continue
		}
		s.logger.Printf("Staged workshop item %s as %s", mod.ItemID, mod.Folder)
	}

	if s.cfg.PurgeCache {
		s.purge()
	}

	return strings.Join(folders, ";"), true
}

// payloadRoot finds the directory inside a downloaded workshop item that
// holds the actual mod content.  Items are packaged as a single wrapper
// directory; when more than one is present the lexicographically first is
// taken so the choice is stable across syncs.
func payloadRoot(cache string) (string, error) {
	infos, e := ioutil.ReadDir(cache)
	if e != nil {
		return "", e
	}
	var dirs []string
	for _, fi := range infos {
		if fi.IsDir() {
			dirs = append(dirs, fi.Name())
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoPayload, cache)
	}
	sort.Strings(dirs)
	return filepath.Join(cache, dirs[0]), nil
}

func (s *Synchronizer) purge() {
	infos, e := ioutil.ReadDir(s.cfg.WorkshopDir())
	if e != nil {
		return
	}
	for _, fi := range infos {
		if !fi.IsDir() {
			continue
		}
		dir := filepath.Join(s.cfg.WorkshopDir(), fi.Name())
		if e := os.RemoveAll(dir); e != nil {
			s.logger.Printf("Could not purge %s: %v", dir, e)
		}
	}
}

// copyTree recursively copies src to dst, preserving file modes.
func copyTree(src, dst string) error {
	fi, e := os.Stat(src)
	if e != nil {
		return e
	}
	if e := os.MkdirAll(dst, fi.Mode()&0777|0700); e != nil {
		return e
	}
	infos, e := ioutil.ReadDir(src)
	if e != nil {
		return e
	}
	for _, info := range infos {
		sp := filepath.Join(src, info.Name())
		dp := filepath.Join(dst, info.Name())
		if info.IsDir() {
			if e := copyTree(sp, dp); e != nil {
				return e
			}
			continue
		}
		b, e := ioutil.ReadFile(sp)
		if e != nil {
			return e
		}
		if e := ioutil.WriteFile(dp, b, info.Mode()&0777); e != nil {
			return e
		}
	}
	return nil
}
