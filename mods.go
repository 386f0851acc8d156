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
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"sort"
)

// manifestNA is recorded when a workshop item's timestamp could not be
// learned.  Entries carrying it never match a live timestamp, so the item
// is treated as updated on the next comparison that succeeds.
const manifestNA = "NA"

// ManifestEntry records the last-updated timestamp observed for one
// installed workshop item.
type ManifestEntry struct {
	ID string `json:"id"`
	DT string `json:"dt"`
}

// Manifest is the local bookkeeping of installed workshop content: which
// mods directory it describes and, per item, the timestamp Steam reported
// when the item was installed.
type Manifest struct {
	DirPath string          `json:"dirpath"`
	Mods    []ManifestEntry `json:"mods"`
}

// LoadManifest reads the manifest at path.  A missing file yields
// ErrNoManifest, which callers treat as "no content installed yet".
func LoadManifest(path string) (*Manifest, error) {
	b, e := ioutil.ReadFile(path)
	if e != nil {
		if os.IsNotExist(e) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, path)
		}
		return nil, e
	}
	m := &Manifest{}
	if e := json.Unmarshal(b, m); e != nil {
		return nil, e
	}
	return m, nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	b, e := json.MarshalIndent(m, "", "  ")
	if e != nil {
		return e
	}
	return ioutil.WriteFile(path, b, 0644)
}

// BuildManifest constructs a manifest from the contents of a mods cache
// directory, querying Steam for each item's current timestamp.  Items whose
// timestamp cannot be learned are recorded as "NA".  Entries are sorted by
// item id so rebuilds are deterministic.
func BuildManifest(dir string, web *SteamWeb, logger *log.Logger) (*Manifest, error) {
	infos, e := ioutil.ReadDir(dir)
	if e != nil {
		return nil, e
	}
	m := &Manifest{DirPath: dir}
	for _, fi := range infos {
		if !fi.IsDir() {
			continue
		}
		id := fi.Name()
		dt := manifestNA
		if t, ok, e := web.ItemUpdatedAt(id); e != nil {
			logger.Printf("Could not query workshop item %s: %v", id, e)
		} else if ok {
			dt = formatModTime(t)
		}
		m.Mods = append(m.Mods, ManifestEntry{ID: id, DT: dt})
	}
	sort.Slice(m.Mods, func(i, j int) bool {
		return m.Mods[i].ID < m.Mods[j].ID
	})
	return m, nil
}

// ModChecker compares the recorded workshop timestamps against Steam.
type ModChecker struct {
	web          *SteamWeb
	manifestPath string
	logger       *log.Logger
}

// NewModChecker returns a ModChecker reading the manifest at manifestPath.
func NewModChecker(web *SteamWeb, manifestPath string, logger *log.Logger) *ModChecker {
	return &ModChecker{web: web, manifestPath: manifestPath, logger: logger}
}

// Check reports whether any recorded workshop item has been updated on
// Steam since it was installed.  Query failures for individual items are
// logged and treated as "not updated" (fail open), so a flaky Steam API
// never forces a restart.  A missing manifest also reports false; the next
// sync will create one.
func (mc *ModChecker) Check() bool {
	m, e := LoadManifest(mc.manifestPath)
	if e != nil {
		mc.logger.Printf("Mod check skipped: %v", e)
		return false
	}
	updated := false
	for _, ent := range m.Mods {
		t, ok, e := mc.web.ItemUpdatedAt(ent.ID)
		if e != nil {
			mc.logger.Printf("Could not query workshop item %s: %v", ent.ID, e)
			continue
		}
		if !ok {
			mc.logger.Printf("Workshop item %s has no timestamp; skipping", ent.ID)
			continue
		}
		if dt := formatModTime(t); dt != ent.DT {
			mc.logger.Printf("Workshop item %s updated (%s -> %s)",
				ent.ID, ent.DT, dt)
			updated = true
		}
	}
	return updated
}
