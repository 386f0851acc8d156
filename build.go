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
	"os"
	"regexp"
	"time"
)

// BuildStatus is the outcome of one build check.
type BuildStatus int

const (
	// BuildUpToDate means the installed build matches Steam.
	BuildUpToDate BuildStatus = iota
	// BuildUpdated means a newer build was found and installed.
	BuildUpdated
	// BuildCheckFailed means the check could not be completed; the
	// install is left as it was.
	BuildCheckFailed
)

func (s BuildStatus) String() string {
	switch s {
	case BuildUpToDate:
		return "up-to-date"
	case BuildUpdated:
		return "updated"
	case BuildCheckFailed:
		return "check-failed"
	}
	return "unknown"
}

// BuildRecord is the persisted record of the last build we installed (or
// decided not to reinstall).  It lives next to the game install as
// appinfo_<appid>.json.
type BuildRecord struct {
	AppID   string `json:"app_id"`
	BuildID string `json:"build_id"`
	Checked string `json:"checked"`
}

var buildIDRe = regexp.MustCompile(`"buildid"\s+"(\d+)"`)

// parseBuildID pulls the public-branch buildid out of app_info_print
// output.  The first buildid in the document is the public one.
func parseBuildID(output string) (string, bool) {
	m := buildIDRe.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// BuildChecker compares the installed server build against Steam and
// updates it in place when it is stale.
type BuildChecker struct {
	steam  *SteamCmd
	clock  Clock
	logger *log.Logger
}

// NewBuildChecker returns a BuildChecker using steam for tool access.
func NewBuildChecker(steam *SteamCmd, clock Clock, logger *log.Logger) *BuildChecker {
	return &BuildChecker{steam: steam, clock: clock, logger: logger}
}

func loadBuildRecord(path string) (*BuildRecord, error) {
	b, e := ioutil.ReadFile(path)
	if e != nil {
		return nil, e
	}
	rec := &BuildRecord{}
	if e := json.Unmarshal(b, rec); e != nil {
		return nil, e
	}
	return rec, nil
}

func saveBuildRecord(path string, rec *BuildRecord) error {
	b, e := json.MarshalIndent(rec, "", "  ")
	if e != nil {
		return e
	}
	return ioutil.WriteFile(path, b, 0644)
}

// Check queries Steam for the current build of appID and, if it differs
// from the recorded one, installs it into installDir.  The new build id is
// recorded before the update runs, so a crash mid-update does not cause the
// same update to be re-announced forever; validate on the next pass repairs
// any partial content.  When the recorded build matches, nothing is
// written: the record file stays byte for byte as it was.
func (bc *BuildChecker) Check(appID string, installDir string, recordPath string) BuildStatus {
	out, e := bc.steam.AppInfo(appID)
	if e != nil {
		bc.logger.Printf("Build check failed for app %s: %v", appID, e)
		return BuildCheckFailed
	}
	buildID, ok := parseBuildID(out)
	if !ok {
		bc.logger.Printf("No buildid found in app info for app %s", appID)
		return BuildCheckFailed
	}

	rec, e := loadBuildRecord(recordPath)
	if e != nil && !os.IsNotExist(e) {
		bc.logger.Printf("Ignoring unreadable build record %s: %v", recordPath, e)
	}
	if rec != nil && rec.AppID == appID && rec.BuildID == buildID {
		return BuildUpToDate
	}

	bc.logger.Printf("App %s build %s available (installed: %s); updating",
		appID, buildID, recordedBuild(rec))
	newRec := &BuildRecord{
		AppID:   appID,
		BuildID: buildID,
		Checked: bc.clock.Now().UTC().Format(time.RFC3339),
	}
	if e := saveBuildRecord(recordPath, newRec); e != nil {
		bc.logger.Printf("Failed to write build record %s: %v", recordPath, e)
	}

	out, e = bc.steam.AppUpdate(appID, installDir)
	if e != nil {
		bc.logger.Printf("App update failed for app %s: %v", appID, e)
		return BuildCheckFailed
	}
	if !updateSucceeded(out) {
		// SteamCMD output is not a stable interface.  Absent markers
		// get a warning but the update is assumed to have worked.
		bc.logger.Printf("App update output for app %s carried no success marker", appID)
	}
	bc.logger.Printf("App %s updated to build %s", appID, buildID)
	return BuildUpdated
}

func recordedBuild(rec *BuildRecord) string {
	if rec == nil || rec.BuildID == "" {
		return "none"
	}
	return rec.BuildID
}
