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
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// steamCmdTarURL is where the Linux SteamCMD tarball is fetched from when
// no installation is present.
const steamCmdTarURL = "https://steamcdn-a.akamaihd.net/client/installer/steamcmd_linux.tar.gz"

// CommandRunner executes an external tool and returns its combined
// output.  The production runner shells out; tests substitute a scripted
// fake so no SteamCMD binary is needed.
type CommandRunner interface {
	Run(dir string, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(dir string, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, e := cmd.CombinedOutput()
	return string(out), e
}

// SteamCmd wraps the SteamCMD tool.  Success and failure of the
// update-style commands is inferred from textual markers in the captured
// output; that is weak verification, kept deliberately: unknown output is
// assumed to mean success, and only a failure to execute the tool at all
// is reported as an error.
type SteamCmd struct {
	dir    string
	user   string
	runner CommandRunner
	logger *log.Logger
}

// NewSteamCmd returns a SteamCmd rooted at dir, logging in as user
// (normally "anonymous").
func NewSteamCmd(dir string, user string, logger *log.Logger) *SteamCmd {
	return &SteamCmd{dir: dir, user: user, runner: execRunner{}, logger: logger}
}

func (s *SteamCmd) exe() string {
	return filepath.Join(s.dir, steamCmdExe(runtime.GOOS))
}

func (s *SteamCmd) run(args ...string) (string, error) {
	exe := s.exe()
	if _, e := os.Stat(exe); e != nil {
		s.logger.Printf("steamcmd not found at %s", exe)
		return "", fmt.Errorf("%w: %s", ErrToolFailed, exe)
	}
	out, e := s.runner.Run(s.dir, exe, args...)
	if e != nil {
		return out, fmt.Errorf("%w: %v", ErrToolFailed, e)
	}
	return out, nil
}

// AppInfo queries Steam for the application metadata of appID and returns
// the raw SteamCMD output for the caller to parse.
func (s *SteamCmd) AppInfo(appID string) (string, error) {
	return s.run(
		"+login", "anonymous",
		"+app_info_update", "1",
		"+app_info_print", appID,
		"+quit")
}

// AppUpdate runs an in-place validated update of appID into installDir
// and returns the captured output.
func (s *SteamCmd) AppUpdate(appID string, installDir string) (string, error) {
	return s.run(
		"+login", s.user,
		"+force_install_dir", installDir,
		"+app_update", appID, "validate",
		"+quit")
}

// DownloadItem fetches one workshop item into installDir's workshop
// cache.
func (s *SteamCmd) DownloadItem(installDir, workshopAppID, itemID string) error {
	_, e := s.run(
		"+force_install_dir", installDir,
		"+login", s.user,
		"+workshop_download_item", workshopAppID, itemID,
		"+quit")
	return e
}

// updateSucceeded reports whether SteamCMD output carries one of the known
// success markers for app_update.
func updateSucceeded(output string) bool {
	return strings.Contains(output, "Success! App") ||
		strings.Contains(output, "fully installed")
}

// EnsureSteamCmd makes sure a SteamCMD installation exists under dir,
// downloading and unpacking the Linux tarball when it is missing.  On
// Windows there is no sanctioned automatic install, so a missing
// steamcmd.exe is simply reported.  Returns the path of the entry point.
func EnsureSteamCmd(dir string, logger *log.Logger) (string, error) {
	exe := filepath.Join(dir, steamCmdExe(runtime.GOOS))
	if _, e := os.Stat(exe); e == nil {
		return exe, nil
	}
	if runtime.GOOS == "windows" {
		return "", fmt.Errorf("%w: %s", ErrToolFailed, exe)
	}
	logger.Printf("SteamCMD not found at %s; downloading", dir)
	if e := os.MkdirAll(dir, 0755); e != nil {
		return "", e
	}
	res, e := http.Get(steamCmdTarURL)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", &httpStatusError{res.StatusCode, res.Status}
	}
	if e := untarGz(res.Body, dir); e != nil {
		return "", e
	}
	if e := os.Chmod(exe, 0755); e != nil {
		return "", e
	}
	logger.Printf("SteamCMD installed to %s", dir)
	return exe, nil
}

func untarGz(r io.Reader, dir string) error {
	gz, e := gzip.NewReader(r)
	if e != nil {
		return e
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, e := tr.Next()
		if e == io.EOF {
			return nil
		}
		if e != nil {
			return e
		}
		// Flatten any path tricks from the archive.
		name := filepath.Join(dir, filepath.Clean("/"+hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if e := os.MkdirAll(name, 0755); e != nil {
				return e
			}
		case tar.TypeReg:
			if e := os.MkdirAll(filepath.Dir(name), 0755); e != nil {
				return e
			}
			f, e := os.OpenFile(name,
				os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
				os.FileMode(hdr.Mode)&0777)
			if e != nil {
				return e
			}
			if _, e := io.Copy(f, tr); e != nil {
				f.Close()
				return e
			}
			if e := f.Close(); e != nil {
				return e
			}
		}
	}
}
