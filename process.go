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
	"bufio"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// ServerProcess launches and tracks the dedicated server executable.  At
// most one child is running at a time; the control loop serializes all
// calls, so the lock only guards against the REST surface reading state
// concurrently.
type ServerProcess struct {
	cfg      *Config
	steam    *SteamCmd
	clock    Clock
	logger   *log.Logger
	cmd      *exec.Cmd
	pid      int
	exited   bool
	done     chan struct{}
	stopTime time.Duration
	lock     sync.Mutex
}

// NewServerProcess returns a ServerProcess for cfg.  steam is used for the
// best-effort validation pass before each launch.
func NewServerProcess(cfg *Config, steam *SteamCmd, clock Clock,
	logger *log.Logger) *ServerProcess {

	return &ServerProcess{
		cfg:      cfg,
		steam:    steam,
		clock:    clock,
		logger:   logger,
		stopTime: 10 * time.Second,
	}
}

// launchArgs builds the server command line.  The map specifier is the
// single positional argument; everything else is a dash option.
func (p *ServerProcess) launchArgs(loadList string) []string {
	spec := p.cfg.Map
	if p.cfg.GameMode != "" {
		spec += "?game=" + p.cfg.GameMode
	}
	spec += p.cfg.ExtraParams

	args := []string{
		spec,
		"-log",
		"-Port=" + strconv.Itoa(p.cfg.Port),
		"-QueryPort=" + strconv.Itoa(p.cfg.QueryPort),
		"-RCONPort=" + strconv.Itoa(p.cfg.RCONPort),
		"-MapCycle=" + p.cfg.MapCycle,
		"-SteamServerName=" + p.cfg.ServerTitle,
	}
	if loadList != "" {
		args = append(args, "-Mods="+loadList)
	}
	return args
}

// Start validates the install and launches the server with the given mod
// load list.  It returns false if the executable could not be started; the
// caller decides how to back off.
func (p *ServerProcess) Start(loadList string) bool {
	// Validation before launch is best effort; a failure here means the
	// server starts with whatever content is on disk.
	if _, e := p.steam.AppUpdate(p.cfg.AppID, p.cfg.InstallDir); e != nil {
		p.logger.Printf("Pre-launch validation failed: %v", e)
	}

	exe := p.cfg.ExePath()
	if _, e := os.Stat(exe); e != nil {
		p.logger.Printf("Server executable missing: %s", exe)
		return false
	}

	cmd := exec.Command(exe, p.launchArgs(loadList)...)
	cmd.Dir = p.cfg.BinDir()

	stdout, e := cmd.StdoutPipe()
	if e != nil {
		p.logger.Printf("Failed to open stdout pipe: %v", e)
		return false
	}
	stderr, e := cmd.StderrPipe()
	if e != nil {
		p.logger.Printf("Failed to open stderr pipe: %v", e)
		return false
	}

	if e := cmd.Start(); e != nil {
		p.logger.Printf("Failed to launch server: %v", e)
		return false
	}

	done := make(chan struct{})
	p.lock.Lock()
	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.exited = false
	p.done = done
	p.lock.Unlock()

	go p.doLog("stdout> ", stdout)
	go p.doLog("stderr> ", stderr)
	go p.doWait(cmd, done)

	p.logger.Printf("Server launched, pid %d", cmd.Process.Pid)
	return true
}

// doLog copies child output into the manager log, one line at a time.
func (p *ServerProcess) doLog(prefix string, rd io.Reader) {
	scan := bufio.NewScanner(rd)
	for scan.Scan() {
		p.logger.Print(prefix + scan.Text())
	}
}

func (p *ServerProcess) doWait(cmd *exec.Cmd, done chan struct{}) {
	e := cmd.Wait()
	p.lock.Lock()
	p.exited = true
	p.lock.Unlock()
	if e != nil {
		p.logger.Printf("Server exited: %v", e)
	} else {
		p.logger.Printf("Server exited cleanly")
	}
	close(done)
}

// IsRunning reports whether the server is alive.  A process we launched is
// tracked directly; one adopted by pid (after a manager restart) is probed
// with a null signal.
func (p *ServerProcess) IsRunning() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.cmd != nil {
		return !p.exited
	}
	if p.pid != 0 {
		proc, e := os.FindProcess(p.pid)
		if e != nil {
			return false
		}
		return proc.Signal(syscall.Signal(0)) == nil
	}
	return false
}

// Kill stops the server: SIGTERM first, and SIGKILL if it has not exited
// within the stop window.  Kill is idempotent; calling it with no child
// running is a no-op.
func (p *ServerProcess) Kill() {
	p.lock.Lock()
	cmd := p.cmd
	done := p.done
	exited := p.exited
	p.cmd = nil
	p.pid = 0
	p.done = nil
	p.lock.Unlock()

	if cmd == nil || exited {
		return
	}

	p.logger.Printf("Stopping server, pid %d", cmd.Process.Pid)
	if e := cmd.Process.Signal(syscall.SIGTERM); e != nil {
		p.logger.Printf("SIGTERM failed: %v", e)
	}
	select {
	case <-done:
	case <-p.clock.After(p.stopTime):
		p.logger.Printf("Server ignored SIGTERM; killing")
		cmd.Process.Kill()
		<-done
	}
}

// Pid returns the pid of the running server, or zero.
func (p *ServerProcess) Pid() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pid
}
