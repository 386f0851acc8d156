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
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// LoopStatus is the phase the supervision loop is in.
type LoopStatus int

const (
	// LoopIdle means Run has not started yet.
	LoopIdle LoopStatus = iota
	// LoopStarting means the server is being launched.
	LoopStarting
	// LoopInitWait means the server launched and is being given time to
	// come up before monitoring begins.
	LoopInitWait
	// LoopMonitoring is steady state: the server is up and polled for
	// liveness.
	LoopMonitoring
	// LoopPeriodicCheck means update checks are running against a live
	// server.
	LoopPeriodicCheck
	// LoopCrashHandling means the server died and the cause is being
	// classified.
	LoopCrashHandling
	// LoopRestarting means a new launch is imminent.
	LoopRestarting
	// LoopStopped means the loop has exited.
	LoopStopped
)

func (s LoopStatus) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopStarting:
		return "starting"
	case LoopInitWait:
		return "init-wait"
	case LoopMonitoring:
		return "monitoring"
	case LoopPeriodicCheck:
		return "checking"
	case LoopCrashHandling:
		return "crash-handling"
	case LoopRestarting:
		return "restarting"
	case LoopStopped:
		return "stopped"
	}
	return "unknown"
}

// ManagedProcess is the process-control surface the loop drives.  The
// concrete implementation is ServerProcess; tests inject fakes.
type ManagedProcess interface {
	Start(loadList string) bool
	IsRunning() bool
	Kill()
	Pid() int
}

// BuildOracle answers whether the server build is current.
type BuildOracle interface {
	Check(appID string, installDir string, recordPath string) BuildStatus
}

// ModOracle answers whether any installed workshop item has been updated.
type ModOracle interface {
	Check() bool
}

// Syncer installs workshop content and returns the resulting load list.
type Syncer interface {
	Sync() (string, bool)
}

// Supervisor runs the supervision loop: launch the server, watch it,
// check for updates, classify crashes, and restart.  All state transitions
// happen on the loop goroutine; getters take the lock so the REST surface
// sees consistent snapshots.
type Supervisor struct {
	cfg      *Config
	proc     ManagedProcess
	builds   BuildOracle
	mods     ModOracle
	syncer   Syncer
	notify   Notifier
	clock    Clock
	ring     *Log
	logger   *log.Logger
	once     bool
	stopCh   chan struct{}
	stopOnce sync.Once
	checkReq int32

	mx         sync.Mutex
	state      LoopStatus
	iteration  int
	loadList   string
	startedAt  time.Time
	lastBuild  BuildStatus
	lastBuildT time.Time
	serial     int64
	cvs        map[*sync.Cond]bool
}

// NewSupervisor assembles a Supervisor.  If once is true the loop runs a
// single server lifetime and then returns instead of restarting.
func NewSupervisor(cfg *Config, proc ManagedProcess, builds BuildOracle,
	mods ModOracle, syncer Syncer, notify Notifier, clock Clock,
	ring *Log, logger *log.Logger, once bool) *Supervisor {

	return &Supervisor{
		cfg:       cfg,
		proc:      proc,
		builds:    builds,
		mods:      mods,
		syncer:    syncer,
		notify:    notify,
		clock:     clock,
		ring:      ring,
		logger:    logger,
		once:      once,
		stopCh:    make(chan struct{}),
		state:     LoopIdle,
		lastBuild: BuildCheckFailed,
		// Seed the serial from the clock so restarting the manager
		// invalidates any Etag a client may have cached.
		serial: time.Now().UnixNano(),
		cvs:    make(map[*sync.Cond]bool),
	}
}

func (s *Supervisor) bump() {
	// called with lock held
	s.serial++
	for cv := range s.cvs {
		cv.Broadcast()
	}
}

func (s *Supervisor) setState(st LoopStatus) {
	s.mx.Lock()
	if s.state != st {
		s.state = st
		s.bump()
	}
	s.mx.Unlock()
}

// Serial returns a value that changes whenever externally visible state
// changes; it is used as an Etag by the REST server.
func (s *Supervisor) Serial() int64 {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.serial
}

// WatchSerial blocks until the serial differs from old, or until expire
// has passed.  An expire of zero polls.  The current serial is returned.
func (s *Supervisor) WatchSerial(old int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&s.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.mx.Lock()
			expired = true
			cv.Broadcast()
			s.mx.Unlock()
		})
	} else {
		expired = true
	}

	s.mx.Lock()
	s.cvs[cv] = true
	for s.serial == old && !expired {
		cv.Wait()
	}
	delete(s.cvs, cv)
	rv := s.serial
	s.mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// State returns the current loop phase.
func (s *Supervisor) State() LoopStatus {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// Iteration returns how many times the server has been launched.
func (s *Supervisor) Iteration() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.iteration
}

// LoadList returns the mod load list of the current server lifetime.
func (s *Supervisor) LoadList() string {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.loadList
}

// StartedAt returns when the current server lifetime began.
func (s *Supervisor) StartedAt() time.Time {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.startedAt
}

// LastBuildCheck returns the outcome and time of the most recent build
// check.
func (s *Supervisor) LastBuildCheck() (BuildStatus, time.Time) {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.lastBuild, s.lastBuildT
}

// Pid returns the pid of the running server, or zero.
func (s *Supervisor) Pid() int {
	return s.proc.Pid()
}

// Running reports whether the managed server is currently alive.
func (s *Supervisor) Running() bool {
	return s.proc.IsRunning()
}

// GetLog returns retained log records newer than the given Etag.
func (s *Supervisor) GetLog(last int64) ([]LogRecord, int64) {
	return s.ring.GetRecords(last)
}

// WatchLog blocks until the log changes or expire passes.
func (s *Supervisor) WatchLog(last int64, expire time.Duration) int64 {
	return s.ring.Watch(last, expire)
}

// RequestCheck asks the loop to run its update checks at the next
// monitoring tick instead of waiting for the interval to elapse.
func (s *Supervisor) RequestCheck() {
	atomic.StoreInt32(&s.checkReq, 1)
	s.logger.Printf("Update check requested")
}

func (s *Supervisor) takeCheckRequest() bool {
	return atomic.SwapInt32(&s.checkReq, 0) != 0
}

// Restart kills the running server.  The loop notices the death, treats it
// like a crash, and relaunches.
func (s *Supervisor) Restart() {
	s.logger.Printf("Restart requested")
	s.proc.Kill()
}

// Stop asks the loop to exit after the current iteration.  The running
// server is killed by Run on the way out.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Supervisor) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Supervisor) checkBuild() BuildStatus {
	st := s.builds.Check(s.cfg.AppID, s.cfg.InstallDir, s.cfg.RecordPath())
	s.mx.Lock()
	s.lastBuild = st
	s.lastBuildT = s.clock.Now()
	s.bump()
	s.mx.Unlock()
	return st
}

// Run executes the supervision loop until Stop is called (or, with once
// set, until one server lifetime ends).  A panic anywhere in the loop is
// announced on the notifier and re-raised; the loop never limps on in an
// unknown state.
func (s *Supervisor) Run() error {
	defer func() {
		if r := recover(); r != nil {
			s.notify.Notify(s.cfg.ServerTitle,
				fmt.Sprintf("Server manager crashed: %v", r),
				ColorFatal)
			panic(r)
		}
	}()

	s.logger.Printf("Server manager starting (app %s)", s.cfg.AppID)

	st := s.checkBuild()
	s.logger.Printf("Initial build check: %s", st)

	if list, ok := s.syncer.Sync(); ok {
		s.mx.Lock()
		s.loadList = list
		s.bump()
		s.mx.Unlock()
		s.logger.Printf("Initial mod sync complete: %s", list)
	}

	for !s.stopped() {
		s.iterate()
		if s.once {
			break
		}
	}

	s.proc.Kill()
	s.setState(LoopStopped)
	s.logger.Printf("Server manager stopped")
	return nil
}

// iterate runs one server lifetime: launch, init wait, monitor, and crash
// handling.  It returns when the server is dead and the loop should start
// over.
func (s *Supervisor) iterate() {
	s.setState(LoopStarting)

	s.mx.Lock()
	s.iteration++
	list := s.loadList
	s.mx.Unlock()

	if !s.proc.Start(list) {
		s.logger.Printf("Launch failed; retrying in %ds", s.cfg.RestartDelay)
		s.clock.Sleep(time.Duration(s.cfg.RestartDelay) * time.Second)
		return
	}

	s.mx.Lock()
	s.startedAt = s.clock.Now()
	s.bump()
	s.mx.Unlock()

	crashed := false

	// The server gets InitWaitTime seconds to come up before monitoring
	// starts.  Dying during this window is still a crash.
	s.setState(LoopInitWait)
	for i := 0; i < s.cfg.InitWaitTime && !s.stopped(); i++ {
		s.clock.Sleep(time.Second)
		if !s.proc.IsRunning() {
			crashed = true
			break
		}
	}

	if !crashed {
		s.setState(LoopMonitoring)
		sinceCheck := 0
		for !s.stopped() {
			s.clock.Sleep(5 * time.Second)
			if !s.proc.IsRunning() {
				crashed = true
				break
			}
			sinceCheck += 5
			auto := s.cfg.EnableAutoChecks &&
				sinceCheck >= s.cfg.UpdateInterval
			if auto || s.takeCheckRequest() {
				sinceCheck = 0
				if s.periodicCheck() {
					break
				}
			}
		}
	}

	if s.stopped() {
		return
	}

	if crashed {
		s.setState(LoopCrashHandling)
		s.handleCrash()
	}

	s.setState(LoopRestarting)
	s.logger.Printf("Restarting server in %ds", s.cfg.RestartDelay)
	s.clock.Sleep(time.Duration(s.cfg.RestartDelay) * time.Second)
}

// periodicCheck runs the update checks against a live server.  It returns
// true when the server was taken down for an update and the loop should
// fall through to a restart.  A panic inside a check is contained here so
// one bad check does not kill the manager.
func (s *Supervisor) periodicCheck() (restart bool) {
	s.setState(LoopPeriodicCheck)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("Update check panicked: %v", r)
			restart = false
		}
		if !restart {
			s.setState(LoopMonitoring)
		}
	}()

	s.logger.Printf("Running periodic update checks")

	if len(s.cfg.Mods) > 0 && s.mods.Check() {
		s.notify.Notify(s.cfg.ServerTitle,
			"Restarting due to mod update.", ColorModUpdate)
		s.proc.Kill()
		if list, ok := s.syncer.Sync(); ok {
			s.mx.Lock()
			s.loadList = list
			s.bump()
			s.mx.Unlock()
		}
		return true
	}

	if s.checkBuild() == BuildUpdated {
		s.notify.Notify(s.cfg.ServerTitle,
			"Restarting due to server build update.", ColorBuildUpdate)
		s.proc.Kill()
		return true
	}

	return false
}

// handleCrash classifies an unexpected server death.  An update that
// landed while the server was dying is reported as such; anything else is
// a plain crash.  Either way the loop restarts the server.
func (s *Supervisor) handleCrash() {
	s.logger.Printf("Server is down; classifying")
	s.proc.Kill()

	if len(s.cfg.Mods) > 0 && s.mods.Check() {
		s.notify.Notify(s.cfg.ServerTitle,
			"Restarting due to mod update (post-crash).", ColorModUpdate)
		if list, ok := s.syncer.Sync(); ok {
			s.mx.Lock()
			s.loadList = list
			s.bump()
			s.mx.Unlock()
		}
		return
	}

	if s.checkBuild() == BuildUpdated {
		s.notify.Notify(s.cfg.ServerTitle,
			"Restarting due to server build update (post-crash).",
			ColorBuildUpdate)
		return
	}

	s.notify.Notify(s.cfg.ServerTitle,
		"Server crashed, restarting.", ColorCrash)
}
