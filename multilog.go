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
	"log"
	"strings"
	"sync"
)

// MultiLogger fans a single log.Logger out to several destinations: the
// in-memory Log ring, stderr, and an optional log file all receive the
// same lines.  Each destination logger keeps its own prefix and flags.
type MultiLogger struct {
	front *log.Logger
	outs  []*log.Logger
	mx    sync.Mutex
}

// NewMultiLogger returns a MultiLogger with no destinations attached.
func NewMultiLogger() *MultiLogger {
	m := &MultiLogger{}
	m.front = log.New(m, "", 0)
	return m
}

// Logger returns the front logger that components should write to.
func (m *MultiLogger) Logger() *log.Logger {
	return m.front
}

// Write delivers each input line to every attached destination.  The
// log.Logger contract hands us whole lines, but we split defensively in
// case a caller writes multi-line text.
func (m *MultiLogger) Write(b []byte) (int, error) {
	lines := strings.Split(strings.Trim(string(b), "\n"), "\n")
	m.mx.Lock()
	for _, line := range lines {
		for _, out := range m.outs {
			out.Println(line)
		}
	}
	m.mx.Unlock()
	return len(b), nil
}

// AddLogger attaches a destination.  Adding the same logger twice is a
// no-op.
func (m *MultiLogger) AddLogger(out *log.Logger) {
	m.mx.Lock()
	defer m.mx.Unlock()
	for _, x := range m.outs {
		if x == out {
			return
		}
	}
	m.outs = append(m.outs, out)
}

// DelLogger detaches a destination previously added with AddLogger.
func (m *MultiLogger) DelLogger(out *log.Logger) {
	m.mx.Lock()
	defer m.mx.Unlock()
	for i, x := range m.outs {
		if x == out {
			m.outs = append(m.outs[:i], m.outs[i+1:]...)
			return
		}
	}
}
