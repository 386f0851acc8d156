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
	"time"
)

// Clock abstracts the time operations used by the supervisor.  The control
// loop has no scheduler other than blocking sleeps, so routing every sleep
// and timestamp through this interface lets tests run a full
// launch/monitor/restart cycle without real waiting.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks the calling goroutine for at least d.
	Sleep(d time.Duration)

	// After returns a channel that delivers the current time once d has
	// elapsed.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) Sleep(d time.Duration)                  { time.Sleep(d) }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewClock returns the real wall clock.
func NewClock() Clock {
	return realClock{}
}
