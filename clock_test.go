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
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeClock advances instantly: Sleep records the request and moves the
// clock forward, so time-driven loops can be tested without waiting.
type fakeClock struct {
	mx    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mx.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mx.Unlock()
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mx.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mx.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) sleeps(d time.Duration) int {
	c.mx.Lock()
	defer c.mx.Unlock()
	n := 0
	for _, s := range c.slept {
		if s == d {
			n++
		}
	}
	return n
}

func TestRealClock(t *testing.T) {
	Convey("The real clock tracks wall time", t, func() {
		c := NewClock()
		before := time.Now()
		So(c.Now().Before(before.Add(-time.Second)), ShouldBeFalse)
		select {
		case <-c.After(time.Millisecond):
		case <-time.After(time.Second):
			t.Errorf("After never fired")
		}
	})
}
