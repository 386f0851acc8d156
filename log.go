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
	"strings"
	"sync"
	"time"
)

// DefaultLogRecords is the ring capacity used when NewLog is given zero.
const DefaultLogRecords = 1000

// LogRecord is one captured log line.  Ids increase monotonically and are
// unique for the lifetime of a Log, so they double as cache validators
// (Etags) for the REST log endpoint.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log keeps the most recent manager output in a fixed-size ring so the
// REST surface and the terminal monitor can show recent history without a
// log file.  It implements io.Writer and is normally fed through a
// MultiLogger alongside stderr and an optional file.
type Log struct {
	records []LogRecord
	next    int // index of the next slot to overwrite
	filled  bool
	id      int64
	cvs     map[*sync.Cond]bool
	mx      sync.Mutex
}

// NewLog returns a Log holding up to max records; max <= 0 selects
// DefaultLogRecords.
func NewLog(max int) *Log {
	if max <= 0 {
		max = DefaultLogRecords
	}
	return &Log{
		records: make([]LogRecord, max),
		// Seed the id from the clock so a restarted manager never
		// reissues an id a client might have cached.
		id:  time.Now().UnixNano(),
		cvs: make(map[*sync.Cond]bool),
	}
}

// Write implements io.Writer for use with log.Logger.  Input is line
// oriented; embedded newlines produce multiple records.
func (l *Log) Write(b []byte) (int, error) {
	text := strings.Trim(string(b), "\n")
	l.mx.Lock()
	for _, line := range strings.Split(text, "\n") {
		l.id++
		l.records[l.next] = LogRecord{Id: l.id, Time: time.Now(), Text: line}
		l.next++
		if l.next == len(l.records) {
			l.next = 0
			l.filled = true
		}
	}
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.mx.Unlock()
	return len(b), nil
}

// GetRecords returns the retained records in order, plus an id usable as
// an Etag.  If last matches the current id the log is unchanged and nil is
// returned immediately, so pollers never re-transfer identical content.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.id == last {
		return nil, last
	}
	var recs []LogRecord
	if l.filled {
		recs = make([]LogRecord, 0, len(l.records))
		recs = append(recs, l.records[l.next:]...)
		recs = append(recs, l.records[:l.next]...)
	} else {
		recs = append(recs, l.records[:l.next]...)
	}
	return recs, l.id
}

// Watch blocks until the log id differs from last, or until expire has
// passed.  An expire of zero polls.  The returned id is current either
// way.
func (l *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&l.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			l.mx.Lock()
			expired = true
			cv.Broadcast()
			l.mx.Unlock()
		})
	} else {
		expired = true
	}

	l.mx.Lock()
	l.cvs[cv] = true
	for l.id == last && !expired {
		cv.Wait()
	}
	delete(l.cvs, cv)
	rv := l.id
	l.mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// Clear drops all retained records.  The id keeps increasing so watchers
// notice the discontinuity.
func (l *Log) Clear() {
	l.mx.Lock()
	l.next = 0
	l.filled = false
	l.id = time.Now().UnixNano()
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.mx.Unlock()
}
