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

// Package rest exposes the server manager over HTTP and provides the
// matching client.  GET endpoints carry Etags and support long polling,
// so the terminal monitor can wait for changes instead of hammering the
// daemon.
package rest

import (
	"time"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// PollEtagHeader and PollTimeHeader turn a GET into a long poll:
	// the server holds the request until its Etag differs from the
	// given one, or the time (in seconds) expires.
	PollEtagHeader = "X-Poll-Etag"
	PollTimeHeader = "X-Poll-Seconds"
)

var ok struct{}

// StatusInfo is the manager status document served at /status.
type StatusInfo struct {
	State          string    `json:"state"`
	Running        bool      `json:"running"`
	Pid            int       `json:"pid"`
	Iteration      int       `json:"iteration"`
	LoadList       string    `json:"load_list"`
	BuildCheck     string    `json:"build_check"`
	BuildCheckTime time.Time `json:"build_check_time"`
	Since          time.Time `json:"since"`

	etag string // client-side cache validator
}

// LogRecord mirrors the manager's retained log lines on the wire.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
