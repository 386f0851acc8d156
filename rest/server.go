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

package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	ohdsm "github.com/PERPGamer/OHDServerManagerScript"
)

// maxPollSecs caps how long a single long poll may be held open.
const maxPollSecs = 300

// Supervisor is the slice of the manager the REST surface needs.  The
// concrete implementation is *ohdsm.Supervisor.
type Supervisor interface {
	State() ohdsm.LoopStatus
	Running() bool
	Pid() int
	Iteration() int
	LoadList() string
	StartedAt() time.Time
	LastBuildCheck() (ohdsm.BuildStatus, time.Time)
	Serial() int64
	WatchSerial(old int64, expire time.Duration) int64
	GetLog(last int64) ([]ohdsm.LogRecord, int64)
	WatchLog(last int64, expire time.Duration) int64
	RequestCheck()
	Restart()
}

// Handler exposes a Supervisor as an http.Handler.
type Handler struct {
	s            Supervisor
	r            *mux.Router
	manifestPath string
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, etag string, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		if etag != "" {
			w.Header().Set("Etag", etag)
		}
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

// pollWait honors the long-poll headers: when the request carries a poll
// Etag matching old, it blocks until the serial moves or the window
// expires.  It returns the serial the response should reflect.
func pollWait(r *http.Request, cur int64,
	watch func(int64, time.Duration) int64) int64 {

	etag := r.Header.Get(PollEtagHeader)
	secs, _ := strconv.Atoi(r.Header.Get(PollTimeHeader))
	if etag == "" || secs <= 0 {
		return cur
	}
	old, e := strconv.ParseInt(etag, 10, 64)
	if e != nil || old != cur {
		return cur
	}
	if secs > maxPollSecs {
		secs = maxPollSecs
	}
	return watch(old, time.Duration(secs)*time.Second)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	serial := pollWait(r, h.s.Serial(), h.s.WatchSerial)
	etag := strconv.FormatInt(serial, 10)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	bs, bt := h.s.LastBuildCheck()
	info := &StatusInfo{
		State:          h.s.State().String(),
		Running:        h.s.Running(),
		Pid:            h.s.Pid(),
		Iteration:      h.s.Iteration(),
		LoadList:       h.s.LoadList(),
		BuildCheck:     bs.String(),
		BuildCheckTime: bt,
		Since:          h.s.StartedAt(),
	}
	h.writeJson(w, etag, info)
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	if v := r.Header.Get(PollEtagHeader); v != "" {
		if secs, _ := strconv.Atoi(r.Header.Get(PollTimeHeader)); secs > 0 {
			if old, e := strconv.ParseInt(v, 10, 64); e == nil {
				if secs > maxPollSecs {
					secs = maxPollSecs
				}
				h.s.WatchLog(old, time.Duration(secs)*time.Second)
			}
		}
	}
	last := int64(0)
	if inm, e := strconv.ParseInt(r.Header.Get("If-None-Match"), 10, 64); e == nil {
		last = inm
	}
	recs, id := h.s.GetLog(last)
	etag := strconv.FormatInt(id, 10)
	if recs == nil && id == last {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	out := make([]LogRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, LogRecord{Id: rec.Id, Time: rec.Time, Text: rec.Text})
	}
	h.writeJson(w, etag, out)
}

func (h *Handler) getManifest(w http.ResponseWriter, r *http.Request) {
	m, e := ohdsm.LoadManifest(h.manifestPath)
	if e != nil {
		if errors.Is(e, ohdsm.ErrNoManifest) {
			h.writeError(w, &Error{http.StatusNotFound, e.Error()})
		} else {
			h.internalError(w, e)
		}
		return
	}
	h.writeJson(w, "", m)
}

func (h *Handler) postRestart(w http.ResponseWriter, r *http.Request) {
	h.s.Restart()
	h.writeJson(w, "", ok)
}

func (h *Handler) postCheck(w http.ResponseWriter, r *http.Request) {
	h.s.RequestCheck()
	h.writeJson(w, "", ok)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

// NewHandler returns an http.Handler serving s.  manifestPath locates the
// mod manifest for the /manifest endpoint.
func NewHandler(s Supervisor, manifestPath string) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r, manifestPath: manifestPath}
	r.HandleFunc("/status", h.getStatus).Methods("GET")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	r.HandleFunc("/manifest", h.getManifest).Methods("GET")
	r.HandleFunc("/restart", h.postRestart).Methods("POST")
	r.HandleFunc("/check", h.postCheck).Methods("POST")
	return h
}
