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
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/context"
)

// LogInfo is a cached view of the manager log.
type LogInfo struct {
	etag    string
	Records []LogRecord
}

// Client talks to the manager daemon.  Status and log responses are
// cached by Etag, so repeated polls transfer nothing when nothing has
// changed.
type Client struct {
	user      string // HTTP Basic-Auth
	pass      string
	base      string // URI to root of tree on server
	auth      bool
	client    *http.Client
	transport *http.Transport

	// Cached data
	status *StatusInfo
	log    *LogInfo
	lock   sync.Mutex
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) pollStatus(ctx context.Context, secs int, last *StatusInfo) (*StatusInfo, error) {

	v := &StatusInfo{}
	c.lock.Lock()
	cached := c.status
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
	} else if cached != nil && last.etag != cached.etag {
		// The cache already holds something newer than the caller has.
		return cached, nil
	} else {
		otag = last.etag
	}

	etag, e := c.poll(ctx, c.base+"/status", otag, secs, v)
	if e != nil {
		c.lock.Lock()
		c.status = nil
		c.lock.Unlock()
		return nil, e
	}
	if etag == "" {
		return cached, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.status = v
	c.lock.Unlock()
	return v, nil
}

// GetStatus fetches the manager status without waiting.
func (c *Client) GetStatus() (*StatusInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.pollStatus(ctx, 0, nil)
}

// WatchStatus blocks (up to five minutes) until the status differs from
// last, and returns the new status.
func (c *Client) WatchStatus(ctx context.Context, last *StatusInfo) (*StatusInfo, error) {
	return c.pollStatus(ctx, 300, last)
}

func (c *Client) pollLog(ctx context.Context, secs int, last *LogInfo) (*LogInfo, error) {

	v := &LogInfo{}
	c.lock.Lock()
	cached := c.log
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
	} else if cached != nil && last.etag != cached.etag {
		return cached, nil
	} else {
		otag = last.etag
	}

	etag, e := c.poll(ctx, c.base+"/log", otag, secs, &v.Records)
	if e != nil {
		c.lock.Lock()
		c.log = nil
		c.lock.Unlock()
		return nil, e
	}
	if etag == "" {
		return cached, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.log = v
	c.lock.Unlock()
	return v, nil
}

// GetLog fetches the retained manager log without waiting.
func (c *Client) GetLog() (*LogInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.pollLog(ctx, 0, nil)
}

// WatchLog blocks (up to five minutes) until the log differs from last.
func (c *Client) WatchLog(ctx context.Context, last *LogInfo) (*LogInfo, error) {
	return c.pollLog(ctx, 300, last)
}

// GetManifest fetches the installed-mod manifest.  The value is decoded
// into the supplied structure so this package does not depend on the
// manifest's concrete type.
func (c *Client) GetManifest(v interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, e := c.poll(ctx, c.base+"/manifest", "", 0, v)
	return e
}

// Restart asks the daemon to restart the game server.
func (c *Client) Restart() error {
	return c.post(c.base + "/restart")
}

// Check asks the daemon to run its update checks now.
func (c *Client) Check() error {
	return c.post(c.base + "/check")
}

type chanResp struct {
	r *http.Response
	e error
}

// poll issues an HTTP GET against the URL, optionally checking for a cache,
// including optionally issuing a long poll that tries to wait until the
// value changes.  The return values are the new Etag and any error.  If the
// value did not change, then the returned etag will be "", but the error
// will be nil.
func (c *Client) poll(ctx context.Context, url string, etag string, wait int, v interface{}) (string, error) {

	req, e := http.NewRequest("GET", url, nil)
	if e != nil {
		return "", e
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	client := c.client
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(wait))
		}
	}

	ch := make(chan chanResp)
	go func() {
		res, e := client.Do(req)
		ch <- chanResp{r: res, e: e}
	}()

	var res *http.Response
	select {
	case <-ctx.Done():
		c.transport.CancelRequest(req)
		<-ch // wait for the Do to finish (or be canceled)
		return "", ctx.Err()
	case cr := <-ch:
		res = cr.r
		e = cr.e
	}
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", &Error{Code: res.StatusCode, Message: res.Status}
	}
	body, e := ioutil.ReadAll(res.Body)
	if e != nil {
		return "", e
	}
	if e := json.Unmarshal(body, v); e != nil {
		return "", e
	}
	return res.Header.Get("Etag"), nil
}

func (c *Client) post(url string) error {
	req, e := http.NewRequest("POST", url, strings.NewReader(""))
	if e != nil {
		return e
	}
	req.Header.Set("Content-Type", "text/plain") // we don't really care
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return &Error{Code: res.StatusCode, Message: res.Status}
	}
	return nil
}

// NewClient returns a Client handle.  The transport may be nil to use a
// default transport, but it may also be adjusted to support additional
// options such as TLS.  baseURI is the base URL to use.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	return &Client{
		transport: t,
		base:      baseURI,
		client:    &http.Client{Transport: t},
	}
}
