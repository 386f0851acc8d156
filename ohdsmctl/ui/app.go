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

// Package ui implements the interactive terminal monitor for the server
// manager daemon.
package ui

import (
	"time"

	"golang.org/x/net/context"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/PERPGamer/OHDServerManagerScript/rest"
)

type App struct {
	app    *views.Application
	view   views.View
	panel  views.Widget
	status *StatusPanel
	log    *LogPanel
	client *rest.Client
	url    string

	info    *rest.StatusInfo
	err     error
	logInfo *rest.LogInfo
	logErr  error

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowStatus() {
	a.show(a.status)
}

func (a *App) ShowLog() {
	a.show(a.log)
}

func (a *App) RestartServer() {
	go a.client.Restart()
}

func (a *App) CheckNow() {
	go a.client.Check()
}

func (a *App) Quit() {
	a.app.Quit()
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) GetAppName() string {
	return "OHD Server Manager v1.0"
}

// GetStatus returns the last status snapshot; must be called with the
// application lock held.
func (a *App) GetStatus() (*rest.StatusInfo, error) {
	return a.info, a.err
}

// GetLog returns the last log snapshot; must be called with the
// application lock held.
func (a *App) GetLog() (*rest.LogInfo, error) {
	return a.logInfo, a.logErr
}

// refreshStatus keeps the status snapshot current via long polls.
func (a *App) refreshStatus() {
	var last *rest.StatusInfo
	for {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Hour)
		info, e := a.client.WatchStatus(ctx, last)
		cancel()
		if e == nil {
			last = info
		}
		a.app.PostFunc(func() {
			a.info = info
			a.err = e
			a.app.Update()
		})
		if e != nil {
			time.Sleep(2 * time.Second)
		}
	}
}

func (a *App) refreshLog() {
	var last *rest.LogInfo
	for {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Hour)
		info, e := a.client.WatchLog(ctx, last)
		cancel()
		if e == nil {
			last = info
		}
		a.app.PostFunc(func() {
			a.logInfo = info
			a.logErr = e
			a.app.Update()
		})
		if e != nil {
			time.Sleep(2 * time.Second)
		}
	}
}

func NewApp(client *rest.Client, url string) *App {
	a := &App{}
	a.app = &views.Application{}
	a.client = client
	a.url = url
	a.status = NewStatusPanel(a)
	a.log = NewLogPanel(a)
	a.panel = a.status

	go a.refreshStatus()
	go a.refreshLog()
	return a
}

func (a *App) Run() {
	a.app.SetRootWidget(a)
	a.ShowStatus()
	go func() {
		// Periodic updates so durations tick along.
		for {
			a.app.Update()
			time.Sleep(time.Second)
		}
	}()
	a.app.Run()
}
