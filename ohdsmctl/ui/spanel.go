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

package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"
)

// StatusPanel is the main screen: the manager state, the server, and the
// installed content at a glance.
type StatusPanel struct {
	text *views.TextArea

	Panel
}

func NewStatusPanel(app *App) *StatusPanel {
	p := &StatusPanel{}
	p.Panel.Init(app)
	p.SetTitle("Server Status")
	p.SetKeys([]string{"[Q] Quit", "[L] Log", "[R] Restart", "[C] Check"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(tcell.StyleDefault.
		Foreground(tcell.ColorSilver).Background(tcell.ColorBlack))
	p.SetContent(p.text)
	p.update()
	return p
}

func (p *StatusPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *StatusPanel) HandleEvent(ev tcell.Event) bool {
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.Quit()
				return true
			case 'L', 'l':
				app.ShowLog()
				return true
			case 'R', 'r':
				app.RestartServer()
				return true
			case 'C', 'c':
				app.CheckNow()
				return true
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

// update must be called with the application lock held.
func (p *StatusPanel) update() {
	info, e := p.App().GetStatus()
	if info == nil {
		if e != nil {
			p.SetErrText(fmt.Sprintf("No data: %v", e))
		} else {
			p.SetStatus("Connecting ...")
		}
		p.text.SetLines([]string{""})
		return
	}

	if info.Running {
		p.SetGood(fmt.Sprintf("Server up, pid %d", info.Pid))
	} else if info.State == "crash-handling" || info.State == "restarting" {
		p.SetErrText("Server down")
	} else {
		p.SetWarn("Server " + info.State)
	}

	lines := []string{
		fmt.Sprintf("Daemon:      %s", p.App().url),
		fmt.Sprintf("State:       %s", info.State),
		fmt.Sprintf("Launches:    %d", info.Iteration),
	}
	if !info.Since.IsZero() {
		d := time.Since(info.Since)
		d -= d % time.Second
		lines = append(lines,
			fmt.Sprintf("Up for:      %s", d))
	}
	if info.LoadList != "" {
		lines = append(lines,
			fmt.Sprintf("Mods:        %s", info.LoadList))
	}
	check := info.BuildCheck
	if !info.BuildCheckTime.IsZero() {
		check += " (" + info.BuildCheckTime.Format(time.Stamp) + ")"
	}
	lines = append(lines, fmt.Sprintf("Build check: %s", check))
	p.text.SetLines(lines)
}
