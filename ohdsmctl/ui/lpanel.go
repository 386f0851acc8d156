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

// LogPanel shows the daemon's retained log.
type LogPanel struct {
	text *views.TextArea

	Panel
}

func NewLogPanel(app *App) *LogPanel {
	p := &LogPanel{}
	p.Panel.Init(app)
	p.SetTitle("Manager Log")
	p.SetKeys([]string{"[ESC] Status", "[Q] Quit"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(tcell.StyleDefault.
		Foreground(tcell.ColorSilver).Background(tcell.ColorBlack))
	p.SetContent(p.text)
	p.update()
	return p
}

func (p *LogPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *LogPanel) HandleEvent(ev tcell.Event) bool {
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowStatus()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.Quit()
				return true
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

// update must be called with the application lock held.
func (p *LogPanel) update() {
	info, e := p.App().GetLog()
	if info == nil {
		if e != nil {
			p.SetErrText(fmt.Sprintf("No data: %v", e))
		} else {
			p.SetStatus("Loading ...")
		}
		p.text.SetLines([]string{""})
		return
	}

	p.SetStatus(fmt.Sprintf("%d lines", len(info.Records)))
	lines := make([]string, 0, len(info.Records))
	for _, r := range info.Records {
		lines = append(lines, fmt.Sprintf("%s %s",
			r.Time.Format(time.StampMilli), r.Text))
	}
	p.text.SetLines(lines)
}
