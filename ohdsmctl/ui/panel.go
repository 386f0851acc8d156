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
	"sync"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"
)

var (
	styleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorSilver)
	styleAccent = tcell.StyleDefault.
			Foreground(tcell.ColorBlue).
			Background(tcell.ColorSilver).Bold(true)
	styleGood = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorGreen).Bold(true)
	styleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorYellow)
	styleError = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorMaroon).Bold(true)
)

func newBar(style tcell.Style) *views.SimpleStyledTextBar {
	bar := &views.SimpleStyledTextBar{}
	bar.Init()
	bar.SetStyle(style)
	bar.RegisterLeftStyle('N', style)
	bar.RegisterLeftStyle('A', styleAccent)
	bar.RegisterCenterStyle('N', style)
	bar.RegisterRightStyle('N', style)
	return bar
}

// keyText renders "[X] Action" words so the bracketed key stands out.
func keyText(words []string) string {
	b := make([]rune, 0, 80)
	for i, w := range words {
		esc := false
		if i != 0 && len(w) != 0 {
			b = append(b, ' ')
		}
		for _, r := range w {
			if esc {
				if r == ']' {
					b = append(b, '%', 'N')
					esc = false
				} else if r == '%' {
					b = append(b, '%')
				}
				b = append(b, r)
			} else {
				b = append(b, r)
				if r == '[' {
					esc = true
					b = append(b, '%', 'A')
				} else if r == '%' {
					b = append(b, '%')
				}
			}
		}
	}
	return string(b)
}

// Panel is a views.Panel wired with the title, status, and key bars every
// screen in the monitor shares.
type Panel struct {
	tb   *views.SimpleStyledTextBar
	sb   *views.SimpleStyledTextBar
	kb   *views.SimpleStyledTextBar
	once sync.Once
	app  *App

	views.Panel
}

func (p *Panel) Init(app *App) {
	p.once.Do(func() {
		p.app = app

		p.tb = newBar(styleNormal)
		p.tb.SetRight(app.GetAppName())
		p.tb.SetCenter(" ")

		p.sb = newBar(styleNormal)
		p.kb = newBar(styleNormal)

		p.Panel.SetTitle(p.tb)
		p.Panel.SetMenu(p.sb)
		p.Panel.SetStatus(p.kb)
	})
}

func (p *Panel) SetTitle(title string) {
	p.tb.SetCenter(title)
}

func (p *Panel) SetKeys(words []string) {
	p.kb.SetLeft(keyText(words))
}

func (p *Panel) setStatus(text string, style tcell.Style) {
	p.sb.SetStyle(style)
	p.sb.RegisterLeftStyle('N', style)
	p.sb.SetLeft(text)
}

func (p *Panel) SetStatus(text string)  { p.setStatus(text, styleNormal) }
func (p *Panel) SetGood(text string)    { p.setStatus(text, styleGood) }
func (p *Panel) SetWarn(text string)    { p.setStatus(text, styleWarn) }
func (p *Panel) SetErrText(text string) { p.setStatus(text, styleError) }

func (p *Panel) App() *App {
	return p.app
}
