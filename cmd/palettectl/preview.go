package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/lumastrip/server/pkg/palette"
	"github.com/spf13/pflag"
)

// previewer draws one palette frame across the full terminal width. Column
// i shows position offset+i with the terminal width as the domain size.
type previewer struct {
	screen tcell.Screen
	name   string
	p      *palette.Palette
	offset float64
	step   float64
}

func runPreview(args []string) error {
	fs := pflag.NewFlagSet("preview", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "config/server.yaml", "Path to configuration file")
	name := fs.StringP("palette", "n", "", "Palette name (default from config)")
	step := fs.Float64("step", 1, "Offset change per arrow key press")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, p, err := loadPalette(*configPath, *name)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	pv := &previewer{screen: screen, name: resolved, p: p, step: *step}
	pv.draw()
	for {
		ev := screen.PollEvent()
		if ev == nil || pv.handle(ev) {
			return nil
		}
	}
}

// handle applies one event and reports whether the preview should exit.
func (pv *previewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRune:
			if ev.Rune() == 'q' {
				return true
			}
			return false
		case tcell.KeyLeft:
			pv.offset -= pv.step
		case tcell.KeyRight:
			pv.offset += pv.step
		case tcell.KeyHome:
			pv.offset = 0
		default:
			return false
		}
		pv.draw()
	case *tcell.EventResize:
		pv.screen.Sync()
		pv.draw()
	}
	return false
}

func (pv *previewer) draw() {
	pv.screen.Clear()
	width, height := pv.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}

	rows := height - 1
	for col := 0; col < width; col++ {
		c, err := pv.p.GetIn(pv.offset+float64(col), float64(width))
		if err != nil {
			continue
		}
		r, g, b := c.Bytes()
		style := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
		for row := 0; row < rows; row++ {
			pv.screen.SetContent(col, row, ' ', nil, style)
		}
	}

	status := fmt.Sprintf(" %s  offset=%g  left/right: shift  home: reset  q: quit", pv.name, pv.offset)
	for i, ch := range []rune(status) {
		if i >= width {
			break
		}
		pv.screen.SetContent(i, height-1, ch, nil, tcell.StyleDefault)
	}
	pv.screen.Show()
}
