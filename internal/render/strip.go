// Package render provides strip rendering using fogleman/gg.
package render

import (
	"bytes"
	"errors"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/lumastrip/server/pkg/palette"
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("render: no colors")

// Config contains renderer configuration.
type Config struct {
	PixelSize int // width in pixels of one strip position
}

// StripRenderer renders resolved color strips as PNG images.
type StripRenderer struct {
	config     Config
	bufferPool sync.Pool
}

// NewStripRenderer creates a new strip renderer.
func NewStripRenderer(cfg Config) *StripRenderer {
	if cfg.PixelSize <= 0 {
		cfg.PixelSize = 1
	}
	return &StripRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 16*1024))
			},
		},
	}
}

// PixelSize returns the rendered width of one position.
func (r *StripRenderer) PixelSize() int {
	return r.config.PixelSize
}

// RenderStrip draws one PixelSize-wide column per color, height pixels tall.
func (r *StripRenderer) RenderStrip(colors []palette.Color, height int) ([]byte, error) {
	if len(colors) == 0 {
		return nil, ErrEmpty
	}
	if height <= 0 {
		height = r.config.PixelSize
	}

	dc := gg.NewContext(len(colors)*r.config.PixelSize, height)
	r.drawRow(dc, colors, 0, float64(height))
	return r.encodeContext(dc)
}

// RenderSheet stacks frames top to bottom, each PixelSize pixels tall. All
// frames must have the same width.
func (r *StripRenderer) RenderSheet(frames [][]palette.Color) ([]byte, error) {
	if len(frames) == 0 || len(frames[0]) == 0 {
		return nil, ErrEmpty
	}

	px := r.config.PixelSize
	dc := gg.NewContext(len(frames[0])*px, len(frames)*px)
	for i, frame := range frames {
		r.drawRow(dc, frame, float64(i*px), float64(px))
	}
	return r.encodeContext(dc)
}

func (r *StripRenderer) drawRow(dc *gg.Context, colors []palette.Color, y, height float64) {
	px := float64(r.config.PixelSize)
	for i, c := range colors {
		// palette.Color clamps to the display range in RGBA.
		dc.SetColor(c)
		dc.DrawRectangle(float64(i)*px, y, px, height)
		dc.Fill()
	}
}

func (r *StripRenderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	// Use fast PNG encoder
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
