// Package service provides business logic for the palette server.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/lumastrip/server/internal/cache"
	"github.com/lumastrip/server/internal/render"
	"github.com/lumastrip/server/pkg/palette"
)

var (
	// ErrInvalidWidth is returned for a strip width outside [1, max width].
	ErrInvalidWidth = errors.New("invalid strip width")
	// ErrInvalidExport is returned for export parameters that cannot be
	// rendered: a non-finite step or an oversized sheet.
	ErrInvalidExport = errors.New("invalid export")
)

const defaultMaxSheetPixels = 16 << 20

// PaletteServiceConfig contains palette service configuration.
type PaletteServiceConfig struct {
	Name     string
	Palette  *palette.Palette
	Cache    *cache.Manager
	Renderer *render.StripRenderer
	MaxWidth int

	// MaxSheetPixels caps the pixel count of an exported sheet.
	MaxSheetPixels int
}

// PaletteService resolves and renders one named palette.
type PaletteService struct {
	name     string
	palette  *palette.Palette
	cache    *cache.Manager
	renderer *render.StripRenderer
	maxWidth int
	maxSheet int
}

// NewPaletteService creates a new palette service.
func NewPaletteService(cfg PaletteServiceConfig) *PaletteService {
	maxWidth := cfg.MaxWidth
	if maxWidth <= 0 {
		maxWidth = 4096
	}
	maxSheet := cfg.MaxSheetPixels
	if maxSheet <= 0 {
		maxSheet = defaultMaxSheetPixels
	}
	return &PaletteService{
		name:     cfg.Name,
		palette:  cfg.Palette,
		cache:    cfg.Cache,
		renderer: cfg.Renderer,
		maxWidth: maxWidth,
		maxSheet: maxSheet,
	}
}

// ColorJSON is the wire form of a color: display hex plus raw channels.
type ColorJSON struct {
	Hex string    `json:"hex"`
	RGB []float64 `json:"rgb"`
}

// NewColorJSON converts a color for JSON responses.
func NewColorJSON(c palette.Color) ColorJSON {
	return ColorJSON{Hex: c.Hex(), RGB: c.Floats()}
}

// ColorsJSON converts a color slice for JSON responses.
func ColorsJSON(cs []palette.Color) []ColorJSON {
	out := make([]ColorJSON, len(cs))
	for i, c := range cs {
		out[i] = NewColorJSON(c)
	}
	return out
}

// Info describes a palette.
type Info struct {
	Name       string  `json:"name"`
	Size       int     `json:"size"`
	Continuous bool    `json:"continuous"`
	Serpentine bool    `json:"serpentine"`
	Scale      float64 `json:"scale"`
	Autoscale  bool    `json:"autoscale"`
}

// Name returns the palette name.
func (s *PaletteService) Name() string { return s.name }

// Palette returns the underlying palette.
func (s *PaletteService) Palette() *palette.Palette { return s.palette }

// Info returns the palette description.
func (s *PaletteService) Info() Info {
	opts := s.palette.Options()
	return Info{
		Name:       s.name,
		Size:       s.palette.Len(),
		Continuous: opts.Continuous,
		Serpentine: opts.Serpentine,
		Scale:      opts.Scale,
		Autoscale:  opts.Autoscale,
	}
}

// Slot returns the color in slot i, ignoring traversal flags.
func (s *PaletteService) Slot(i int) palette.Color {
	return s.palette.At(i)
}

// Color resolves a single coordinate, against total when given.
func (s *PaletteService) Color(x float64, total *float64) (palette.Color, error) {
	if total != nil {
		return s.palette.GetIn(x, *total)
	}
	return s.palette.Get(x)
}

// Strip resolves one frame: positions offset+i for i in [0, width), with
// width as the domain size.
func (s *PaletteService) Strip(width int, offset float64) ([]palette.Color, error) {
	if width <= 0 || width > s.maxWidth {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidWidth, width, s.maxWidth)
	}

	total := float64(width)
	colors := make([]palette.Color, width)
	for i := range colors {
		c, err := s.palette.GetIn(offset+float64(i), total)
		if err != nil {
			return nil, err
		}
		colors[i] = c
	}
	return colors, nil
}

type stripResponse struct {
	Palette string      `json:"palette"`
	Width   int         `json:"width"`
	Offset  float64     `json:"offset"`
	Colors  []ColorJSON `json:"colors"`
}

// StripJSON returns the JSON encoding of Strip, cached.
func (s *PaletteService) StripJSON(width int, offset float64) ([]byte, error) {
	key := cache.ColorsKey(s.name, width, offset)
	if data, ok := s.cache.GetQuery(key); ok {
		return data, nil
	}

	colors, err := s.Strip(width, offset)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(stripResponse{
		Palette: s.name,
		Width:   width,
		Offset:  offset,
		Colors:  ColorsJSON(colors),
	})
	if err != nil {
		return nil, err
	}

	s.cache.SetQuery(key, data)
	return data, nil
}

// StripPNG renders Strip as a PNG, cached.
func (s *PaletteService) StripPNG(width, height int, offset float64) ([]byte, error) {
	key := cache.StripKey(s.name, width, height, offset)
	if data, ok := s.cache.GetStrip(key); ok {
		return data, nil
	}

	colors, err := s.Strip(width, offset)
	if err != nil {
		return nil, err
	}

	data, err := s.renderer.RenderStrip(colors, height)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetStrip(key, data); err != nil {
		log.Printf("[PaletteService] %s: failed to cache strip %s: %v", s.name, key, err)
	}
	return data, nil
}

// Frames resolves count consecutive frames, frame f offset by f*step. The
// progress callback, if any, is called after each frame. Cancellation is
// checked between frames.
func (s *PaletteService) Frames(ctx context.Context, width, count int, step float64, progress func(done, total int)) ([][]palette.Color, error) {
	frames := make([][]palette.Color, 0, count)
	for f := 0; f < count; f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		colors, err := s.Strip(width, float64(f)*step)
		if err != nil {
			return nil, err
		}
		frames = append(frames, colors)
		if progress != nil {
			progress(f+1, count)
		}
	}
	return frames, nil
}

// ValidateExport checks that a sprite sheet of frames strips of width
// positions, frame f offset by f*step, can be resolved and rendered. Frame
// count limits are left to the caller.
func (s *PaletteService) ValidateExport(width, frames int, step float64) error {
	if width <= 0 || width > s.maxWidth {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidWidth, width, s.maxWidth)
	}
	if frames <= 0 {
		return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalidExport, frames)
	}
	if math.IsNaN(step) || math.IsInf(step, 0) {
		return fmt.Errorf("%w: step must be finite", ErrInvalidExport)
	}
	last := float64(frames-1)*step + float64(width)
	if math.IsInf(last, 0) {
		return fmt.Errorf("%w: step %g overflows over %d frames", ErrInvalidExport, step, frames)
	}

	ps := int64(s.renderer.PixelSize())
	pixels := int64(width) * ps * int64(frames) * ps
	if pixels > int64(s.maxSheet) {
		return fmt.Errorf("%w: %dx%d sheet exceeds %d pixels", ErrInvalidExport,
			int64(width)*ps, int64(frames)*ps, s.maxSheet)
	}

	// Both end frames must resolve; positions in between cannot overflow
	// further than they do.
	if _, err := s.Strip(width, 0); err != nil {
		return err
	}
	_, err := s.Strip(width, float64(frames-1)*step)
	return err
}

// RenderSheet renders frames as a sprite sheet PNG.
func (s *PaletteService) RenderSheet(frames [][]palette.Color) ([]byte, error) {
	return s.renderer.RenderSheet(frames)
}
