package palette

import (
	"fmt"
	"math"
)

// Color is an RGB triple. Channels are nominally in [0, 255] but are not
// constrained; blends may leave that range and are never clamped here.
type Color struct {
	R, G, B float64
}

// Black is returned for every query against an empty palette.
var Black = Color{}

// Blend returns c*(1-t) + o*t, component-wise.
func (c Color) Blend(o Color, t float64) Color {
	return Color{
		R: c.R*(1-t) + o.R*t,
		G: c.G*(1-t) + o.G*t,
		B: c.B*(1-t) + o.B*t,
	}
}

func (c Color) finite() bool {
	return isFinite(c.R) && isFinite(c.G) && isFinite(c.B)
}

// RGBA implements image/color.Color. Channels are rounded and clamped to
// [0, 255] before conversion; alpha is always opaque.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.Bytes()
	r = uint32(r8)
	r |= r << 8
	g = uint32(g8)
	g |= g << 8
	b = uint32(b8)
	b |= b << 8
	return r, g, b, 0xffff
}

// Bytes returns the display channels, rounded and clamped to [0, 255].
func (c Color) Bytes() (r, g, b uint8) {
	return clampByte(c.R), clampByte(c.G), clampByte(c.B)
}

// Hex formats the display channels as #rrggbb.
func (c Color) Hex() string {
	r, g, b := c.Bytes()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Floats returns the raw channels as a slice, for JSON output.
func (c Color) Floats() []float64 {
	return []float64{c.R, c.G, c.B}
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
