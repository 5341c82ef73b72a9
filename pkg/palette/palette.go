// Package palette resolves real-valued coordinates to colors over an ordered
// color sequence.
//
// A Palette combines table lookup, cyclic (wrap) or reflective (serpentine)
// traversal and linear blending. It is immutable once built and every query
// is a pure function of the palette and its arguments, so a single Palette
// may be shared by any number of goroutines.
package palette

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidScale is returned by New for a scale that is not a finite
	// positive number.
	ErrInvalidScale = errors.New("palette: scale must be finite and positive")
	// ErrInvalidColor is returned by New when a color has a non-finite channel.
	ErrInvalidColor = errors.New("palette: color channels must be finite")
	// ErrInvalidCoordinate is returned for NaN or infinite coordinates.
	ErrInvalidCoordinate = errors.New("palette: coordinate must be finite")
	// ErrInvalidTotal is returned for a domain size that is not a finite
	// positive number.
	ErrInvalidTotal = errors.New("palette: total must be finite and positive")
)

// Options is the flag set of a Palette. The zero value is not usable as is:
// Scale must be positive. Use DefaultOptions as a base.
type Options struct {
	// Continuous interpolates between adjacent colors instead of returning
	// the floor-indexed color verbatim.
	Continuous bool `json:"continuous" yaml:"continuous"`
	// Serpentine reflects at the ends of the sequence instead of wrapping.
	Serpentine bool `json:"serpentine" yaml:"serpentine"`
	// Scale multiplies every coordinate before resolution.
	Scale float64 `json:"scale" yaml:"scale"`
	// Autoscale maps [0, total) onto the palette's native [0, n) when a
	// total is supplied with the query.
	Autoscale bool `json:"autoscale" yaml:"autoscale"`
}

// DefaultOptions returns wrap, discrete, unit scale, no autoscale.
func DefaultOptions() Options {
	return Options{Scale: 1}
}

// Option configures a Palette under construction.
type Option func(*Options)

// Continuous enables interpolation between adjacent colors.
func Continuous() Option {
	return func(o *Options) { o.Continuous = true }
}

// Serpentine enables reflective traversal.
func Serpentine() Option {
	return func(o *Options) { o.Serpentine = true }
}

// Scale sets the coordinate multiplier.
func Scale(s float64) Option {
	return func(o *Options) { o.Scale = s }
}

// Autoscale enables rescaling of coordinates against a caller-supplied total.
func Autoscale() Option {
	return func(o *Options) { o.Autoscale = true }
}

// WithOptions replaces all flags at once.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts }
}

// Palette is an immutable color sequence plus traversal flags.
type Palette struct {
	colors []Color
	opts   Options
}

// New builds a Palette from a copy of colors. An empty or single-color
// sequence is valid.
func New(colors []Color, opts ...Option) (*Palette, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !isFinite(o.Scale) || o.Scale <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidScale, o.Scale)
	}

	cs := make([]Color, len(colors))
	for i, c := range colors {
		if !c.finite() {
			return nil, fmt.Errorf("%w: color %d is %v", ErrInvalidColor, i, c)
		}
		cs[i] = c
	}

	return &Palette{colors: cs, opts: o}, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// palettes built from constants.
func MustNew(colors []Color, opts ...Option) *Palette {
	p, err := New(colors, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of colors.
func (p *Palette) Len() int { return len(p.colors) }

// Options returns the palette's flags.
func (p *Palette) Options() Options { return p.opts }

// Colors returns a copy of the color sequence.
func (p *Palette) Colors() []Color {
	cs := make([]Color, len(p.colors))
	copy(cs, p.colors)
	return cs
}

// At returns the color in slot i modulo Len, for any sign of i. It ignores
// every traversal flag. An empty palette yields Black.
func (p *Palette) At(i int) Color {
	n := len(p.colors)
	if n == 0 {
		return Black
	}
	return p.colors[floorMod(i, n)]
}

// Get resolves coordinate x without a domain size.
func (p *Palette) Get(x float64) (Color, error) {
	if !isFinite(x) {
		return Black, fmt.Errorf("%w: got %v", ErrInvalidCoordinate, x)
	}
	return p.query(x, 0, false)
}

// GetIn resolves coordinate x within a domain of size total. With autoscale
// enabled, [0, total) is stretched onto the palette's native length before
// scale is applied; otherwise total is validated and ignored.
func (p *Palette) GetIn(x, total float64) (Color, error) {
	if !isFinite(x) {
		return Black, fmt.Errorf("%w: got %v", ErrInvalidCoordinate, x)
	}
	if !isFinite(total) || total <= 0 {
		return Black, fmt.Errorf("%w: got %v", ErrInvalidTotal, total)
	}
	return p.query(x, total, true)
}

// query normalizes and resolves a validated coordinate. Finite inputs can
// still overflow once scaled (x*scale, or x/total*n*scale for a tiny total);
// those are rejected rather than folded.
func (p *Palette) query(x, total float64, hasTotal bool) (Color, error) {
	if len(p.colors) <= 1 {
		return p.resolve(0), nil
	}
	nx := p.normalize(x, total, hasTotal)
	if !isFinite(nx) {
		return Black, fmt.Errorf("%w: %v overflows once scaled", ErrInvalidCoordinate, x)
	}
	return p.resolve(nx), nil
}

// String describes the palette for logs.
func (p *Palette) String() string {
	return fmt.Sprintf("palette(n=%d continuous=%t serpentine=%t scale=%g autoscale=%t)",
		len(p.colors), p.opts.Continuous, p.opts.Serpentine, p.opts.Scale, p.opts.Autoscale)
}

func floorMod(i, n int) int {
	return ((i % n) + n) % n
}

// floatMod returns x mod m in [0, m] for m > 0. The upper bound is only
// reached through rounding of tiny negative x.
func floatMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
