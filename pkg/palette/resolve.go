package palette

import "math"

// snapTolerance pulls normalized coordinates within this distance of an
// integer onto it. x/total*n round trips land a few ulps off integers, which
// would otherwise floor to the wrong slot or fall on the far side of the
// wrap seam.
const snapTolerance = 1e-9

func snap(x float64) float64 {
	if r := math.Round(x); math.Abs(x-r) < snapTolerance {
		return r
	}
	return x
}

func (p *Palette) normalize(x, total float64, hasTotal bool) float64 {
	if p.opts.Autoscale && hasTotal {
		return x / total * float64(len(p.colors)) * p.opts.Scale
	}
	return x * p.opts.Scale
}

func (p *Palette) resolve(x float64) Color {
	switch len(p.colors) {
	case 0:
		return Black
	case 1:
		return p.colors[0]
	}
	x = snap(x)
	if p.opts.Continuous {
		return p.continuous(x)
	}
	return p.discrete(x)
}

// discrete returns one color verbatim. Serpentine traversal visits
// 0, 1, ..., n-1, n-2, ..., 1, 0, 1, ... with single-width turning points.
func (p *Palette) discrete(x float64) Color {
	n := float64(len(p.colors))
	m := math.Floor(x)

	if !p.opts.Serpentine {
		return p.colors[int(floatMod(m, n))]
	}

	period := 2 * (n - 1)
	r := floatMod(m, period)
	if r > n-1 {
		r = period - r
	}
	return p.colors[int(r)]
}

func (p *Palette) continuous(x float64) Color {
	n := float64(len(p.colors))

	if !p.opts.Serpentine {
		return p.interpolate(floatMod(x, n))
	}

	period := 2 * n
	r := floatMod(x, period)
	if r > n {
		r = period - r
	}
	return p.interpolate(r)
}

// interpolate maps pos in [0, n] onto the n-1 gaps between adjacent colors.
// The wrap seam collapses to a point: pos == 0 is the first color and the
// last color is reached only at pos == n.
func (p *Palette) interpolate(pos float64) Color {
	n := len(p.colors)
	scaled := pos * float64(n-1) / float64(n)

	idx := int(math.Floor(scaled))
	if idx < 0 {
		idx = 0
	}
	if idx > n-2 {
		idx = n - 2
	}
	frac := scaled - float64(idx)
	if frac == 0 {
		return p.colors[idx]
	}
	return p.colors[idx].Blend(p.colors[idx+1], frac)
}
