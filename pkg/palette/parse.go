package palette

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ParseColor parses "#rgb", "#rrggbb" or an SVG color name ("red",
// "darkblue").
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return Black, fmt.Errorf("empty color")
	}

	if strings.HasPrefix(v, "#") {
		c, err := colorful.Hex(v)
		if err != nil {
			return Black, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return Color{R: float64(r), G: float64(g), B: float64(b)}, nil
	}

	if c, ok := colornames.Map[v]; ok {
		return Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}, nil
	}
	return Black, fmt.Errorf("unknown color %q", s)
}

// ParseColors parses every entry of ss.
func ParseColors(ss []string) ([]Color, error) {
	cs := make([]Color, 0, len(ss))
	for i, s := range ss {
		c, err := ParseColor(s)
		if err != nil {
			return nil, fmt.Errorf("color %d: %w", i, err)
		}
		cs = append(cs, c)
	}
	return cs, nil
}
