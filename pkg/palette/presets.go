package palette

import "sort"

// Preset is a named color sequence with the flags it is usually served with.
type Preset struct {
	Colors  []Color
	Options Options
}

// Classic primaries.
var (
	Red   = Color{255, 0, 0}
	Green = Color{0, 255, 0}
	Blue  = Color{0, 0, 255}
	White = Color{255, 255, 255}
)

var presets = map[string]Preset{
	"classic": {
		Colors:  []Color{Red, Green, Blue, White},
		Options: Options{Scale: 1},
	},
	// matplotlib viridis
	"viridis": sequential(
		Color{68, 1, 84},
		Color{72, 35, 116},
		Color{64, 67, 135},
		Color{52, 94, 141},
		Color{41, 120, 142},
		Color{32, 144, 140},
		Color{34, 167, 132},
		Color{68, 190, 112},
		Color{121, 209, 81},
		Color{189, 222, 38},
		Color{253, 231, 37},
	),
	"plasma": sequential(
		Color{13, 8, 135},
		Color{75, 3, 161},
		Color{125, 3, 168},
		Color{168, 34, 150},
		Color{203, 70, 121},
		Color{229, 107, 93},
		Color{248, 148, 65},
		Color{253, 195, 40},
		Color{240, 249, 33},
	),
	"inferno": sequential(
		Color{0, 0, 4},
		Color{40, 11, 84},
		Color{101, 21, 110},
		Color{159, 42, 99},
		Color{212, 72, 66},
		Color{245, 125, 21},
		Color{250, 193, 39},
		Color{252, 255, 164},
	),
	"magma": sequential(
		Color{0, 0, 4},
		Color{28, 16, 68},
		Color{79, 18, 123},
		Color{129, 37, 129},
		Color{181, 54, 122},
		Color{229, 80, 100},
		Color{251, 135, 97},
		Color{254, 194, 135},
		Color{252, 253, 191},
	),
	"categorical": {
		Colors: []Color{
			{31, 119, 180},  // blue
			{255, 127, 14},  // orange
			{44, 160, 44},   // green
			{214, 39, 40},   // red
			{148, 103, 189}, // purple
			{140, 86, 75},   // brown
			{227, 119, 194}, // pink
			{127, 127, 127}, // gray
			{188, 189, 34},  // olive
			{23, 190, 207},  // cyan
		},
		Options: Options{Scale: 1},
	},
}

// sequential gradients are meant to be stretched over a strip end to end
// and bounce back rather than jump at the seam.
func sequential(cs ...Color) Preset {
	return Preset{
		Colors:  cs,
		Options: Options{Continuous: true, Serpentine: true, Scale: 1, Autoscale: true},
	}
}

// LookupPreset returns a copy of the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, false
	}
	cs := make([]Color, len(p.Colors))
	copy(cs, p.Colors)
	return Preset{Colors: cs, Options: p.Options}, true
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPreset builds the named preset with its usual flags.
func NewPreset(name string) (*Palette, bool) {
	p, ok := presets[name]
	if !ok {
		return nil, false
	}
	return MustNew(p.Colors, WithOptions(p.Options)), true
}
