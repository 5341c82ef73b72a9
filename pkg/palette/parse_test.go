package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	for in, want := range map[string]Color{
		"#ff0000":  Red,
		"#00FF00":  Green,
		"#00f":     Blue,
		"white":    White,
		" Red ":    Red,
		"DarkBlue": {0, 0, 139},
		"#7f7f7f":  {127, 127, 127},
	} {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "#12", "#gggggg", "notacolor"} {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
}

func TestParseColors(t *testing.T) {
	cs, err := ParseColors([]string{"red", "#00ff00", "blue"})
	require.NoError(t, err)
	assert.Equal(t, []Color{Red, Green, Blue}, cs)

	_, err = ParseColors([]string{"red", "bogus"})
	assert.ErrorContains(t, err, "color 1")
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	assert.Equal(t, []string{"categorical", "classic", "inferno", "magma", "plasma", "viridis"}, names)

	for _, name := range names {
		p, ok := NewPreset(name)
		require.True(t, ok, name)
		assert.Greater(t, p.Len(), 1, name)
	}

	_, ok := NewPreset("nope")
	assert.False(t, ok)
}

func TestPresetEndpoints(t *testing.T) {
	p, ok := NewPreset("viridis")
	require.True(t, ok)

	// Stretched over a strip, the gradient starts on the first color and
	// reaches the last at the far end.
	assertColor(t, Color{68, 1, 84}, mustGetIn(t, p, 0, 256))
	assertColor(t, Color{253, 231, 37}, mustGetIn(t, p, 256, 256))
	assertColor(t, mustGetIn(t, p, 100, 256), mustGetIn(t, p, 412, 256))
}

func TestLookupPresetIsACopy(t *testing.T) {
	a, ok := LookupPreset("classic")
	require.True(t, ok)
	a.Colors[0] = Black

	b, _ := LookupPreset("classic")
	assert.Equal(t, Red, b.Colors[0])
}
