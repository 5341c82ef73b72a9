// Package config handles configuration loading for the lumastrip server.
package config

import (
	"fmt"
	"os"

	"github.com/lumastrip/server/pkg/palette"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server         ServerConfig  `yaml:"server"`
	Cache          CacheConfig   `yaml:"cache"`
	Render         RenderConfig  `yaml:"render"`
	Exports        ExportsConfig `yaml:"exports"`
	DefaultPalette string        `yaml:"default_palette"`
	Palettes       PaletteSet    `yaml:"palettes"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	StripSizeMB     int `yaml:"strip_size_mb"`
	StripTTLMinutes int `yaml:"strip_ttl_minutes"`
	QueryCacheSize  int `yaml:"query_cache_size"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	PixelSize   int `yaml:"pixel_size"`   // rendered width of one strip position
	StripHeight int `yaml:"strip_height"` // default PNG height
	MaxWidth    int `yaml:"max_width"`    // max positions per strip
}

// ExportsConfig contains sprite-sheet export job settings.
type ExportsConfig struct {
	MaxConcurrent  int    `yaml:"max_concurrent"`
	SQLitePath     string `yaml:"sqlite_path"`
	RetentionDays  int    `yaml:"retention_days"`
	MaxFrames      int    `yaml:"max_frames"`
	MaxSheetPixels int    `yaml:"max_sheet_pixels"` // cap on width*height of one sheet
}

// PaletteConfig defines one named palette. Colors come from Colors or, when
// that is empty, from the named Preset. Unset flags fall back to the
// preset's flags, then to the palette defaults.
type PaletteConfig struct {
	Preset     string   `yaml:"preset"`
	Colors     []string `yaml:"colors"`
	Continuous *bool    `yaml:"continuous"`
	Serpentine *bool    `yaml:"serpentine"`
	Scale      *float64 `yaml:"scale"`
	Autoscale  *bool    `yaml:"autoscale"`
}

// Build constructs the palette.
func (pc PaletteConfig) Build() (*palette.Palette, error) {
	opts := palette.DefaultOptions()
	var colors []palette.Color

	if pc.Preset != "" {
		preset, ok := palette.LookupPreset(pc.Preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", pc.Preset)
		}
		colors = preset.Colors
		opts = preset.Options
	}
	if len(pc.Colors) > 0 {
		cs, err := palette.ParseColors(pc.Colors)
		if err != nil {
			return nil, err
		}
		colors = cs
	}

	if pc.Continuous != nil {
		opts.Continuous = *pc.Continuous
	}
	if pc.Serpentine != nil {
		opts.Serpentine = *pc.Serpentine
	}
	if pc.Scale != nil {
		opts.Scale = *pc.Scale
	}
	if pc.Autoscale != nil {
		opts.Autoscale = *pc.Autoscale
	}

	return palette.New(colors, palette.WithOptions(opts))
}

// PaletteSet is the palettes mapping, keeping YAML order.
type PaletteSet struct {
	Names []string
	Defs  map[string]PaletteConfig
}

// UnmarshalYAML decodes a name -> definition mapping in document order.
func (s *PaletteSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("palettes: expected a mapping at line %d", value.Line)
	}

	s.Names = nil
	s.Defs = make(map[string]PaletteConfig, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		if _, dup := s.Defs[name]; dup {
			return fmt.Errorf("palettes: duplicate palette %q at line %d", name, value.Content[i].Line)
		}
		var def PaletteConfig
		if err := value.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("palette %q: %w", name, err)
		}
		s.Names = append(s.Names, name)
		s.Defs[name] = def
	}
	return nil
}

// PaletteNames returns palette names in config order.
func (c *Config) PaletteNames() []string {
	return c.Palettes.Names
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Cache: CacheConfig{
			StripSizeMB:     64,
			StripTTLMinutes: 10,
			QueryCacheSize:  1000,
		},
		Render: RenderConfig{
			PixelSize:   4,
			StripHeight: 32,
			MaxWidth:    4096,
		},
		Exports: ExportsConfig{
			MaxConcurrent:  1,
			SQLitePath:     "./data/exports.sqlite",
			RetentionDays:  7,
			MaxFrames:      600,
			MaxSheetPixels: 16 << 20,
		},
		DefaultPalette: "classic",
		Palettes:       presetSet(),
	}
}

func presetSet() PaletteSet {
	s := PaletteSet{Defs: make(map[string]PaletteConfig)}
	for _, name := range palette.PresetNames() {
		s.Names = append(s.Names, name)
		s.Defs[name] = PaletteConfig{Preset: name}
	}
	return s
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Cache.StripSizeMB == 0 {
		cfg.Cache.StripSizeMB = defaults.Cache.StripSizeMB
	}
	if cfg.Cache.StripTTLMinutes == 0 {
		cfg.Cache.StripTTLMinutes = defaults.Cache.StripTTLMinutes
	}
	if cfg.Cache.QueryCacheSize == 0 {
		cfg.Cache.QueryCacheSize = defaults.Cache.QueryCacheSize
	}
	if cfg.Render.PixelSize == 0 {
		cfg.Render.PixelSize = defaults.Render.PixelSize
	}
	if cfg.Render.StripHeight == 0 {
		cfg.Render.StripHeight = defaults.Render.StripHeight
	}
	if cfg.Render.MaxWidth == 0 {
		cfg.Render.MaxWidth = defaults.Render.MaxWidth
	}
	if cfg.Exports.MaxConcurrent == 0 {
		cfg.Exports.MaxConcurrent = defaults.Exports.MaxConcurrent
	}
	if cfg.Exports.SQLitePath == "" {
		cfg.Exports.SQLitePath = defaults.Exports.SQLitePath
	}
	if cfg.Exports.RetentionDays == 0 {
		cfg.Exports.RetentionDays = defaults.Exports.RetentionDays
	}
	if cfg.Exports.MaxFrames == 0 {
		cfg.Exports.MaxFrames = defaults.Exports.MaxFrames
	}
	if cfg.Exports.MaxSheetPixels == 0 {
		cfg.Exports.MaxSheetPixels = defaults.Exports.MaxSheetPixels
	}
	if len(cfg.Palettes.Names) == 0 {
		cfg.Palettes = defaults.Palettes
		if cfg.DefaultPalette == "" {
			cfg.DefaultPalette = defaults.DefaultPalette
		}
	}
	// First palette in YAML order is the default
	if cfg.DefaultPalette == "" {
		cfg.DefaultPalette = cfg.Palettes.Names[0]
	}
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Render.PixelSize <= 0 || c.Render.StripHeight <= 0 || c.Render.MaxWidth <= 0 {
		return fmt.Errorf("render pixel_size, strip_height and max_width must be positive")
	}
	if c.Exports.MaxFrames <= 0 {
		return fmt.Errorf("exports max_frames must be positive")
	}
	if c.Exports.MaxSheetPixels <= 0 {
		return fmt.Errorf("exports max_sheet_pixels must be positive")
	}
	if _, ok := c.Palettes.Defs[c.DefaultPalette]; !ok {
		return fmt.Errorf("default palette %q is not defined", c.DefaultPalette)
	}
	for _, name := range c.Palettes.Names {
		if _, err := c.Palettes.Defs[name].Build(); err != nil {
			return fmt.Errorf("palette %q: %w", name, err)
		}
	}
	return nil
}
