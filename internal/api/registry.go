package api

import (
	"github.com/lumastrip/server/internal/service"
)

// PaletteRegistry holds palette services for all configured palettes.
type PaletteRegistry struct {
	services       map[string]*service.PaletteService
	defaultPalette string
	paletteOrder   []string
	title          string
}

// NewPaletteRegistry creates a new palette registry.
func NewPaletteRegistry(defaultPalette string, order []string, title string) *PaletteRegistry {
	return &PaletteRegistry{
		services:       make(map[string]*service.PaletteService),
		defaultPalette: defaultPalette,
		paletteOrder:   order,
		title:          title,
	}
}

// Register adds a palette service.
func (r *PaletteRegistry) Register(name string, svc *service.PaletteService) {
	r.services[name] = svc
}

// Get returns the palette service for a name, or nil if not found.
func (r *PaletteRegistry) Get(name string) *service.PaletteService {
	return r.services[name]
}

// Default returns the default palette's service.
func (r *PaletteRegistry) Default() *service.PaletteService {
	return r.services[r.defaultPalette]
}

// DefaultPaletteName returns the default palette name.
func (r *PaletteRegistry) DefaultPaletteName() string {
	return r.defaultPalette
}

// PaletteNames returns all palette names in config order.
func (r *PaletteRegistry) PaletteNames() []string {
	return r.paletteOrder
}

// Title returns the configured site title.
func (r *PaletteRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "lumastrip"
}

// Palettes returns info for all registered palettes in config order.
func (r *PaletteRegistry) Palettes() []service.Info {
	infos := make([]service.Info, 0, len(r.paletteOrder))
	for _, name := range r.paletteOrder {
		if svc := r.services[name]; svc != nil {
			infos = append(infos, svc.Info())
		}
	}
	return infos
}
