// Package api provides HTTP handlers for the palette server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lumastrip/server/internal/cache"
	"github.com/lumastrip/server/internal/exportstore"
	"github.com/lumastrip/server/internal/service"
	"github.com/lumastrip/server/pkg/palette"
)

const (
	defaultStripWidth  = 64
	defaultStripHeight = 32
	defaultMaxFrames   = 600
	maxResolvePoints   = 10000
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *PaletteRegistry
	Cache       *cache.Manager
	CORSOrigins []string
	JobManager  *JobManager
	StripHeight int // default strip.png height
	MaxFrames   int // max frames per export
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.StripHeight <= 0 {
		cfg.StripHeight = defaultStripHeight
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = defaultMaxFrames
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/palettes", palettesHandler(cfg.Registry))

		// Palette-scoped routes
		r.Route("/palettes/{name}", func(r chi.Router) {
			r.Use(paletteMiddleware(cfg.Registry))

			r.Get("/", paletteInfoHandler)
			r.Get("/slots/{i}", slotHandler)
			r.Get("/color", colorHandler)
			r.Get("/strip", stripHandler)
			r.Get("/strip.png", stripPNGHandler(cfg.StripHeight))
			r.Get("/exports", paletteExportsHandler(cfg.JobManager))
		})

		// Ad-hoc palette, not backed by the registry
		r.Post("/resolve", resolveHandler)

		// Export job endpoints
		r.Route("/exports", func(r chi.Router) {
			r.Post("/", exportSubmitHandler(cfg.Registry, cfg.JobManager, cfg.MaxFrames))
			r.Get("/{job_id}", exportStatusHandler(cfg.JobManager))
			r.Get("/{job_id}/result", exportResultHandler(cfg.JobManager))
			r.Delete("/{job_id}", exportCancelHandler(cfg.JobManager))
		})

		r.Get("/cache/stats", cacheStatsHandler(cfg.Cache))
		r.Delete("/cache", cacheResetHandler(cfg.Cache))
	})

	return r
}

// Context key for palette service
type ctxKey string

const paletteServiceKey ctxKey = "paletteService"

// paletteMiddleware resolves the palette from URL and injects its service into context.
func paletteMiddleware(registry *PaletteRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			svc := registry.Get(name)
			if svc == nil {
				http.Error(w, "palette not found: "+name, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), paletteServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getPaletteService(r *http.Request) *service.PaletteService {
	if svc, ok := r.Context().Value(paletteServiceKey).(*service.PaletteService); ok {
		return svc
	}
	return nil
}

// errorStatus maps resolver and service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, palette.ErrInvalidCoordinate),
		errors.Is(err, palette.ErrInvalidTotal),
		errors.Is(err, palette.ErrInvalidScale),
		errors.Is(err, palette.ErrInvalidColor),
		errors.Is(err, service.ErrInvalidWidth),
		errors.Is(err, service.ErrInvalidExport):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// parseFloatParam parses an optional float query param. ok is false when
// the param is absent.
func parseFloatParam(r *http.Request, name string) (v float64, ok bool, err error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, errors.New("invalid " + name)
	}
	return v, true, nil
}

func parseIntParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

func palettesHandler(registry *PaletteRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"default":  registry.DefaultPaletteName(),
			"title":    registry.Title(),
			"palettes": registry.Palettes(),
		})
	}
}

func paletteInfoHandler(w http.ResponseWriter, r *http.Request) {
	svc := getPaletteService(r)
	if svc == nil {
		http.Error(w, "palette service not found", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"info":   svc.Info(),
		"colors": service.ColorsJSON(svc.Palette().Colors()),
	})
}

func slotHandler(w http.ResponseWriter, r *http.Request) {
	svc := getPaletteService(r)
	if svc == nil {
		http.Error(w, "palette service not found", http.StatusInternalServerError)
		return
	}

	i, err := strconv.Atoi(chi.URLParam(r, "i"))
	if err != nil {
		http.Error(w, "invalid slot index", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{
		"palette": svc.Name(),
		"index":   i,
		"color":   service.NewColorJSON(svc.Slot(i)),
	})
}

func colorHandler(w http.ResponseWriter, r *http.Request) {
	svc := getPaletteService(r)
	if svc == nil {
		http.Error(w, "palette service not found", http.StatusInternalServerError)
		return
	}

	x, ok, err := parseFloatParam(r, "x")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !ok {
		http.Error(w, "missing required query param: x", http.StatusBadRequest)
		return
	}

	var total *float64
	t, ok, err := parseFloatParam(r, "total")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ok {
		total = &t
	}

	c, err := svc.Color(x, total)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	response := map[string]interface{}{
		"palette": svc.Name(),
		"x":       x,
		"color":   service.NewColorJSON(c),
	}
	if total != nil {
		response["total"] = *total
	}
	writeJSON(w, response)
}

func stripHandler(w http.ResponseWriter, r *http.Request) {
	svc := getPaletteService(r)
	if svc == nil {
		http.Error(w, "palette service not found", http.StatusInternalServerError)
		return
	}

	width, err := parseIntParam(r, "width", defaultStripWidth)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, _, err := parseFloatParam(r, "offset")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := svc.StripJSON(width, offset)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func stripPNGHandler(defaultHeight int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := getPaletteService(r)
		if svc == nil {
			http.Error(w, "palette service not found", http.StatusInternalServerError)
			return
		}

		width, err := parseIntParam(r, "width", defaultStripWidth)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		height, err := parseIntParam(r, "height", defaultHeight)
		if err != nil || height <= 0 || height > 1024 {
			http.Error(w, "invalid height", http.StatusBadRequest)
			return
		}
		offset, _, err := parseFloatParam(r, "offset")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := svc.StripPNG(width, height, offset)
		if err != nil {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

type resolveRequest struct {
	Colors      []string  `json:"colors"`
	Continuous  bool      `json:"continuous"`
	Serpentine  bool      `json:"serpentine"`
	Scale       *float64  `json:"scale"`
	Autoscale   bool      `json:"autoscale"`
	Total       *float64  `json:"total"`
	Coordinates []float64 `json:"coordinates"`
}

func resolveHandler(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Coordinates) > maxResolvePoints {
		http.Error(w, "too many coordinates (max "+strconv.Itoa(maxResolvePoints)+")", http.StatusBadRequest)
		return
	}

	colors, err := palette.ParseColors(req.Colors)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := palette.DefaultOptions()
	opts.Continuous = req.Continuous
	opts.Serpentine = req.Serpentine
	opts.Autoscale = req.Autoscale
	if req.Scale != nil {
		opts.Scale = *req.Scale
	}
	p, err := palette.New(colors, palette.WithOptions(opts))
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	resolved := make([]palette.Color, len(req.Coordinates))
	for i, x := range req.Coordinates {
		var c palette.Color
		if req.Total != nil {
			c, err = p.GetIn(x, *req.Total)
		} else {
			c, err = p.Get(x)
		}
		if err != nil {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}
		resolved[i] = c
	}

	writeJSON(w, map[string]interface{}{
		"options": p.Options(),
		"colors":  service.ColorsJSON(resolved),
	})
}

type exportSubmitRequest struct {
	Palette string  `json:"palette"`
	Width   int     `json:"width"`
	Frames  int     `json:"frames"`
	Step    float64 `json:"step"`
}

func exportSubmitHandler(registry *PaletteRegistry, jm *JobManager, maxFrames int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		var req exportSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		if req.Palette == "" {
			req.Palette = registry.DefaultPaletteName()
		}
		svc := registry.Get(req.Palette)
		if svc == nil {
			http.Error(w, "palette not found: "+req.Palette, http.StatusNotFound)
			return
		}

		// Apply defaults
		if req.Width == 0 {
			req.Width = defaultStripWidth
		}
		if req.Frames == 0 {
			req.Frames = req.Width
		}
		if req.Step == 0 {
			req.Step = 1
		}

		if req.Frames < 1 || req.Frames > maxFrames {
			http.Error(w, "frames must be in [1, "+strconv.Itoa(maxFrames)+"]", http.StatusBadRequest)
			return
		}
		// Reject anything the worker could not render before queueing it
		if err := svc.ValidateExport(req.Width, req.Frames, req.Step); err != nil {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}

		job, err := jm.Submit(exportstore.ExportParams{
			Palette: req.Palette,
			Width:   req.Width,
			Frames:  req.Frames,
			Step:    req.Step,
		})
		if err != nil {
			http.Error(w, "failed to create job: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}

func exportStatusHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		job := jm.Get(chi.URLParam(r, "job_id"))
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		writeJSON(w, job)
	}
}

func exportResultHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		if job.Status != exportstore.JobStatusCompleted {
			http.Error(w, "job not completed (status: "+string(job.Status)+")", http.StatusBadRequest)
			return
		}

		res, err := jm.Result(jobID)
		if err != nil {
			http.Error(w, "failed to load result: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if res == nil {
			http.Error(w, "result not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+job.Palette+`-`+jobID+`.png"`)
		w.Write(res.Data)
	}
}

// exportCancelHandler cancels an unfinished job, or deletes a finished one.
func exportCancelHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		if !job.Status.Finished() {
			jm.Cancel(jobID)
			writeJSON(w, map[string]interface{}{
				"job_id":    jobID,
				"cancelled": true,
			})
			return
		}

		if err := jm.Delete(jobID); err != nil {
			http.Error(w, "failed to delete job: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"job_id":  jobID,
			"deleted": true,
		})
	}
}

func paletteExportsHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		name := chi.URLParam(r, "name")
		jobs, err := jm.Store().ListJobsByPalette(name)
		if err != nil {
			http.Error(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if jobs == nil {
			jobs = []*exportstore.ExportJob{}
		}

		writeJSON(w, map[string]interface{}{
			"palette": name,
			"jobs":    jobs,
		})
	}
}

func cacheStatsHandler(cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cm == nil {
			http.Error(w, "cache not configured", http.StatusNotImplemented)
			return
		}
		writeJSON(w, cm.Stats())
	}
}

func cacheResetHandler(cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cm == nil {
			http.Error(w, "cache not configured", http.StatusNotImplemented)
			return
		}
		if err := cm.Reset(); err != nil {
			http.Error(w, "failed to reset cache: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"cleared": true})
	}
}
