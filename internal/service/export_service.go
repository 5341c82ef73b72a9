package service

import (
	"context"
	"fmt"

	"github.com/lumastrip/server/internal/exportstore"
)

// progressEvery throttles progress writes to the store.
const progressEvery = 16

// ExportService renders sprite-sheet exports.
type ExportService struct {
	registry interface {
		Get(name string) *PaletteService
	}
}

// NewExportService creates a new export service.
func NewExportService(registry interface{ Get(name string) *PaletteService }) *ExportService {
	return &ExportService{registry: registry}
}

// ExecuteExportJob renders the sheet for a job (called by JobManager worker).
func (s *ExportService) ExecuteExportJob(ctx context.Context, store *exportstore.Store, jobID string) error {
	job, err := store.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}

	svc := s.registry.Get(job.Params.Palette)
	if svc == nil {
		return fmt.Errorf("palette not found: %s", job.Params.Palette)
	}

	p := job.Params
	// Jobs re-queued after a restart were accepted under the previous config.
	if err := svc.ValidateExport(p.Width, p.Frames, p.Step); err != nil {
		return err
	}
	store.UpdateJobProgress(jobID, "resolve", 0, p.Frames)

	frames, err := svc.Frames(ctx, p.Width, p.Frames, p.Step, func(done, total int) {
		if done%progressEvery == 0 || done == total {
			store.UpdateJobProgress(jobID, "resolve", done, total)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to resolve frames: %w", err)
	}

	store.UpdateJobProgress(jobID, "encode", p.Frames, p.Frames)
	data, err := svc.RenderSheet(frames)
	if err != nil {
		return fmt.Errorf("failed to render sheet: %w", err)
	}

	if err := store.SaveResult(jobID, exportstore.Result{ContentType: "image/png", Data: data}); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}
