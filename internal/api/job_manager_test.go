package api

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lumastrip/server/internal/exportstore"
)

func waitFinished(t *testing.T, jm *JobManager, id string) *exportstore.ExportJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job := jm.Get(id)
		if job != nil && job.Status.Finished() {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not finish", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJobManager_ExecutorPanic(t *testing.T) {
	jm, err := NewJobManager(JobManagerConfig{
		SQLitePath: filepath.Join(t.TempDir(), "exports.sqlite"),
	})
	if err != nil {
		t.Fatalf("Failed to initialize job manager: %v", err)
	}
	jm.Executor = func(ctx context.Context, store *exportstore.Store, jobID string) error {
		job, err := store.GetJob(jobID)
		if err != nil {
			return err
		}
		if job.Params.Width == 1 {
			panic("sheet index out of range")
		}
		return nil
	}
	jm.Start()
	t.Cleanup(jm.Stop)

	bad, err := jm.Submit(exportstore.ExportParams{Palette: "classic", Width: 1, Frames: 1, Step: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got := waitFinished(t, jm, bad.ID)
	if got.Status != exportstore.JobStatusFailed {
		t.Fatalf("expected failed status, got %s", got.Status)
	}
	if !strings.Contains(got.Error, "panicked") {
		t.Errorf("unexpected error message %q", got.Error)
	}

	// The single worker survives and picks up the next job
	good, err := jm.Submit(exportstore.ExportParams{Palette: "classic", Width: 2, Frames: 1, Step: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := waitFinished(t, jm, good.ID); got.Status != exportstore.JobStatusCompleted {
		t.Fatalf("expected completed status, got %s (%s)", got.Status, got.Error)
	}
}
