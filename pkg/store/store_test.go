package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chicogong/ffgraph/pkg/schemas"
)

// fixedClock returns a store whose clock advances one second per call.
func fixedClock() *MemoryStore {
	s := NewMemoryStore()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t0 = t0.Add(time.Second)
		return t0
	}
	return s
}

// testStore runs a suite of tests against any Store implementation
func testStore(t *testing.T, newStore func() Store) {
	t.Helper()

	t.Run("CreateJob", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		job := &Job{
			JobID: "test-job-1",
			Spec: &schemas.JobSpec{
				Inputs: []schemas.Input{{ID: "input1", Source: "test.mp4"}},
			},
		}

		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob() failed: %v", err)
		}

		retrieved, err := s.GetJob(ctx, job.JobID)
		if err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}
		if retrieved.Status != schemas.JobStatePending {
			t.Errorf("Expected status pending, got %s", retrieved.Status)
		}
		if retrieved.Created.IsZero() || retrieved.Updated.IsZero() {
			t.Error("Expected timestamps to be set")
		}
		if retrieved.Spec.Inputs[0].Source != "test.mp4" {
			t.Error("Spec not stored")
		}
	})

	t.Run("CreateDuplicateJob", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		job := &Job{JobID: "duplicate-job"}

		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatalf("First CreateJob() failed: %v", err)
		}
		if err := s.CreateJob(ctx, job); !errors.Is(err, ErrJobExists) {
			t.Errorf("Expected ErrJobExists, got %v", err)
		}
	})

	t.Run("InvalidJobID", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		if err := s.CreateJob(ctx, &Job{}); !errors.Is(err, ErrInvalidJobID) {
			t.Errorf("CreateJob: expected ErrInvalidJobID, got %v", err)
		}
		if _, err := s.GetJob(ctx, ""); !errors.Is(err, ErrInvalidJobID) {
			t.Errorf("GetJob: expected ErrInvalidJobID, got %v", err)
		}
	})

	t.Run("GetNonExistentJob", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		_, err := s.GetJob(context.Background(), "nonexistent")
		if !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("ReturnedJobsAreCopies", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		job := &Job{JobID: "copy-test", Progress: &schemas.Progress{CurrentStep: "queued"}}
		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatal(err)
		}
		job.Progress.CurrentStep = "mutated"

		got, _ := s.GetJob(ctx, "copy-test")
		got.Progress.CurrentStep = "mutated again"

		again, _ := s.GetJob(ctx, "copy-test")
		if again.Progress.CurrentStep != "queued" {
			t.Errorf("store shares memory with callers: %s", again.Progress.CurrentStep)
		}
	})

	t.Run("UpdateAndDeleteJob", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		if err := s.UpdateJob(ctx, &Job{JobID: "missing"}); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound, got %v", err)
		}

		if err := s.CreateJob(ctx, &Job{JobID: "update-me"}); err != nil {
			t.Fatal(err)
		}
		job, _ := s.GetJob(ctx, "update-me")
		job.Plan = &schemas.ProcessingPlan{PlanID: "plan-1"}
		if err := s.UpdateJob(ctx, job); err != nil {
			t.Fatalf("UpdateJob() failed: %v", err)
		}

		updated, _ := s.GetJob(ctx, "update-me")
		if updated.Plan == nil || updated.Plan.PlanID != "plan-1" {
			t.Error("plan not stored")
		}

		if err := s.DeleteJob(ctx, "update-me"); err != nil {
			t.Fatalf("DeleteJob() failed: %v", err)
		}
		if err := s.DeleteJob(ctx, "update-me"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		if err := s.CreateJob(ctx, &Job{JobID: "life"}); err != nil {
			t.Fatal(err)
		}

		progress := &schemas.Progress{
			OverallPercent: 40,
			CurrentStep:    "processing",
			FFmpeg:         &schemas.FFmpegProgress{Frame: 120, CurrentTime: 4 * time.Second},
		}
		if err := s.UpdateJobStatus(ctx, "life", schemas.JobStateProcessing, progress); err != nil {
			t.Fatalf("UpdateJobStatus() failed: %v", err)
		}
		progress.FFmpeg.Frame = 0

		job, _ := s.GetJob(ctx, "life")
		if job.StartedAt == nil {
			t.Error("StartedAt not set")
		}
		if job.Progress.FFmpeg.Frame != 120 {
			t.Errorf("expected frame 120, got %d", job.Progress.FFmpeg.Frame)
		}

		outputs := []schemas.OutputFile{{OutputID: "o0", Destination: "s3://b/out.mp4", FileSize: 42}}
		if err := s.CompleteJob(ctx, "life", outputs); err != nil {
			t.Fatalf("CompleteJob() failed: %v", err)
		}

		job, _ = s.GetJob(ctx, "life")
		if job.Status != schemas.JobStateCompleted || job.CompletedAt == nil {
			t.Errorf("expected completed job, got %s", job.Status)
		}
		if job.Progress.OverallPercent != 100 {
			t.Errorf("expected 100%%, got %.0f", job.Progress.OverallPercent)
		}
		if len(job.OutputFiles) != 1 || job.OutputFiles[0].FileSize != 42 {
			t.Errorf("unexpected outputs %+v", job.OutputFiles)
		}

		err := s.UpdateJobStatus(ctx, "life", schemas.JobStateProcessing, nil)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("FailJob", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		if err := s.CreateJob(ctx, &Job{JobID: "broken"}); err != nil {
			t.Fatal(err)
		}
		info := &schemas.ErrorInfo{Code: "FFMPEG_FAILED", Message: "exit 1", FFmpegExitCode: 1}
		if err := s.FailJob(ctx, "broken", info); err != nil {
			t.Fatalf("FailJob() failed: %v", err)
		}

		job, _ := s.GetJob(ctx, "broken")
		if job.Status != schemas.JobStateFailed || job.Error == nil || job.Error.FFmpegExitCode != 1 {
			t.Errorf("unexpected failed job %+v", job)
		}
		if !job.IsTerminal() || job.IsRunning() {
			t.Error("failed job should be terminal")
		}
	})

	t.Run("ListJobs", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		ctx := context.Background()
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			job := &Job{
				JobID:   fmt.Sprintf("job-%d", i),
				Created: base.Add(time.Duration(i) * time.Minute),
				Status:  schemas.JobStatePending,
			}
			if i%2 == 1 {
				job.Status = schemas.JobStateCompleted
			}
			if err := s.CreateJob(ctx, job); err != nil {
				t.Fatalf("CreateJob() failed: %v", err)
			}
		}

		all, err := s.ListJobs(ctx, nil)
		if err != nil {
			t.Fatalf("ListJobs() failed: %v", err)
		}
		if len(all) != 5 || all[0].JobID != "job-4" {
			t.Errorf("expected newest first, got %d jobs starting with %s", len(all), all[0].JobID)
		}

		completed, _ := s.ListJobs(ctx, &ListFilter{Status: []schemas.JobState{schemas.JobStateCompleted}})
		if len(completed) != 2 {
			t.Errorf("expected 2 completed jobs, got %d", len(completed))
		}

		after := base.Add(90 * time.Second)
		recent, _ := s.ListJobs(ctx, &ListFilter{CreatedAfter: &after, Ascending: true})
		if len(recent) != 3 || recent[0].JobID != "job-2" {
			t.Errorf("unexpected time filter result: %d jobs", len(recent))
		}

		page, _ := s.ListJobs(ctx, &ListFilter{Limit: 2, Offset: 1})
		if len(page) != 2 || page[0].JobID != "job-3" {
			t.Errorf("unexpected page: %d jobs", len(page))
		}

		empty, _ := s.ListJobs(ctx, &ListFilter{Offset: 10})
		if len(empty) != 0 {
			t.Errorf("expected empty page, got %d", len(empty))
		}
	})
}

// TestMemoryStore runs all tests against the memory store
func TestMemoryStore(t *testing.T) {
	testStore(t, func() Store {
		return fixedClock()
	})
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job-%d", i)
			if err := s.CreateJob(ctx, &Job{JobID: id}); err != nil {
				t.Error(err)
				return
			}
			if err := s.UpdateJobStatus(ctx, id, schemas.JobStateProcessing, &schemas.Progress{OverallPercent: 50}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	jobs, err := s.ListJobs(ctx, &ListFilter{Status: []schemas.JobState{schemas.JobStateProcessing}})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 20 {
		t.Errorf("expected 20 jobs, got %d", len(jobs))
	}
}
