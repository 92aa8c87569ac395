// Package trainer implements the Adapter Trainer (§4.8): an asynchronous
// job/state-machine that fine-tunes one project's low-rank adapter,
// grounded on the teacher's job-with-cancellation shape (a goroutine
// checked against a context at each unit of work) and on
// internal/registry's CapabilityUnavailable-short-circuit pattern for when
// the training runtime is absent.
package trainer

import (
	"context"
	"sync"
	"time"

	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/codebase-gardener/gardener/internal/logging"
)

// ProgressFunc is invoked every progressEvery steps with the step index.
type ProgressFunc func(step, totalSteps int)

// Job tracks one training run's lifecycle.
type Job struct {
	ProjectID  string
	Status     gardenertypes.TrainingStatus
	Step       int
	TotalSteps int
	Reason     string
	StartedAt  time.Time
	FinishedAt time.Time

	cancel context.CancelFunc
}

// Trainer runs and tracks training jobs, one per project at a time.
type Trainer struct {
	mu           sync.Mutex
	jobs         map[string]*Job
	runtimeProbe func() (bool, string)
}

// New builds a Trainer. runtimeProbe reports whether the training runtime
// capability is available; nil means "always available" (useful in
// tests).
func New(runtimeProbe func() (bool, string)) *Trainer {
	return &Trainer{
		jobs:         make(map[string]*Job),
		runtimeProbe: runtimeProbe,
	}
}

// Start launches a training job for projectID. If a job for that project
// is already running, Start returns a user error rather than starting a
// second one. If the training runtime capability is unavailable, the job
// is recorded as failed immediately and Start returns
// CapabilityUnavailable (§4.8 edge case).
func (t *Trainer) Start(ctx context.Context, projectID string, totalSteps, progressEvery int, onProgress ProgressFunc, step func(ctx context.Context, n int) error) (*Job, error) {
	t.mu.Lock()
	if existing, ok := t.jobs[projectID]; ok && existing.Status == gardenertypes.TrainingInProgress {
		t.mu.Unlock()
		return nil, errs.New(errs.KindUser, "training already in progress for "+projectID)
	}

	job := &Job{ProjectID: projectID, TotalSteps: totalSteps, StartedAt: time.Now().UTC()}

	if t.runtimeProbe != nil {
		if available, reason := t.runtimeProbe(); !available {
			job.Status = gardenertypes.TrainingFailed
			job.Reason = reason
			job.FinishedAt = time.Now().UTC()
			t.jobs[projectID] = job
			t.mu.Unlock()
			return job, errs.CapabilityUnavailable("adapter_trainer", reason)
		}
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job.Status = gardenertypes.TrainingInProgress
	job.cancel = cancel
	t.jobs[projectID] = job
	t.mu.Unlock()

	log := logging.Get(logging.CategoryTrainer)
	go func() {
		for n := 1; n <= totalSteps; n++ {
			select {
			case <-jobCtx.Done():
				t.finish(projectID, gardenertypes.TrainingFailed, "cancelled")
				return
			default:
			}

			if err := step(jobCtx, n); err != nil {
				log.Warn("training step %d failed for %s: %v", n, projectID, err)
				t.finish(projectID, gardenertypes.TrainingFailed, err.Error())
				return
			}

			t.mu.Lock()
			job.Step = n
			t.mu.Unlock()

			if progressEvery > 0 && n%progressEvery == 0 && onProgress != nil {
				onProgress(n, totalSteps)
			}
		}
		t.finish(projectID, gardenertypes.TrainingCompleted, "")
	}()

	return job, nil
}

func (t *Trainer) finish(projectID string, status gardenertypes.TrainingStatus, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[projectID]
	if !ok {
		return
	}
	job.Status = status
	job.Reason = reason
	job.FinishedAt = time.Now().UTC()
	logging.Get(logging.CategoryTrainer).Info("training for %s finished: %s (%s)", projectID, status, reason)
}

// Cancel cooperatively stops a running job. The job's goroutine observes
// the cancellation at its next step boundary.
func (t *Trainer) Cancel(projectID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[projectID]
	if !ok || job.Status != gardenertypes.TrainingInProgress {
		return errs.New(errs.KindUser, "no training in progress for "+projectID)
	}
	job.cancel()
	return nil
}

// Status returns the current job for a project, if any has ever been
// started.
func (t *Trainer) Status(projectID string) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[projectID]
	return job, ok
}
