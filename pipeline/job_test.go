package pipeline

import (
	"sync"
	"testing"
)

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewJobRegistry()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := reg.Create("in.wav", "")
			ids <- job.ID
			reg.update(job.ID, func(j *Job) { j.Status = StatusTranscribing })
			if _, ok := reg.Get(job.ID); !ok {
				t.Error("job vanished")
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate job id %s", id)
		}
		seen[id] = true
	}
	if len(reg.List()) != 50 {
		t.Errorf("registry holds %d jobs, want 50", len(reg.List()))
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	reg := NewJobRegistry()
	job := reg.Create("in.wav", "out.json")

	snap, _ := reg.Get(job.ID)
	snap.Status = StatusFailed

	fresh, _ := reg.Get(job.ID)
	if fresh.Status != StatusPreparing {
		t.Error("mutating a snapshot must not affect the stored job")
	}
}

func TestStageProgressMonotonic(t *testing.T) {
	order := []JobStatus{StatusPreparing, StatusTranscribing, StatusAttributing,
		StatusAnalyzing, StatusPersisting, StatusCompleted}
	prev := 0
	for _, status := range order {
		p := stageProgress[status]
		if p <= prev {
			t.Errorf("progress for %v = %d, not greater than %d", status, p, prev)
		}
		prev = p
	}
}
