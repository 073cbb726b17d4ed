package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillsenselab/callscribe/jsonrepair"
	"github.com/skillsenselab/callscribe/timeline"
)

// JobStatus is a job's position in the stage sequence.
type JobStatus string

const (
	StatusPreparing    JobStatus = "preparing"
	StatusTranscribing JobStatus = "transcribing"
	StatusAttributing  JobStatus = "attributing_speakers"
	StatusAnalyzing    JobStatus = "analyzing"
	StatusPersisting   JobStatus = "persisting"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// stageProgress maps each stage to the progress percentage reported on
// entry. Progress only ever increases within a job.
var stageProgress = map[JobStatus]int{
	StatusPreparing:    10,
	StatusTranscribing: 25,
	StatusAttributing:  50,
	StatusAnalyzing:    75,
	StatusPersisting:   90,
	StatusCompleted:    100,
}

// Job tracks one audio input through the pipeline.
type Job struct {
	ID         string     `json:"id"`
	AudioPath  string     `json:"audio_path"`
	OutputPath string     `json:"output_path,omitempty"`
	Status     JobStatus  `json:"status"`
	Progress   int        `json:"progress"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Result     *JobResult `json:"result,omitempty"`
}

// Metadata describes the processed input on a JobResult.
type Metadata struct {
	JobID          string     `json:"job_id"`
	Filename       string     `json:"filename"`
	Duration       float64    `json:"duration,omitempty"`
	Language       string     `json:"language,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ProcessingTime float64    `json:"processing_time,omitempty"`
}

// JobResult is the canonical persisted record for one job. The top-level
// field names are a durable contract consumed by downstream tools and must
// not change.
type JobResult struct {
	Metadata        Metadata                  `json:"metadata"`
	Transcript      *timeline.Timeline        `json:"transcript,omitempty"`
	SpeakerProfiles []timeline.SpeakerProfile `json:"speaker_profiles,omitempty"`
	Summary         string                    `json:"summary"`
	ActionItems     []jsonrepair.ActionItem   `json:"action_items"`
	Decisions       []jsonrepair.Decision     `json:"decisions"`
	KeyPoints       []jsonrepair.KeyPoint     `json:"key_points"`
	Sentiment       string                    `json:"sentiment"`
	Topics          []string                  `json:"topics"`
	Error           string                    `json:"error,omitempty"`
}

// applyAnalysis copies an analysis record onto the result.
func (r *JobResult) applyAnalysis(rec *jsonrepair.AnalysisRecord) {
	r.Summary = rec.Summary
	r.ActionItems = rec.ActionItems
	r.Decisions = rec.Decisions
	r.KeyPoints = rec.KeyPoints
	r.Sentiment = rec.Sentiment
	r.Topics = rec.Topics
}

// Registry is a concurrency-safe job store keyed by job ID.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create inserts a new job for the given input and returns a snapshot of it.
func (r *Registry) Create(audioPath, outputPath string) Job {
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.NewString(),
		AudioPath:  audioPath,
		OutputPath: outputPath,
		Status:     StatusPreparing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return *job
}

// Get returns a snapshot of the job, if present.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// update applies fn to the stored job under the write lock.
func (r *Registry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now().UTC()
	}
}

// List returns snapshots of all jobs.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	return out
}
