package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skillsenselab/callscribe/diarization"
	"github.com/skillsenselab/callscribe/errors"
	"github.com/skillsenselab/callscribe/jsonrepair"
	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/observability"
	"github.com/skillsenselab/callscribe/prompts"
	"github.com/skillsenselab/callscribe/separator"
	"github.com/skillsenselab/callscribe/speakerid"
	"github.com/skillsenselab/callscribe/timeline"
	"github.com/skillsenselab/callscribe/transcode"
	"github.com/skillsenselab/callscribe/transcription"
)

// fallbackSummaryRunes caps the transcript prefix used as the summary when
// analysis fails entirely.
const fallbackSummaryRunes = 500

// ProgressFunc observes stage transitions. Calls are fire-and-forget; a
// panicking observer is swallowed and never aborts the job.
type ProgressFunc func(jobID string, status JobStatus, progress int)

// Config holds orchestrator tunables.
type Config struct {
	// MinSilenceGap is the separator's turn boundary threshold in seconds.
	MinSilenceGap float64 `yaml:"min_silence_gap" mapstructure:"min_silence_gap"`
	// UseSpeakerID enables the LLM speaker identification path.
	UseSpeakerID bool `yaml:"use_speaker_id" mapstructure:"use_speaker_id"`
	// Language forces the ASR language instead of auto-detecting.
	Language string `yaml:"language" mapstructure:"language"`
	// TmpDir holds transcoded intermediates. Empty means the system default.
	TmpDir string `yaml:"tmp_dir" mapstructure:"tmp_dir"`
}

// Orchestrator runs batch jobs through the stage sequence.
type Orchestrator struct {
	cfg        Config
	transcoder *transcode.Transcoder
	asr        transcription.Provider
	llmClient  *llm.Client
	identifier *speakerid.Identifier
	sep        *separator.Separator
	validator  *jsonrepair.Validator
	jobs       *Registry
	observer   ProgressFunc
	metrics    *observability.Metrics
	log        *logger.Logger

	diarizer diarization.Provider
	// diarizerAvailable is probed once at construction, per the
	// optional-collaborator contract.
	diarizerAvailable bool
}

// Options bundles the orchestrator's collaborators. ASR, LLM, and the
// transcoder are required; the rest are optional.
type Options struct {
	Config     Config
	Transcoder *transcode.Transcoder
	ASR        transcription.Provider
	LLM        *llm.Client
	Diarizer   diarization.Provider
	Jobs       *Registry
	Observer   ProgressFunc
	Metrics    *observability.Metrics
	Logger     *logger.Logger
}

// NewOrchestrator wires an orchestrator from its collaborators. The
// diarizer's availability is probed once here; an unreachable diarizer
// degrades the pipeline to heuristic separation without error.
func NewOrchestrator(ctx context.Context, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.Config.MinSilenceGap == 0 {
		opts.Config.MinSilenceGap = separator.DefaultMinSilenceGap
	}
	jobs := opts.Jobs
	if jobs == nil {
		jobs = NewJobRegistry()
	}

	o := &Orchestrator{
		cfg:        opts.Config,
		transcoder: opts.Transcoder,
		asr:        opts.ASR,
		llmClient:  opts.LLM,
		identifier: speakerid.New(opts.LLM, log),
		sep:        separator.New(log),
		validator:  jsonrepair.NewValidator(log),
		jobs:       jobs,
		observer:   opts.Observer,
		metrics:    opts.Metrics,
		log:        log.WithComponent("pipeline"),
		diarizer:   opts.Diarizer,
	}
	if o.diarizer != nil {
		o.diarizerAvailable = o.diarizer.IsAvailable(ctx)
		if !o.diarizerAvailable {
			o.log.Warn("diarization backend unreachable, degrading to heuristic separation",
				logger.Fields(logger.FieldProvider, o.diarizer.Name()))
		}
	}
	return o
}

// Jobs exposes the job registry for the serving surface.
func (o *Orchestrator) Jobs() *Registry { return o.jobs }

// Submit registers a new job and returns its snapshot. The caller decides
// where Process runs; jobs are independent and safe to run concurrently.
func (o *Orchestrator) Submit(audioPath, outputPath string) Job {
	return o.jobs.Create(audioPath, outputPath)
}

// Process runs the job to a terminal state and returns its result. It never
// panics and never returns nil: fatal stage errors yield a failed job whose
// partial result carries the error message.
func (o *Orchestrator) Process(ctx context.Context, jobID string) (result *JobResult) {
	job, ok := o.jobs.Get(jobID)
	if !ok {
		return &JobResult{Error: fmt.Sprintf("unknown job %q", jobID)}
	}

	started := time.Now()
	result = &JobResult{
		Metadata: Metadata{
			JobID:     job.ID,
			Filename:  filepath.Base(job.AudioPath),
			CreatedAt: job.CreatedAt,
		},
	}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panic", logger.Fields(
				logger.FieldJobID, job.ID, "panic", fmt.Sprint(r),
			))
			result = o.fail(ctx, job.ID, result, started, errors.Internal(fmt.Sprintf("pipeline panic: %v", r), nil))
		}
	}()

	// preparing
	o.setStage(ctx, job.ID, StatusPreparing)
	audioPath := job.AudioPath
	if o.transcoder.NeedsConversion(audioPath) {
		converted, err := o.transcoder.Convert(ctx, audioPath, o.cfg.TmpDir)
		if err != nil {
			return o.fail(ctx, job.ID, result, started, err)
		}
		defer os.Remove(converted)
		audioPath = converted
	}
	if d, err := o.transcoder.Duration(ctx, audioPath); err == nil {
		result.Metadata.Duration = d
	}

	// transcribing
	o.setStage(ctx, job.ID, StatusTranscribing)
	tl, err := o.transcribe(ctx, audioPath)
	if err != nil {
		return o.fail(ctx, job.ID, result, started, err)
	}
	result.Transcript = tl
	result.Metadata.Language = tl.Language
	if result.Metadata.Duration == 0 {
		result.Metadata.Duration = tl.Duration
	}

	// attributing_speakers (non-fatal)
	o.setStage(ctx, job.ID, StatusAttributing)
	attributed, profiles := o.attribute(ctx, audioPath, tl)
	result.Transcript = attributed
	result.SpeakerProfiles = profiles

	// analyzing (degrades to the fallback record)
	o.setStage(ctx, job.ID, StatusAnalyzing)
	result.applyAnalysis(o.analyze(ctx, attributed, profiles))

	// persisting
	o.setStage(ctx, job.ID, StatusPersisting)
	finished := time.Now().UTC()
	result.Metadata.CompletedAt = &finished
	result.Metadata.ProcessingTime = time.Since(started).Seconds()
	if job.OutputPath != "" {
		if err := writeResult(job.OutputPath, result); err != nil {
			return o.fail(ctx, job.ID, result, started, err)
		}
	}

	o.setStage(ctx, job.ID, StatusCompleted)
	o.jobs.update(job.ID, func(j *Job) { j.Result = result })
	o.metrics.RecordJob(ctx, string(StatusCompleted))
	o.metrics.RecordStage(ctx, "total", time.Since(started))
	o.log.Info("job completed", logger.Fields(
		logger.FieldJobID, job.ID,
		logger.FieldDuration, time.Since(started).String(),
	))
	return result
}

// transcribe invokes the ASR collaborator and converts its response into a
// timeline ordered by ascending start.
func (o *Orchestrator) transcribe(ctx context.Context, audioPath string) (*timeline.Timeline, error) {
	start := time.Now()
	resp, err := o.asr.Transcribe(ctx, transcription.TranscriptionRequest{
		AudioPath:      audioPath,
		Language:       o.cfg.Language,
		WordTimestamps: true,
	})
	o.metrics.RecordCollaborator(ctx, "asr", time.Since(start), err)
	if err != nil {
		return nil, errors.TranscriptionFailed(err)
	}
	return toTimeline(resp), nil
}

// attribute assigns speakers using the best available strategy. It cannot
// fail the job: every error path falls through to the heuristic separator.
func (o *Orchestrator) attribute(ctx context.Context, audioPath string, tl *timeline.Timeline) (*timeline.Timeline, []timeline.SpeakerProfile) {
	if o.cfg.UseSpeakerID && o.llmClient != nil {
		out, profiles, err := o.identifier.Identify(ctx, tl)
		if err != nil {
			o.log.Warn("speaker identification failed, falling back", logger.Fields(
				logger.FieldError, err.Error(),
			))
		} else if out != nil {
			return out, profiles
		}
	}

	if o.diarizer != nil && o.diarizerAvailable {
		start := time.Now()
		resp, err := o.diarizer.Diarize(ctx, diarization.DiarizationRequest{
			AudioPath:   audioPath,
			NumSpeakers: 2,
		})
		o.metrics.RecordCollaborator(ctx, "diarization", time.Since(start), err)
		if err != nil {
			o.log.Warn("diarization failed, falling back", logger.Fields(
				logger.FieldError, err.Error(),
			))
		} else if resp != nil && len(resp.Segments) > 0 {
			merged := diarization.Apply(tl, resp)
			return merged, profilesFromLabels(merged)
		}
	}

	return o.sep.Separate(tl, o.cfg.MinSilenceGap)
}

// analyze produces the structured analysis, substituting the minimal record
// when the LLM or repair fails entirely.
func (o *Orchestrator) analyze(ctx context.Context, tl *timeline.Timeline, profiles []timeline.SpeakerProfile) *jsonrepair.AnalysisRecord {
	prompt := prompts.Analysis(tl.Text, tl.Segments, profiles)

	start := time.Now()
	resp, err := o.llmClient.CompleteStructured(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	}, nil)
	o.metrics.RecordCollaborator(ctx, "llm", time.Since(start), err)
	if err == nil {
		if rec := o.validator.ValidateAndRepair(resp.Content); rec != nil {
			return rec
		}
		o.log.Warn("analysis response unrepairable, using fallback record")
	} else {
		o.log.Warn("analysis failed, using fallback record", logger.Fields(
			logger.FieldError, err.Error(),
		))
	}
	return fallbackRecord(tl.Text)
}

// fallbackRecord builds the minimal analysis: a bounded transcript prefix as
// the summary and empty list fields.
func fallbackRecord(text string) *jsonrepair.AnalysisRecord {
	runes := []rune(text)
	if len(runes) > fallbackSummaryRunes {
		runes = runes[:fallbackSummaryRunes]
	}
	rec := &jsonrepair.AnalysisRecord{Summary: string(runes)}
	rec.ApplyDefaults()
	return rec
}

// fail transitions the job to failed with the error recorded on the partial
// result.
func (o *Orchestrator) fail(ctx context.Context, jobID string, result *JobResult, started time.Time, err error) *JobResult {
	result.Error = err.Error()
	finished := time.Now().UTC()
	result.Metadata.CompletedAt = &finished
	result.Metadata.ProcessingTime = time.Since(started).Seconds()

	o.jobs.update(jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Error = err.Error()
		j.Result = result
	})
	o.notify(jobID, StatusFailed, stageProgress[StatusCompleted])
	o.metrics.RecordJob(ctx, string(StatusFailed))
	o.log.Error("job failed", logger.Fields(
		logger.FieldJobID, jobID,
		logger.FieldError, err.Error(),
	))
	return result
}

func (o *Orchestrator) setStage(ctx context.Context, jobID string, status JobStatus) {
	progress := stageProgress[status]
	o.jobs.update(jobID, func(j *Job) {
		j.Status = status
		j.Progress = progress
	})
	o.notify(jobID, status, progress)
	o.log.Debug("stage transition", logger.Fields(
		logger.FieldJobID, jobID,
		logger.FieldStage, string(status),
	))
}

// notify invokes the progress observer, swallowing panics.
func (o *Orchestrator) notify(jobID string, status JobStatus, progress int) {
	if o.observer == nil {
		return
	}
	defer func() { _ = recover() }()
	o.observer(jobID, status, progress)
}

// toTimeline converts an ASR response to the internal timeline.
func toTimeline(resp *transcription.TranscriptionResponse) *timeline.Timeline {
	tl := &timeline.Timeline{
		Language: resp.Language,
		Duration: resp.Duration,
		Text:     resp.Text,
	}
	tl.Segments = make([]timeline.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		tl.Segments[i] = timeline.Segment{
			ID:         seg.ID,
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		}
	}
	tl.Words = make([]timeline.Word, len(resp.Words))
	for i, w := range resp.Words {
		tl.Words[i] = timeline.Word{
			Text:        w.Text,
			Start:       w.Start,
			End:         w.End,
			Probability: w.Probability,
		}
	}
	tl.SortByStart()
	if tl.Text == "" {
		tl.Text = tl.FullText()
	}
	return tl
}

// profilesFromLabels summarizes diarization labels into speaker profiles.
func profilesFromLabels(tl *timeline.Timeline) []timeline.SpeakerProfile {
	counts := make(map[string]int)
	order := make([]string, 0, 2)
	for _, seg := range tl.Segments {
		if seg.Speaker == "" {
			continue
		}
		if _, seen := counts[seg.Speaker]; !seen {
			order = append(order, seg.Speaker)
		}
		counts[seg.Speaker]++
	}
	profiles := make([]timeline.SpeakerProfile, 0, len(order))
	for _, label := range order {
		profiles = append(profiles, timeline.SpeakerProfile{
			Label:        label,
			SegmentCount: counts[label],
		})
	}
	return profiles
}

// writeResult persists the canonical JobResult serialization.
func writeResult(path string, result *JobResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Internal("marshal job result", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Internal("create output directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Internal("write job result", err)
	}
	return nil
}
