package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillsenselab/callscribe/errors"
	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/observability"
	"github.com/skillsenselab/callscribe/pipeline"
	"github.com/skillsenselab/callscribe/sse"
	"github.com/skillsenselab/callscribe/streaming"
)

const serviceName = "callscribe"

// JobTopic is the event topic a job's progress is published under.
func JobTopic(jobID string) string { return "job:" + jobID }

// Probe reports whether a named collaborator is reachable. Probes back the
// health endpoint only; the pipeline holds its own availability state.
type Probe struct {
	Name  string
	Check func(ctx context.Context) bool
}

// Handlers groups the route handlers and their collaborators.
type Handlers struct {
	orchestrator *pipeline.Orchestrator
	streams      *streaming.Manager
	events       *sse.Hub
	probes       []Probe
	cfg          Config
	version      string
	log          *logger.Logger
}

// NewHandlers wires the serving surface. The streaming manager, event hub,
// and probes are optional; a nil manager disables the stream endpoint and a
// nil hub disables the progress feed.
func NewHandlers(orch *pipeline.Orchestrator, streams *streaming.Manager, events *sse.Hub, probes []Probe, cfg Config, version string, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{
		orchestrator: orch,
		streams:      streams,
		events:       events,
		probes:       probes,
		cfg:          cfg,
		version:      version,
		log:          log.WithComponent("server"),
	}
}

// Register mounts all routes on the engine.
func (h *Handlers) Register(e *gin.Engine) {
	e.POST("/jobs", h.createJob)
	e.GET("/jobs", h.listJobs)
	e.GET("/jobs/:id", h.getJob)
	e.GET("/healthz", h.health)
	if h.events != nil {
		e.GET("/jobs/:id/events", h.jobEvents)
	}
	if h.streams != nil {
		e.GET("/stream", h.stream)
	}
}

type createJobRequest struct {
	AudioPath  string `json:"audio_path" binding:"required"`
	OutputPath string `json:"output_path"`
}

// createJob accepts either a JSON body referencing a server-local audio file
// or a multipart upload under the "audio" field. The job is registered and
// processed in the background; the 202 body carries the initial snapshot.
func (h *Handlers) createJob(c *gin.Context) {
	audioPath, outputPath, err := h.jobInput(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	job := h.orchestrator.Submit(audioPath, outputPath)
	go h.orchestrator.Process(context.Background(), job.ID)

	h.log.Info("job accepted", logger.Fields(logger.FieldJobID, job.ID))
	RespondAccepted(c, job)
}

func (h *Handlers) jobInput(c *gin.Context) (audioPath, outputPath string, err error) {
	if c.ContentType() == "multipart/form-data" {
		return h.storeUpload(c)
	}

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", "", errors.InvalidInput("audio_path", err.Error())
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return "", "", errors.InvalidInput("audio_path", "audio file does not exist").WithCause(err)
	}
	return req.AudioPath, req.OutputPath, nil
}

// storeUpload saves the multipart audio field under the upload directory with
// a generated name, keeping the original extension for format detection.
func (h *Handlers) storeUpload(c *gin.Context) (string, string, error) {
	file, err := c.FormFile("audio")
	if err != nil {
		return "", "", errors.InvalidInput("audio", `multipart field "audio" is required`)
	}
	if max := int64(h.cfg.MaxUploadMB) << 20; max > 0 && file.Size > max {
		return "", "", errors.InvalidInput("audio", "upload exceeds the configured size limit").
			WithDetail("max_upload_mb", h.cfg.MaxUploadMB)
	}

	dir := h.cfg.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.Internal("create upload directory", err)
	}
	dst := filepath.Join(dir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", "", errors.Internal("store upload", err)
	}
	return dst, c.PostForm("output_path"), nil
}

func (h *Handlers) getJob(c *gin.Context) {
	job, ok := h.orchestrator.Jobs().Get(c.Param("id"))
	if !ok {
		RespondWithError(c, errors.NotFound("job", c.Param("id")))
		return
	}
	RespondOK(c, job)
}

func (h *Handlers) listJobs(c *gin.Context) {
	RespondOK(c, h.orchestrator.Jobs().List())
}

// jobEvents follows one job's progress over Server-Sent Events. Terminal
// jobs still get the connected event; they simply emit nothing further.
func (h *Handlers) jobEvents(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.orchestrator.Jobs().Get(id); !ok {
		RespondWithError(c, errors.NotFound("job", id))
		return
	}
	sse.ServeSSE(h.events, c.Writer, c.Request, JobTopic(id))
}

// health aggregates collaborator availability. Unreachable collaborators
// degrade the report without failing it; only a hard down yields a 503.
func (h *Handlers) health(c *gin.Context) {
	report := observability.NewServiceHealth(serviceName, h.version)
	for _, p := range h.probes {
		report.AddComponent(observability.FromAvailability(p.Name, p.Check(c.Request.Context())))
	}

	status := http.StatusOK
	if report.Status == observability.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
