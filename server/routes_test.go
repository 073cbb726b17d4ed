package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/pipeline"
	"github.com/skillsenselab/callscribe/resilience"
	"github.com/skillsenselab/callscribe/streaming"
	"github.com/skillsenselab/callscribe/transcode"
	"github.com/skillsenselab/callscribe/transcription"
)

type fakeASR struct{ text string }

func (f *fakeASR) Name() string                     { return "fake-asr" }
func (f *fakeASR) IsAvailable(context.Context) bool { return true }
func (f *fakeASR) Transcribe(_ context.Context, _ transcription.TranscriptionRequest) (*transcription.TranscriptionResponse, error) {
	return &transcription.TranscriptionResponse{
		Text:     f.text,
		Duration: 1.5,
		Segments: []transcription.Segment{{ID: 0, Start: 0, End: 1.5, Text: f.text, Confidence: 0.9}},
	}, nil
}

type fakeLLM struct{}

func (f *fakeLLM) Name() string                     { return "fake-llm" }
func (f *fakeLLM) IsAvailable(context.Context) bool { return true }
func (f *fakeLLM) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{
		Content: `{"summary":"short call","action_items":[],"decisions":[],"key_points":[],"sentiment":"neutral","topics":[]}`,
	}, nil
}
func (f *fakeLLM) CompleteStructured(ctx context.Context, req llm.CompletionRequest, _ any) (*llm.CompletionResponse, error) {
	return f.Complete(ctx, req)
}
func (f *fakeLLM) Stream(context.Context, llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}

func newTestHandlers(t *testing.T, probes []Probe) (*gin.Engine, *Handlers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	asr := &fakeASR{text: "hello world"}
	client := llm.NewClient(&fakeLLM{}, &resilience.RetryConfig{MaxAttempts: 1}, nil)
	orch := pipeline.NewOrchestrator(context.Background(), pipeline.Options{
		Transcoder: transcode.New(nil),
		ASR:        asr,
		LLM:        client,
	})
	// 1s x 8Hz x 2 bytes keeps streaming windows at 16 bytes.
	streams := streaming.NewManager(streaming.Config{WindowSeconds: 1, SampleRate: 8}, asr, client, nil, nil)

	h := NewHandlers(orch, streams, nil, probes, Config{UploadDir: t.TempDir()}, "test", nil)
	engine := gin.New()
	h.Register(engine)
	return engine, h
}

func wavFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeData(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v\n%s", err, body.String())
	}
	return envelope.Data
}

func TestCreateJobJSONRunsToCompletion(t *testing.T) {
	engine, h := newTestHandlers(t, nil)

	payload := `{"audio_path": "` + wavFixture(t) + `"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	id, _ := decodeData(t, rec.Body)["id"].(string)
	if id == "" {
		t.Fatal("response should carry the job id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		job, ok := h.orchestrator.Jobs().Get(id)
		if !ok {
			t.Fatal("accepted job should be registered")
		}
		if job.Status == pipeline.StatusCompleted {
			if job.Result == nil || job.Result.Summary != "short call" {
				t.Fatalf("completed job result = %+v", job.Result)
			}
			break
		}
		if job.Status == pipeline.StatusFailed {
			t.Fatalf("job failed: %s", job.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateJobRejectsMissingFile(t *testing.T) {
	engine, _ := newTestHandlers(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"audio_path": "/nonexistent/call.wav"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_INPUT") {
		t.Errorf("body should carry the error code: %s", rec.Body.String())
	}
}

func TestCreateJobRejectsMissingPath(t *testing.T) {
	engine, _ := newTestHandlers(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateJobUploadStoresFile(t *testing.T) {
	engine, h := newTestHandlers(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "call.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(make([]byte, 64)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	id, _ := decodeData(t, rec.Body)["id"].(string)
	job, ok := h.orchestrator.Jobs().Get(id)
	if !ok {
		t.Fatal("accepted job should be registered")
	}
	if filepath.Dir(job.AudioPath) != h.cfg.UploadDir {
		t.Errorf("upload stored at %s, want under %s", job.AudioPath, h.cfg.UploadDir)
	}
	if filepath.Ext(job.AudioPath) != ".wav" {
		t.Errorf("upload should keep the original extension, got %s", job.AudioPath)
	}
	if _, err := os.Stat(job.AudioPath); err != nil {
		t.Errorf("uploaded file should exist: %v", err)
	}
}

func TestGetJobNotFound(t *testing.T) {
	engine, _ := newTestHandlers(t, nil)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthReportsDegradedCollaborators(t *testing.T) {
	probes := []Probe{
		{Name: "asr", Check: func(context.Context) bool { return true }},
		{Name: "diarization", Check: func(context.Context) bool { return false }},
	}
	engine, _ := newTestHandlers(t, probes)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	// Unreachable collaborators degrade the report, never fail it.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report struct {
		Service    string `json:"service"`
		Status     string `json:"status"`
		Components []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Service != "callscribe" || report.Status != "degraded" {
		t.Errorf("report = %+v", report)
	}
	if len(report.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(report.Components))
	}
}
