package streaming

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/resilience"
	"github.com/skillsenselab/callscribe/transcription"
)

type windowASR struct {
	calls int
	texts []string
	err   error
	clips [][]byte
}

func (w *windowASR) Name() string                     { return "window-asr" }
func (w *windowASR) IsAvailable(context.Context) bool { return true }
func (w *windowASR) Transcribe(_ context.Context, req transcription.TranscriptionRequest) (*transcription.TranscriptionResponse, error) {
	w.clips = append(w.clips, req.AudioData)
	if w.err != nil {
		return nil, w.err
	}
	text := fmt.Sprintf("window %d", w.calls)
	if w.calls < len(w.texts) {
		text = w.texts[w.calls]
	}
	w.calls++
	return &transcription.TranscriptionResponse{Text: text}, nil
}

type incrementalLLM struct {
	calls   int
	prompts []string
}

func (l *incrementalLLM) Name() string                     { return "incremental" }
func (l *incrementalLLM) IsAvailable(context.Context) bool { return true }
func (l *incrementalLLM) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	l.calls++
	l.prompts = append(l.prompts, req.Messages[0].Content)
	return &llm.CompletionResponse{
		Content: `{"new_insights": [], "updated_summary": "so far", "confidence": 0.5}`,
	}, nil
}
func (l *incrementalLLM) CompleteStructured(ctx context.Context, req llm.CompletionRequest, _ any) (*llm.CompletionResponse, error) {
	return l.Complete(ctx, req)
}
func (l *incrementalLLM) Stream(context.Context, llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}

// testConfig keeps windows tiny: 1s x 8Hz x 2 bytes = 16 bytes per window.
func testConfig() Config {
	return Config{WindowSeconds: 1, SampleRate: 8}
}

func newTestManager(asr transcription.Provider, model llm.Provider) *Manager {
	client := llm.NewClient(model, &resilience.RetryConfig{MaxAttempts: 1}, nil)
	return NewManager(testConfig(), asr, client, nil, nil)
}

func TestFeedExactlyOneWindow(t *testing.T) {
	asr := &windowASR{}
	model := &incrementalLLM{}
	s := newTestManager(asr, model).Open(context.Background())

	events, err := s.Feed(context.Background(), make([]byte, 16))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("one window of audio must yield exactly one event, got %d", len(events))
	}
	if model.calls != 1 {
		t.Errorf("llm calls = %d, want exactly 1 per window", model.calls)
	}
	if events[0].Type != "window" || events[0].Window != 1 {
		t.Errorf("event = %+v", events[0])
	}
	if s.BufferedBytes() != 0 {
		t.Errorf("buffer = %d bytes, want drained", s.BufferedBytes())
	}
}

func TestFeedLessThanWindowBuffers(t *testing.T) {
	s := newTestManager(&windowASR{}, &incrementalLLM{}).Open(context.Background())

	events, err := s.Feed(context.Background(), make([]byte, 10))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("partial window must yield zero events, got %d", len(events))
	}
	if s.BufferedBytes() != 10 {
		t.Errorf("buffer = %d bytes, want 10", s.BufferedBytes())
	}
}

func TestFeedSlicesFIFO(t *testing.T) {
	asr := &windowASR{}
	s := newTestManager(asr, &incrementalLLM{}).Open(context.Background())

	first := bytes.Repeat([]byte{1}, 16)
	second := bytes.Repeat([]byte{2}, 16)
	events, err := s.Feed(context.Background(), append(append([]byte{}, first...), second...))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("two windows must yield two events, got %d", len(events))
	}

	// Clips are WAV-wrapped; the PCM payload follows the 44-byte header.
	if !bytes.Equal(asr.clips[0][44:], first) {
		t.Error("first clip should carry the front of the buffer")
	}
	if !bytes.Equal(asr.clips[1][44:], second) {
		t.Error("second clip should carry the remainder")
	}
	if len(asr.clips[0]) != 44+16 {
		t.Errorf("clip length = %d, want header plus window", len(asr.clips[0]))
	}
}

func TestRollingContextForwarded(t *testing.T) {
	asr := &windowASR{texts: []string{"alpha", "beta"}}
	model := &incrementalLLM{}
	s := newTestManager(asr, model).Open(context.Background())

	if _, err := s.Feed(context.Background(), make([]byte, 32)); err != nil {
		t.Fatal(err)
	}

	// The context is updated before the tail is taken, so each window's
	// prompt is conditioned on a context that includes its own text.
	if !strings.Contains(model.prompts[0], "Previous context:\nalpha") {
		t.Errorf("first window should see the updated context, got:\n%s", model.prompts[0])
	}
	if !strings.Contains(model.prompts[1], "Previous context:\nalpha beta") {
		t.Errorf("second window should see both windows' text, got:\n%s", model.prompts[1])
	}
}

func TestEndEmitsFinalEventAndSealsSession(t *testing.T) {
	asr := &windowASR{texts: []string{"alpha", "beta"}}
	s := newTestManager(asr, &incrementalLLM{}).Open(context.Background())

	if _, err := s.Feed(context.Background(), make([]byte, 32)); err != nil {
		t.Fatal(err)
	}

	final, err := s.End(context.Background())
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if final.Type != "final" || final.Text != "alpha beta" {
		t.Errorf("final event = %+v, want full rolling context", final)
	}
	if final.Analysis == nil {
		t.Error("final event should carry the closing analysis")
	}

	if _, err := s.Feed(context.Background(), make([]byte, 16)); err == nil {
		t.Error("audio after end-of-stream must be rejected")
	}
	if _, err := s.End(context.Background()); err == nil {
		t.Error("second End must be rejected")
	}
}

func TestWindowASRFailureDegrades(t *testing.T) {
	asr := &windowASR{err: stderrors.New("clip rejected")}
	s := newTestManager(asr, &incrementalLLM{}).Open(context.Background())

	events, err := s.Feed(context.Background(), make([]byte, 16))
	if err != nil {
		t.Fatalf("Feed() must not surface window failures, got %v", err)
	}
	if len(events) != 1 || events[0].Error == "" {
		t.Errorf("failed window should emit one event with the error recorded, got %+v", events)
	}

	// The session keeps accepting audio afterwards.
	asr.err = nil
	if _, err := s.Feed(context.Background(), make([]byte, 16)); err != nil {
		t.Errorf("session should continue after a failed window: %v", err)
	}
}

func TestManagerRegistry(t *testing.T) {
	m := newTestManager(&windowASR{}, &incrementalLLM{})

	a := m.Open(context.Background())
	b := m.Open(context.Background())
	if a.ID() == b.ID() {
		t.Fatal("sessions must have distinct ids")
	}
	if m.Active() != 2 {
		t.Errorf("active = %d, want 2", m.Active())
	}

	if _, ok := m.Get(a.ID()); !ok {
		t.Error("session a should be registered")
	}
	m.Close(context.Background(), a.ID())
	if _, ok := m.Get(a.ID()); ok {
		t.Error("closed session should be gone")
	}
	if m.Active() != 1 {
		t.Errorf("active = %d, want 1", m.Active())
	}
}

func TestTail(t *testing.T) {
	if got := tail("hello", 10); got != "hello" {
		t.Errorf("tail short = %q", got)
	}
	if got := tail("hello world", 5); got != "world" {
		t.Errorf("tail = %q, want world", got)
	}
}
