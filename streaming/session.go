package streaming

import (
	"context"
	"strings"
	"sync"

	"github.com/skillsenselab/callscribe/errors"
	"github.com/skillsenselab/callscribe/jsonrepair"
	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/observability"
	"github.com/skillsenselab/callscribe/prompts"
	"github.com/skillsenselab/callscribe/transcription"
)

const (
	bytesPerSample = 2

	defaultWindowSeconds = 5
	defaultSampleRate    = 16000

	// contextWindowChars bounds the rolling context forwarded to the LLM.
	// Older context is silently dropped, not summarized.
	contextWindowChars = 2000
)

// Config holds streaming session tunables.
type Config struct {
	// WindowSeconds is the analysis window length.
	WindowSeconds int `yaml:"window_seconds" mapstructure:"window_seconds"`
	// SampleRate is the expected PCM sample rate of inbound audio.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`
	// Language forces the ASR language instead of auto-detecting.
	Language string `yaml:"language" mapstructure:"language"`
}

func (c *Config) applyDefaults() {
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = defaultWindowSeconds
	}
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
}

// windowBytes is the FIFO slice size: seconds x rate x bytes per sample.
func (c Config) windowBytes() int {
	return c.WindowSeconds * c.SampleRate * bytesPerSample
}

// Event is one outbound message to the session's client.
type Event struct {
	// Type is "window" for per-window results and "final" for the
	// end-of-stream event.
	Type string `json:"type"`
	// SessionID identifies the emitting session.
	SessionID string `json:"session_id"`
	// Window is the 1-based window ordinal. Zero on the final event.
	Window int `json:"window,omitempty"`
	// Text is the window transcript; on the final event, the full rolling
	// context.
	Text string `json:"text"`
	// Analysis is the incremental analysis, when the model produced one.
	Analysis map[string]any `json:"analysis,omitempty"`
	// Error carries a degraded-window explanation. The event is still
	// well-formed and the session continues.
	Error string `json:"error,omitempty"`
}

// Session is one connection's streaming state. Methods are safe for
// concurrent use, though a connection normally drives them sequentially.
type Session struct {
	id      string
	cfg     Config
	asr     transcription.Provider
	llm     *llm.Client
	log     *logger.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	buffer  []byte
	context string
	windows int
	ended   bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Feed appends audio bytes and processes every complete window currently in
// the buffer, FIFO. It returns one event per processed window; feeding less
// than a window returns no events and keeps the bytes buffered. Feed after
// end-of-stream is rejected.
func (s *Session) Feed(ctx context.Context, data []byte) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, errors.InvalidInput("audio", "session already ended")
	}
	s.buffer = append(s.buffer, data...)

	var events []Event
	windowSize := s.cfg.windowBytes()
	for len(s.buffer) >= windowSize {
		window := make([]byte, windowSize)
		copy(window, s.buffer[:windowSize])
		s.buffer = s.buffer[windowSize:]
		events = append(events, s.processWindow(ctx, window))
	}
	return events, nil
}

// End marks the stream finished and returns the final event carrying the
// full rolling context. Buffered audio short of a window is discarded.
func (s *Session) End(ctx context.Context) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return Event{}, errors.InvalidInput("control", "session already ended")
	}
	s.ended = true
	s.buffer = nil

	event := Event{
		Type:      "final",
		SessionID: s.id,
		Text:      s.context,
	}
	if s.context != "" {
		analysis, errMsg := s.analyze(ctx, "", s.context, true)
		event.Analysis = analysis
		event.Error = errMsg
	}
	return event, nil
}

// BufferedBytes reports how much audio is waiting for a full window.
func (s *Session) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// processWindow transcribes one window clip, folds it into the rolling
// context, and runs the single incremental analysis call. Failures degrade
// to an event with the error recorded; they never surface to the caller.
func (s *Session) processWindow(ctx context.Context, pcm []byte) Event {
	s.windows++
	event := Event{
		Type:      "window",
		SessionID: s.id,
		Window:    s.windows,
	}
	s.metrics.RecordWindow(ctx)

	clip := encodeWAV(pcm, s.cfg.SampleRate)
	resp, err := s.asr.Transcribe(ctx, transcription.TranscriptionRequest{
		AudioData: clip,
		Language:  s.cfg.Language,
	})
	if err != nil {
		s.log.Warn("window transcription failed", logger.Fields(
			logger.FieldSessionID, s.id,
			logger.FieldError, err.Error(),
		))
		event.Error = errors.TranscriptionFailed(err).Error()
		return event
	}

	text := strings.TrimSpace(resp.Text)
	event.Text = text

	// The window's own text joins the context before the tail is taken, so
	// the prompt's previous-context block already includes it.
	if text != "" {
		if s.context != "" {
			s.context += " "
		}
		s.context += text
	}
	previous := tail(s.context, contextWindowChars)

	event.Analysis, event.Error = s.analyze(ctx, text, previous, false)
	return event
}

// analyze runs the one-per-window LLM call. A failed or unrepairable
// response yields a nil analysis and an error message, never an error value.
func (s *Session) analyze(ctx context.Context, chunk, previous string, final bool) (map[string]any, string) {
	prompt := prompts.Streaming(chunk, tail(previous, contextWindowChars), final)
	resp, err := s.llm.CompleteStructured(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	}, nil)
	if err != nil {
		s.log.Warn("incremental analysis failed", logger.Fields(
			logger.FieldSessionID, s.id,
			logger.FieldError, err.Error(),
		))
		return nil, err.Error()
	}

	analysis := jsonrepair.Repair(resp.Content)
	if analysis == nil {
		return nil, "analysis response is not repairable JSON"
	}
	return analysis, ""
}

// tail returns the last n characters of s.
func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
