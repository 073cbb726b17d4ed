package speakerid

import (
	"context"
	"strings"
	"testing"

	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/resilience"
	"github.com/skillsenselab/callscribe/timeline"
)

type scriptedProvider struct {
	content string
	prompt  string
}

func (s *scriptedProvider) Name() string                     { return "scripted" }
func (s *scriptedProvider) IsAvailable(context.Context) bool { return true }

func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.prompt = req.Messages[0].Content
	return &llm.CompletionResponse{Content: s.content}, nil
}

func (s *scriptedProvider) CompleteStructured(ctx context.Context, req llm.CompletionRequest, _ any) (*llm.CompletionResponse, error) {
	return s.Complete(ctx, req)
}

func (s *scriptedProvider) Stream(context.Context, llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}

func clientFor(p llm.Provider) *llm.Client {
	return llm.NewClient(p, &resilience.RetryConfig{MaxAttempts: 1}, nil)
}

func sampleTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		Language: "en",
		Segments: []timeline.Segment{
			{ID: 0, Start: 0, End: 5, Text: " Hello, this is Alex from Acme"},
			{ID: 1, Start: 6, End: 9, Text: " How much is it?"},
		},
		Words: []timeline.Word{{Text: " Hello", Start: 0.1, End: 0.5}},
	}
}

const goodResponse = "```json\n" + `{
  "speaker_profiles": {
    "SPEAKER_01": {"likely_role": "Sales Person", "characteristics": "leads", "confidence": 0.9},
    "SPEAKER_02": {"likely_role": "Customer", "characteristics": "asks", "confidence": 0.85}
  },
  "segments": [
    {"start": 0.0, "end": 5.0, "speaker": "SPEAKER_01", "text": "Hello, this is Alex from Acme", "confidence": 0.9},
    {"start": 6.0, "end": 9.0, "speaker": "SPEAKER_02", "text": "How much is it?", "confidence": 0.8}
  ],
  "conversation_summary": "sales call"
}` + "\n```"

func TestIdentify(t *testing.T) {
	p := &scriptedProvider{content: goodResponse}
	id := New(clientFor(p), nil)

	out, profiles, err := id.Identify(context.Background(), sampleTimeline())
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if out == nil {
		t.Fatal("expected a timeline")
	}
	if !strings.Contains(p.prompt, "[0.00s - 5.00s]: Hello, this is Alex from Acme") {
		t.Error("prompt should carry the rendered transcript lines")
	}

	if out.Segments[0].Speaker != "SPEAKER_01" || out.Segments[1].Speaker != "SPEAKER_02" {
		t.Errorf("speakers = %q/%q", out.Segments[0].Speaker, out.Segments[1].Speaker)
	}
	if out.Segments[0].SpeakerRole != "Sales Person" {
		t.Errorf("role = %q, want Sales Person", out.Segments[0].SpeakerRole)
	}
	if out.Words[0].Speaker != "SPEAKER_01" {
		t.Errorf("word speaker = %q, want SPEAKER_01", out.Words[0].Speaker)
	}

	if len(profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles))
	}
	// Labels are sorted, so SPEAKER_01 comes first.
	if profiles[0].Label != "SPEAKER_01" || profiles[0].SegmentCount != 1 {
		t.Errorf("profile 0 = %+v", profiles[0])
	}
}

func TestRenderTranscript_SkipsEmptySegments(t *testing.T) {
	tl := &timeline.Timeline{Segments: []timeline.Segment{
		{Start: 0, End: 2, Text: " hello"},
		{Start: 2, End: 3, Text: "   "},
		{Start: 3, End: 4, Text: ""},
		{Start: 4, End: 6, Text: "bye"},
	}}
	got := RenderTranscript(tl)
	want := "[0.00s - 2.00s]: hello\n[4.00s - 6.00s]: bye\n"
	if got != want {
		t.Errorf("RenderTranscript() = %q, want %q", got, want)
	}
}

func TestIdentify_NoSegmentsFallsBack(t *testing.T) {
	p := &scriptedProvider{content: `{"speaker_profiles": {}, "segments": []}`}
	id := New(clientFor(p), nil)

	out, profiles, err := id.Identify(context.Background(), sampleTimeline())
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if out != nil || profiles != nil {
		t.Error("missing segments should yield nil results for fallback")
	}
}

func TestIdentify_UnrepairableResponse(t *testing.T) {
	p := &scriptedProvider{content: "I cannot help with that."}
	id := New(clientFor(p), nil)

	_, _, err := id.Identify(context.Background(), sampleTimeline())
	if err == nil {
		t.Fatal("unrepairable response should be an error")
	}
}

func TestIdentify_EmptyTimeline(t *testing.T) {
	id := New(clientFor(&scriptedProvider{}), nil)
	out, profiles, err := id.Identify(context.Background(), &timeline.Timeline{})
	if out != nil || profiles != nil || err != nil {
		t.Errorf("empty timeline should be a no-op, got %v/%v/%v", out, profiles, err)
	}
}
