package whisper

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skillsenselab/callscribe/transcription"
)

func TestConfidenceFromLogProb(t *testing.T) {
	cases := []struct {
		logProb float64
		want    float64
	}{
		{0, 1.0},
		{-0.5, math.Exp(-0.5)},
		{-3.0, math.Exp(-3.0)},
		{-50.0, math.Exp(-3.0)}, // clamped at the floor
		{1.0, 1.0},              // clamped at 1
	}
	for _, tc := range cases {
		got := confidenceFromLogProb(tc.logProb)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("confidenceFromLogProb(%v) = %v, want %v", tc.logProb, got, tc.want)
		}
	}
}

func TestToTranscriptionResponse(t *testing.T) {
	resp := &whisperResponse{
		Text:     "hello world",
		Language: "en",
		Segments: []whisperSegment{
			{ID: 0, Start: 0, End: 2, Text: " hello", AvgLogProb: -0.2,
				Words: []whisperWord{{Word: " hello", Start: 0.1, End: 0.6, Probability: 0.98}}},
			{ID: 1, Start: 2, End: 4.5, Text: " world", AvgLogProb: -9},
		},
	}
	out := toTranscriptionResponse(resp)

	if len(out.Segments) != 2 || len(out.Words) != 1 {
		t.Fatalf("segments/words = %d/%d, want 2/1", len(out.Segments), len(out.Words))
	}
	if out.Duration != 4.5 {
		t.Errorf("duration = %v, want last segment end 4.5", out.Duration)
	}
	if math.Abs(out.Segments[0].Confidence-math.Exp(-0.2)) > 1e-9 {
		t.Errorf("segment 0 confidence = %v", out.Segments[0].Confidence)
	}
	if math.Abs(out.Segments[1].Confidence-math.Exp(-3.0)) > 1e-9 {
		t.Errorf("floored confidence = %v, want %v", out.Segments[1].Confidence, math.Exp(-3.0))
	}
}

func TestTranscribeAgainstSidecar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/transcribe":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if got := r.FormValue("model"); got != "base" {
				t.Errorf("model field = %q", got)
			}
			if got := r.FormValue("word_timestamps"); got != "true" {
				t.Errorf("word_timestamps field = %q", got)
			}
			_ = json.NewEncoder(w).Encode(whisperResponse{
				Text:     "ok",
				Segments: []whisperSegment{{Start: 0, End: 1, Text: "ok", AvgLogProb: -0.1}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewProvider(Config{URL: srv.URL})
	if !p.IsAvailable(context.Background()) {
		t.Fatal("sidecar should be available")
	}

	resp, err := p.Transcribe(context.Background(), transcription.TranscriptionRequest{
		AudioData:      []byte("RIFFfake"),
		WordTimestamps: true,
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if resp.Text != "ok" || len(resp.Segments) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}
