// Package speakerid attributes speakers to transcript segments with a
// single structured LLM call. It is the higher-quality alternative to the
// heuristic separator and degrades to it when the model response cannot be
// used.
package speakerid

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/skillsenselab/callscribe/jsonrepair"
	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/prompts"
	"github.com/skillsenselab/callscribe/timeline"
)

// Identifier runs LLM-based speaker identification over a timeline.
type Identifier struct {
	client *llm.Client
	log    *logger.Logger
}

// New creates an Identifier. A nil logger discards output.
func New(client *llm.Client, log *logger.Logger) *Identifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Identifier{client: client, log: log.WithComponent("speakerid")}
}

// identificationResult mirrors the JSON shape requested by the prompt.
type identificationResult struct {
	SpeakerProfiles map[string]struct {
		LikelyRole      string  `json:"likely_role"`
		Characteristics string  `json:"characteristics"`
		Confidence      float64 `json:"confidence"`
	} `json:"speaker_profiles"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Speaker    string  `json:"speaker"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
	ConversationSummary string `json:"conversation_summary"`
}

// Identify asks the model to assign speakers to every segment and returns a
// new timeline built from the model's assignment, plus the speaker profiles.
// It returns nil timeline (and no error) when the response parses but lacks
// segments, so the caller can fall back to heuristic separation. Transport
// and repair failures return an error.
func (id *Identifier) Identify(ctx context.Context, tl *timeline.Timeline) (*timeline.Timeline, []timeline.SpeakerProfile, error) {
	if tl.IsEmpty() {
		return nil, nil, nil
	}

	prompt := prompts.SpeakerIdentification(RenderTranscript(tl))
	resp, err := id.client.CompleteStructured(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.1,
	}, nil)
	if err != nil {
		return nil, nil, err
	}

	repaired := jsonrepair.Repair(resp.Content)
	if repaired == nil {
		return nil, nil, fmt.Errorf("speaker identification response is not repairable JSON")
	}

	var result identificationResult
	if err := jsonrepair.Decode(repaired, &result); err != nil {
		return nil, nil, fmt.Errorf("decode speaker identification: %w", err)
	}
	if len(result.Segments) == 0 {
		id.log.Warn("speaker identification returned no segments")
		return nil, nil, nil
	}

	out := buildTimeline(tl, &result)
	profiles := buildProfiles(&result, out)
	id.log.Info("speaker identification complete", logger.Fields(
		"segments", len(out.Segments),
		"speakers", len(profiles),
	))
	return out, profiles, nil
}

// RenderTranscript formats the timeline as timestamped lines for the prompt.
// Segments whose text is empty after trimming are skipped.
func RenderTranscript(tl *timeline.Timeline) string {
	var b strings.Builder
	for _, seg := range tl.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%.2fs - %.2fs]: %s\n", seg.Start, seg.End, text)
	}
	return b.String()
}

func buildTimeline(src *timeline.Timeline, result *identificationResult) *timeline.Timeline {
	out := &timeline.Timeline{
		Language:            src.Language,
		LanguageProbability: src.LanguageProbability,
		Duration:            src.Duration,
	}
	out.Segments = make([]timeline.Segment, len(result.Segments))
	for i, seg := range result.Segments {
		out.Segments[i] = timeline.Segment{
			ID:         i,
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Speaker:    seg.Speaker,
			Confidence: seg.Confidence,
		}
		if p, ok := result.SpeakerProfiles[seg.Speaker]; ok {
			out.Segments[i].SpeakerRole = p.LikelyRole
		}
	}
	out.SortByStart()

	// Carry the source words over, attributed by first containing segment.
	out.Words = make([]timeline.Word, len(src.Words))
	copy(out.Words, src.Words)
	for i := range out.Words {
		for _, seg := range out.Segments {
			if seg.Contains(out.Words[i].Start) {
				out.Words[i].Speaker = seg.Speaker
				out.Words[i].SpeakerRole = seg.SpeakerRole
				break
			}
		}
	}
	out.Text = out.FullText()
	return out
}

func buildProfiles(result *identificationResult, tl *timeline.Timeline) []timeline.SpeakerProfile {
	counts := make(map[string]int)
	for _, seg := range tl.Segments {
		counts[seg.Speaker]++
	}

	labels := make([]string, 0, len(result.SpeakerProfiles))
	for label := range result.SpeakerProfiles {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	profiles := make([]timeline.SpeakerProfile, 0, len(labels))
	for _, label := range labels {
		p := result.SpeakerProfiles[label]
		profiles = append(profiles, timeline.SpeakerProfile{
			Label:           label,
			LikelyRole:      p.LikelyRole,
			Characteristics: p.Characteristics,
			Confidence:      p.Confidence,
			SegmentCount:    counts[label],
		})
	}
	return profiles
}
