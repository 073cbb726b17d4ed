package timeline

import (
	"sort"
	"strings"
)

// Word is a single recognized word with timing and confidence.
type Word struct {
	// Text is the word text, including any leading space from the recognizer.
	Text string `json:"word"`
	// Start is the word start time in seconds.
	Start float64 `json:"start"`
	// End is the word end time in seconds.
	End float64 `json:"end"`
	// Probability is the recognizer's word confidence in [0,1].
	Probability float64 `json:"probability"`
	// Speaker is the attributed speaker label, if any.
	Speaker string `json:"speaker,omitempty"`
	// SpeakerRole is the attributed conversational role, if any.
	SpeakerRole string `json:"speaker_role,omitempty"`
}

// Segment is a contiguous transcribed span.
type Segment struct {
	// ID is the segment's position-stable identifier from the recognizer.
	ID int `json:"id"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds. Invariant: Start <= End after repair.
	End float64 `json:"end"`
	// Text is the transcribed text for this span.
	Text string `json:"text"`
	// Confidence is the recognizer's segment confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Speaker is the attributed speaker label (e.g. "SPEAKER_01"), if any.
	Speaker string `json:"speaker,omitempty"`
	// SpeakerRole is the attributed conversational role, if any.
	SpeakerRole string `json:"speaker_role,omitempty"`
	// SilenceBefore is previous.End - Start. Negative values mean the
	// segment overlaps its predecessor, not silence.
	SilenceBefore float64 `json:"silence_before,omitempty"`
	// Words holds the word-level timings for this segment.
	Words []Word `json:"words,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// Contains reports whether t falls inside the segment's interval.
// Both boundaries are inclusive.
func (s Segment) Contains(t float64) bool { return s.Start <= t && t <= s.End }

// Timeline is the ordered transcript for one audio input.
type Timeline struct {
	// Language is the detected or configured language tag.
	Language string `json:"language,omitempty"`
	// LanguageProbability is the recognizer's language confidence.
	LanguageProbability float64 `json:"language_probability,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Text is the full transcript text.
	Text string `json:"text"`
	// Segments is the ordered segment list (ascending Start after repair).
	Segments []Segment `json:"segments"`
	// Words is the flat per-timeline word list, duplicated from Segments
	// for fast lookup.
	Words []Word `json:"words,omitempty"`
}

// Clone returns a deep copy. Segments, words, and the flat word list share
// no memory with the receiver.
func (t *Timeline) Clone() *Timeline {
	if t == nil {
		return nil
	}
	out := &Timeline{
		Language:            t.Language,
		LanguageProbability: t.LanguageProbability,
		Duration:            t.Duration,
		Text:                t.Text,
	}
	if t.Segments != nil {
		out.Segments = make([]Segment, len(t.Segments))
		for i, seg := range t.Segments {
			copied := seg
			if seg.Words != nil {
				copied.Words = make([]Word, len(seg.Words))
				copy(copied.Words, seg.Words)
			}
			out.Segments[i] = copied
		}
	}
	if t.Words != nil {
		out.Words = make([]Word, len(t.Words))
		copy(out.Words, t.Words)
	}
	return out
}

// SortByStart orders segments by ascending start time. The sort is stable so
// segments sharing a start time keep their arrival order.
func (t *Timeline) SortByStart() {
	sort.SliceStable(t.Segments, func(i, j int) bool {
		return t.Segments[i].Start < t.Segments[j].Start
	})
}

// FullText joins the trimmed segment texts with single spaces.
func (t *Timeline) FullText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if txt := strings.TrimSpace(seg.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// Rebuild re-derives the flat word list and full text from the segments.
// Call it after a stage rewrites segment contents.
func (t *Timeline) Rebuild() {
	var words []Word
	for _, seg := range t.Segments {
		words = append(words, seg.Words...)
	}
	t.Words = words
	t.Text = t.FullText()
}

// IsEmpty reports whether the timeline has no segments.
func (t *Timeline) IsEmpty() bool { return t == nil || len(t.Segments) == 0 }

// SpeakerProfile describes one detected speaker. Profiles are attached to
// job results, not to the timeline itself.
type SpeakerProfile struct {
	// Label is the speaker label used in segment attribution.
	Label string `json:"label"`
	// LikelyRole is the inferred conversational role.
	LikelyRole string `json:"likely_role"`
	// Characteristics summarizes observed speech traits, if known.
	Characteristics string `json:"characteristics,omitempty"`
	// Confidence is the attribution confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// SegmentCount is the number of segments attributed to this speaker.
	SegmentCount int `json:"segment_count,omitempty"`
}
