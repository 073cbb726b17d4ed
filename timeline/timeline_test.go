package timeline

import "testing"

func sampleTimeline() *Timeline {
	return &Timeline{
		Language: "en",
		Duration: 9.0,
		Segments: []Segment{
			{ID: 0, Start: 0, End: 5, Text: "Hello, this is Sales calling", Confidence: 0.9,
				Words: []Word{{Text: " Hello", Start: 0, End: 0.4, Probability: 0.99}}},
			{ID: 1, Start: 5.0, End: 5.1, Text: "uh", Confidence: 0.4},
			{ID: 2, Start: 5.1, End: 9, Text: "How much does it cost?", Confidence: 0.85},
		},
	}
}

func TestClone_Independence(t *testing.T) {
	orig := sampleTimeline()
	clone := orig.Clone()

	clone.Segments[0].Text = "changed"
	clone.Segments[0].Words[0].Speaker = "SPEAKER_02"

	if orig.Segments[0].Text != "Hello, this is Sales calling" {
		t.Error("clone mutation leaked into original segment text")
	}
	if orig.Segments[0].Words[0].Speaker != "" {
		t.Error("clone mutation leaked into original words")
	}
}

func TestClone_Nil(t *testing.T) {
	var tl *Timeline
	if tl.Clone() != nil {
		t.Error("cloning nil should return nil")
	}
}

func TestSortByStart_Stable(t *testing.T) {
	tl := &Timeline{Segments: []Segment{
		{ID: 2, Start: 4.0, End: 5.0},
		{ID: 0, Start: 1.0, End: 2.0},
		{ID: 1, Start: 1.0, End: 1.5},
	}}
	tl.SortByStart()

	if tl.Segments[0].ID != 0 || tl.Segments[1].ID != 1 {
		t.Errorf("equal-start segments should keep arrival order, got IDs %d,%d,%d",
			tl.Segments[0].ID, tl.Segments[1].ID, tl.Segments[2].ID)
	}
	if tl.Segments[2].ID != 2 {
		t.Errorf("last segment should be ID 2, got %d", tl.Segments[2].ID)
	}
}

func TestFullText(t *testing.T) {
	tl := sampleTimeline()
	want := "Hello, this is Sales calling uh How much does it cost?"
	if got := tl.FullText(); got != want {
		t.Errorf("FullText() = %q, want %q", got, want)
	}
}

func TestFullText_SkipsEmptySegments(t *testing.T) {
	tl := &Timeline{Segments: []Segment{
		{Text: "  hello "},
		{Text: "   "},
		{Text: "world"},
	}}
	if got := tl.FullText(); got != "hello world" {
		t.Errorf("FullText() = %q", got)
	}
}

func TestRebuild(t *testing.T) {
	tl := sampleTimeline()
	tl.Words = nil
	tl.Text = ""
	tl.Rebuild()

	if len(tl.Words) != 1 {
		t.Errorf("Rebuild should flatten %d word(s), got %d", 1, len(tl.Words))
	}
	if tl.Text == "" {
		t.Error("Rebuild should derive full text")
	}
}

func TestSegment_Contains_InclusiveBoundaries(t *testing.T) {
	seg := Segment{Start: 1.0, End: 2.0}
	for _, tc := range []struct {
		at   float64
		want bool
	}{
		{1.0, true}, {2.0, true}, {1.5, true}, {0.99, false}, {2.01, false},
	} {
		if got := seg.Contains(tc.at); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	var tl *Timeline
	if !tl.IsEmpty() {
		t.Error("nil timeline should be empty")
	}
	if !(&Timeline{}).IsEmpty() {
		t.Error("timeline without segments should be empty")
	}
	if sampleTimeline().IsEmpty() {
		t.Error("populated timeline should not be empty")
	}
}
