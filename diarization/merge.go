package diarization

import "github.com/skillsenselab/callscribe/timeline"

// Apply projects diarization turns onto a transcript timeline. Each word takes
// the speaker of the first turn whose interval contains its start time, then
// each segment takes the majority speaker among the labeled words it fully
// contains. The input timeline is not mutated. Words outside every turn and
// segments with no labeled words keep an empty speaker label.
func Apply(tl *timeline.Timeline, resp *DiarizationResponse) *timeline.Timeline {
	out := tl.Clone()
	if resp == nil || len(resp.Segments) == 0 {
		return out
	}

	for i := range out.Words {
		out.Words[i].Speaker = speakerAt(out.Words[i].Start, resp.Segments)
	}
	for i := range out.Segments {
		seg := &out.Segments[i]
		for j := range seg.Words {
			seg.Words[j].Speaker = speakerAt(seg.Words[j].Start, resp.Segments)
		}
		words := out.Words
		if len(words) == 0 {
			words = seg.Words
		}
		seg.Speaker = majoritySpeaker(*seg, words)
	}
	return out
}

// speakerAt returns the speaker of the first turn whose interval contains t.
// Turn boundaries are inclusive.
func speakerAt(t float64, turns []Segment) string {
	for _, turn := range turns {
		if turn.Start <= t && t <= turn.End {
			return turn.Speaker
		}
	}
	return ""
}

// majoritySpeaker votes over the labeled words fully contained in the
// segment's interval. Ties resolve to the lexically smaller label.
func majoritySpeaker(seg timeline.Segment, words []timeline.Word) string {
	counts := make(map[string]int)
	for _, w := range words {
		if w.Speaker != "" && w.Start >= seg.Start && w.End <= seg.End {
			counts[w.Speaker]++
		}
	}
	best, bestCount := "", 0
	for speaker, n := range counts {
		if n > bestCount || (n == bestCount && speaker < best) {
			best, bestCount = speaker, n
		}
	}
	return best
}
