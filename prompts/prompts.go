// Package prompts builds the fixed instruction prompts sent to the LLM
// collaborator. The output shapes requested here are enforced downstream by
// the jsonrepair package, so wording changes must keep the JSON contracts
// intact.
package prompts

import (
	"fmt"
	"strings"

	"github.com/skillsenselab/callscribe/timeline"
)

// maxSampleSegments caps the number of timestamped lines embedded in the
// analysis prompt.
const maxSampleSegments = 20

// Analysis builds the transcript analysis prompt from the full transcript
// text, a capped sample of timestamped segments, and optional speaker
// profiles.
func Analysis(transcript string, segments []timeline.Segment, profiles []timeline.SpeakerProfile) string {
	var b strings.Builder
	b.WriteString("Analyze the following audio transcript and provide a structured analysis.\n\n")

	b.WriteString("TRANSCRIPT:\n```\n")
	if transcript != "" {
		b.WriteString(transcript)
	} else {
		b.WriteString("[No transcript provided]")
	}
	b.WriteString("\n```\n\n")

	if len(segments) > 0 {
		b.WriteString("TIMESTAMPS:\n```\n")
		sample := segments
		if len(sample) > maxSampleSegments {
			sample = sample[:maxSampleSegments]
		}
		for _, seg := range sample {
			text := seg.Text
			if len(text) > 100 {
				text = text[:100]
			}
			fmt.Fprintf(&b, "[%.2fs - %.2fs]: %s\n", seg.Start, seg.End, text)
		}
		if len(segments) > maxSampleSegments {
			fmt.Fprintf(&b, "... and %d more segments\n", len(segments)-maxSampleSegments)
		}
		b.WriteString("```\n\n")
	}

	if len(profiles) > 0 {
		b.WriteString("SPEAKERS:\n```\n")
		for _, p := range profiles {
			fmt.Fprintf(&b, "%s: %s\n", p.Label, p.LikelyRole)
		}
		b.WriteString("```\n\n")
	}

	b.WriteString(`Provide your analysis in the following JSON format:
` + "```json" + `
{
  "summary": "A comprehensive summary of the conversation (2-4 sentences)",
  "action_items": [
    {"item": "Action item description", "confidence": 0.95, "assignee": "Person responsible"}
  ],
  "decisions": [
    {"decision": "Decision made", "confidence": 0.90, "context": "Brief context"}
  ],
  "key_points": [
    {"point": "Key point or insight", "confidence": 0.85}
  ],
  "sentiment": "overall|positive|negative|neutral|mixed",
  "topics": ["topic1", "topic2"]
}
` + "```" + `

Rules:
- Extract only information explicitly stated in the transcript
- Mark uncertain information with confidence < 0.7
- Use [UNSURE] prefix for any assumptions
- Keep the summary concise but comprehensive
- Return ONLY valid JSON, no additional text`)

	return b.String()
}

// Streaming builds the incremental analysis prompt for one transcribed
// window, conditioned on the bounded rolling context.
func Streaming(chunk, previousContext string, final bool) string {
	var b strings.Builder
	if previousContext != "" {
		b.WriteString("Previous context:\n")
		b.WriteString(previousContext)
		b.WriteString("\n\n")
	}
	b.WriteString("New transcript chunk:\n")
	b.WriteString(chunk)
	b.WriteString("\n\n")
	if final {
		b.WriteString("This is the FINAL chunk. Provide complete analysis.\n\n")
	}
	b.WriteString("Provide incremental analysis as JSON:\n")
	b.WriteString(`{"new_insights": [], "updated_summary": "", "confidence": 0.0}`)
	return b.String()
}

// SpeakerIdentification builds the speaker identification prompt around the
// rendered timestamped transcript lines.
func SpeakerIdentification(transcriptWithTimestamps string) string {
	return fmt.Sprintf(speakerIdentificationTemplate, transcriptWithTimestamps)
}

const speakerIdentificationTemplate = `You are an expert conversational analyst. Analyze this transcript and identify distinct speakers.

TRANSCRIPT WITH TIMESTAMPS:
%s

TASK:
1. Identify exactly 2 speakers in this conversation
2. Determine their roles (e.g., Sales Person, Customer, Interviewer, etc.)
3. Assign each transcript segment to the correct speaker
4. Ensure NO overlapping timestamps between speakers

ANALYSIS GUIDELINES:
- Look at conversation flow and turn-taking patterns
- Sales person typically: initiates, explains products, asks questions about needs
- Customer typically: responds, asks about details, expresses interest/concerns
- Consider who introduces themselves and their purpose
- Consider question/answer patterns
- Consider formal vs informal speech patterns

OUTPUT FORMAT (JSON only):
{
  "speaker_profiles": {
    "SPEAKER_01": {
      "likely_role": "Sales Person",
      "characteristics": "Professional tone, product knowledge",
      "confidence": 0.95
    },
    "SPEAKER_02": {
      "likely_role": "Customer",
      "characteristics": "Asks questions, responds to offers",
      "confidence": 0.95
    }
  },
  "segments": [
    {
      "start": 0.00,
      "end": 5.50,
      "speaker": "SPEAKER_01",
      "text": "exact text from transcript",
      "confidence": 0.9
    }
  ],
  "conversation_summary": "Brief description of the conversation"
}

RULES:
- Return ONLY valid JSON
- Each segment must have exactly one speaker
- Timestamps must not overlap
- Maintain original text exactly
- Assign confidence scores (0.0-1.0)`
