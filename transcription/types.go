package transcription

// TranscriptionRequest holds parameters for a transcription call. Exactly one
// of AudioPath or AudioData should be set; AudioData takes precedence and is
// sent as an in-memory WAV clip.
type TranscriptionRequest struct {
	// AudioPath is the path to the audio file to transcribe.
	AudioPath string `json:"audio_path,omitempty"`
	// AudioData is raw audio bytes to transcribe without touching disk.
	AudioData []byte `json:"-"`
	// Language is the expected language of the audio (e.g. "en").
	Language string `json:"language,omitempty"`
	// Model is the transcription model to use.
	Model string `json:"model,omitempty"`
	// WordTimestamps requests per-word timing in the response.
	WordTimestamps bool `json:"word_timestamps,omitempty"`
}

// TranscriptionResponse holds the result of a transcription call.
type TranscriptionResponse struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Segments contains time-aligned transcript segments.
	Segments []Segment `json:"segments,omitempty"`
	// Words contains per-word timing when requested and supported.
	Words []Word `json:"words,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	// ID is the backend's ordinal segment index.
	ID int `json:"id"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
	// Confidence is the normalized segment confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Word is a single word with timing from the backend.
type Word struct {
	// Text is the word text, usually with a leading space.
	Text string `json:"word"`
	// Start is the word start time in seconds.
	Start float64 `json:"start"`
	// End is the word end time in seconds.
	End float64 `json:"end"`
	// Probability is the backend's word probability.
	Probability float64 `json:"probability"`
}
