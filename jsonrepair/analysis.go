package jsonrepair

// ActionItem is a follow-up task extracted from the conversation.
type ActionItem struct {
	Item       string  `json:"item" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Assignee   string  `json:"assignee,omitempty"`
}

// Decision is a decision reached during the conversation.
type Decision struct {
	Decision   string  `json:"decision" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Context    string  `json:"context,omitempty"`
}

// KeyPoint is a notable insight from the conversation.
type KeyPoint struct {
	Point      string  `json:"point" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// AnalysisRecord is the structured analysis of one transcript. After
// ValidateAndRepair it is always fully shaped: list fields are non-nil and
// sentiment is populated, even when the model omitted them.
type AnalysisRecord struct {
	Summary     string       `json:"summary" validate:"required"`
	ActionItems []ActionItem `json:"action_items" validate:"dive"`
	Decisions   []Decision   `json:"decisions" validate:"dive"`
	KeyPoints   []KeyPoint   `json:"key_points" validate:"dive"`
	Sentiment   string       `json:"sentiment"`
	Topics      []string     `json:"topics"`
}

// ApplyDefaults fills missing fields with type-appropriate empty values.
func (r *AnalysisRecord) ApplyDefaults() {
	if r.ActionItems == nil {
		r.ActionItems = []ActionItem{}
	}
	if r.Decisions == nil {
		r.Decisions = []Decision{}
	}
	if r.KeyPoints == nil {
		r.KeyPoints = []KeyPoint{}
	}
	if r.Topics == nil {
		r.Topics = []string{}
	}
	if r.Sentiment == "" {
		r.Sentiment = "neutral"
	}
}
