package jsonrepair

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/skillsenselab/callscribe/logger"
)

// Validator validates repaired model output against the analysis schema.
// Schema violations are logged, never raised: partial LLM output must still
// produce a usable record.
type Validator struct {
	validate *validator.Validate
	log      *logger.Logger
}

// NewValidator creates a Validator.
func NewValidator(log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Nop()
	}
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.WithComponent("jsonrepair"),
	}
}

// Validate structurally checks a record: required fields present, confidence
// values within [0,1]. Violations are logged and reported as false.
func (v *Validator) Validate(rec *AnalysisRecord) bool {
	if rec == nil {
		return false
	}
	if err := v.validate.Struct(rec); err != nil {
		v.log.Warn("analysis record failed validation", logger.Fields(
			logger.FieldError, err.Error(),
		))
		return false
	}
	return true
}

// ValidateAndRepair parses raw model text (strictly first, then via Repair),
// validates the result, and overlays defaults on partial failure. Returns
// nil only when the text contains no recoverable JSON at all.
func (v *Validator) ValidateAndRepair(raw string) *AnalysisRecord {
	var value map[string]any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = Repair(raw)
	}
	if value == nil {
		v.log.Warn("analysis response contained no recoverable JSON")
		return nil
	}

	var rec AnalysisRecord
	if err := Decode(value, &rec); err != nil {
		v.log.Warn("analysis response has wrong field types, decoding leniently", logger.Fields(
			logger.FieldError, err.Error(),
		))
		rec = decodeLenient(value)
	}

	if !v.Validate(&rec) {
		v.log.Debug("applying defaults to partial analysis record")
	}
	rec.ApplyDefaults()
	return &rec
}

// decodeLenient salvages whatever top-level fields decode cleanly. A
// malformed list must not discard a valid summary alongside it.
func decodeLenient(value map[string]any) AnalysisRecord {
	var rec AnalysisRecord
	if s, ok := value["summary"].(string); ok {
		rec.Summary = s
	}
	if s, ok := value["sentiment"].(string); ok {
		rec.Sentiment = s
	}
	decodeField(value, "action_items", &rec.ActionItems)
	decodeField(value, "decisions", &rec.Decisions)
	decodeField(value, "key_points", &rec.KeyPoints)
	decodeField(value, "topics", &rec.Topics)
	return rec
}

func decodeField[T any](value map[string]any, key string, dst *T) {
	raw, ok := value[key]
	if !ok {
		return
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return
	}
	*dst = out
}
