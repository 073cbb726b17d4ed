package jsonrepair

import (
	"encoding/json"
	"testing"
)

func TestValidateAndRepair_CompleteRecord(t *testing.T) {
	v := NewValidator(nil)
	raw := `{
		"summary": "Agent offered a discount, customer accepted.",
		"action_items": [{"item": "Send contract", "confidence": 0.9, "assignee": "agent"}],
		"decisions": [{"decision": "Proceed with annual plan", "confidence": 0.8}],
		"key_points": [{"point": "Price was the main concern", "confidence": 0.85}],
		"sentiment": "positive",
		"topics": ["pricing", "contract"]
	}`

	rec := v.ValidateAndRepair(raw)
	if rec == nil {
		t.Fatal("ValidateAndRepair returned nil for valid input")
	}
	if rec.Summary == "" || rec.Sentiment != "positive" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.ActionItems) != 1 || rec.ActionItems[0].Assignee != "agent" {
		t.Errorf("action items = %+v", rec.ActionItems)
	}
}

func TestValidateAndRepair_PartialRecordGetsDefaults(t *testing.T) {
	v := NewValidator(nil)
	rec := v.ValidateAndRepair(`{"summary": "only a summary"}`)
	if rec == nil {
		t.Fatal("partial record should not be rejected")
	}
	if rec.ActionItems == nil || rec.Decisions == nil || rec.KeyPoints == nil || rec.Topics == nil {
		t.Error("list fields must be non-nil after defaults")
	}
	if rec.Sentiment != "neutral" {
		t.Errorf("sentiment = %q, want neutral", rec.Sentiment)
	}
}

func TestValidateAndRepair_Unrecoverable(t *testing.T) {
	v := NewValidator(nil)
	if rec := v.ValidateAndRepair("the model refused to answer"); rec != nil {
		t.Errorf("unrecoverable input should yield nil, got %+v", rec)
	}
}

func TestValidateAndRepair_MalformedListKeepsSummary(t *testing.T) {
	v := NewValidator(nil)
	rec := v.ValidateAndRepair(`{"summary": "keep me", "action_items": ["not", "objects"]}`)
	if rec == nil {
		t.Fatal("record should be salvaged")
	}
	if rec.Summary != "keep me" {
		t.Errorf("summary = %q, want %q", rec.Summary, "keep me")
	}
	if rec.ActionItems == nil {
		t.Error("malformed list should fall back to empty, not nil")
	}
}

func TestValidateAndRepair_Idempotent(t *testing.T) {
	v := NewValidator(nil)
	first := v.ValidateAndRepair(`{"summary": "stable", "topics": ["a"]}`)
	if first == nil {
		t.Fatal("first pass returned nil")
	}

	serialized, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second := v.ValidateAndRepair(string(serialized))
	if second == nil {
		t.Fatal("second pass returned nil")
	}

	if first.Summary != second.Summary || first.Sentiment != second.Sentiment ||
		len(first.Topics) != len(second.Topics) ||
		len(first.ActionItems) != len(second.ActionItems) {
		t.Errorf("repair is not idempotent: %+v vs %+v", first, second)
	}
}

func TestValidate_ConfidenceRange(t *testing.T) {
	v := NewValidator(nil)
	rec := &AnalysisRecord{
		Summary:     "ok",
		ActionItems: []ActionItem{{Item: "x", Confidence: 1.5}},
	}
	if v.Validate(rec) {
		t.Error("confidence above 1 should fail validation")
	}

	rec.ActionItems[0].Confidence = 0.5
	if !v.Validate(rec) {
		t.Error("valid record should pass validation")
	}
}

func TestValidate_Nil(t *testing.T) {
	if NewValidator(nil).Validate(nil) {
		t.Error("nil record should not validate")
	}
}
