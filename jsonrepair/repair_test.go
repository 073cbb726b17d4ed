package jsonrepair

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRepair_StrictJSONRoundTrip(t *testing.T) {
	raw := `{"summary": "short call", "topics": ["billing", "renewal"]}`

	var want map[string]any
	if err := json.Unmarshal([]byte(raw), &want); err != nil {
		t.Fatalf("test input is not valid JSON: %v", err)
	}

	got := Repair(raw)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Repair of valid JSON should equal strict parse: got %v, want %v", got, want)
	}
}

func TestRepair_FencedBlock(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"summary\": \"ok\"}\n```\nHope that helps!"
	got := Repair(raw)
	if got == nil || got["summary"] != "ok" {
		t.Errorf("Repair(%q) = %v", raw, got)
	}
}

func TestRepair_ProseAroundBraces(t *testing.T) {
	raw := `Sure! {"summary": "trimmed"} Let me know if you need more.`
	got := Repair(raw)
	if got == nil || got["summary"] != "trimmed" {
		t.Errorf("Repair should trim prose around braces, got %v", got)
	}
}

func TestRepair_TrailingComma(t *testing.T) {
	got := Repair(`{"summary": "x",}`)
	if got == nil {
		t.Fatal("Repair returned nil for trailing comma input")
	}
	if got["summary"] != "x" || len(got) != 1 {
		t.Errorf(`Repair('{"summary": "x",}') = %v, want {"summary": "x"}`, got)
	}
}

func TestRepair_TrailingCommaInArray(t *testing.T) {
	got := Repair(`{"topics": ["a", "b",]}`)
	if got == nil {
		t.Fatal("Repair returned nil for trailing array comma")
	}
	topics, ok := got["topics"].([]any)
	if !ok || len(topics) != 2 {
		t.Errorf("topics = %v", got["topics"])
	}
}

func TestRepair_MissingCommaBetweenObjects(t *testing.T) {
	got := Repair(`{"decisions": [{"decision": "a"} {"decision": "b"}]}`)
	if got == nil {
		t.Fatal("Repair returned nil for adjacent objects")
	}
	decisions, ok := got["decisions"].([]any)
	if !ok || len(decisions) != 2 {
		t.Errorf("decisions = %v", got["decisions"])
	}
}

func TestRepair_SingleQuotes(t *testing.T) {
	got := Repair(`{'summary': 'single quoted'}`)
	if got == nil || got["summary"] != "single quoted" {
		t.Errorf("Repair should normalize single quotes, got %v", got)
	}
}

func TestRepair_NotJSON(t *testing.T) {
	if got := Repair("not json at all"); got != nil {
		t.Errorf("Repair of non-JSON should be nil, got %v", got)
	}
}

func TestRepair_Empty(t *testing.T) {
	if got := Repair(""); got != nil {
		t.Errorf("Repair of empty string should be nil, got %v", got)
	}
}

func TestDecode(t *testing.T) {
	value := map[string]any{"summary": "s", "sentiment": "positive"}
	var rec AnalysisRecord
	if err := Decode(value, &rec); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if rec.Summary != "s" || rec.Sentiment != "positive" {
		t.Errorf("decoded record = %+v", rec)
	}
}
