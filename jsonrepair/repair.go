package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedBlockRe   = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	trailingObjRe   = regexp.MustCompile(`,\s*}`)
	trailingArrRe   = regexp.MustCompile(`,\s*]`)
	missingCommaRe  = regexp.MustCompile(`}\s*{`)
	singleQuoteKey  = regexp.MustCompile(`'([^']*)':`)
	singleQuoteVal  = regexp.MustCompile(`:\s*'([^']*)'`)
)

// Repair extracts and repairs a JSON object embedded in raw model text.
// It tries, in order: fenced-block extraction, trimming to the outermost
// braces, strict parsing, trailing-comma removal, missing-comma insertion
// between adjacent objects, and single-to-double quote normalization.
// Returns nil if no attempt yields valid JSON.
func Repair(raw string) map[string]any {
	text := raw
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "{") {
		if start := strings.Index(text, "{"); start != -1 {
			text = text[start:]
		}
	}
	if !strings.HasSuffix(text, "}") {
		if end := strings.LastIndex(text, "}"); end != -1 {
			text = text[:end+1]
		}
	}

	if v, ok := tryParse(text); ok {
		return v
	}

	text = trailingObjRe.ReplaceAllString(text, "}")
	text = trailingArrRe.ReplaceAllString(text, "]")
	text = missingCommaRe.ReplaceAllString(text, "},{")
	if v, ok := tryParse(text); ok {
		return v
	}

	text = singleQuoteKey.ReplaceAllString(text, `"$1":`)
	text = singleQuoteVal.ReplaceAllString(text, `: "$1"`)
	if v, ok := tryParse(text); ok {
		return v
	}

	return nil
}

func tryParse(text string) (map[string]any, bool) {
	var v map[string]any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

// Decode re-marshals a repaired generic value into a typed destination.
func Decode(value map[string]any, dst any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
