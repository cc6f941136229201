package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/snapcrop/pkg/types"
)

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// centerBox is what every fallback answer points at
var centerBox = types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

// Fallback builds the low-confidence answer used when a model reply cannot
// be understood.
func Fallback(label, description string, tags ...string) *types.Detection {
	return &types.Detection{
		Subject: types.Subject{
			Label:      label,
			Confidence: 0.1,
			Box:        centerBox,
		},
		Description: description,
		Tags:        tags,
	}
}

// ParseDetection parses a model reply. Replies that are not JSON, or not
// repairable JSON, produce a Fallback rather than an error.
func ParseDetection(raw string) *types.Detection {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return Fallback("unclear image", "Model returned non-JSON response", "unclear", "non-json", "fallback")
	}

	var result types.Detection
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Fallback("parse error", "Failed to parse model response", "parse-error", "fallback")
	}

	if result.Subject.Label == "" && result.Subject.Confidence == 0 &&
		result.Subject.Box.W == 0 && result.Subject.Box.H == 0 {
		result.Subject.Box = centerBox
	}
	return &result
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from
// a JSON reply and keeps only the outermost object.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
