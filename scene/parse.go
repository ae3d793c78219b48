package scene

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// BilingualText is a parallel English/Chinese text pair.
type BilingualText struct {
	English string `json:"english"`
	Chinese string `json:"chinese"`
}

// Scenario is one usage-scene prompt pair. Scenarios are immutable once
// parsed; selecting one copies its text into the editable prompt buffer.
type Scenario struct {
	English string `json:"english"`
	Chinese string `json:"chinese"`
}

// Analysis is the validated result of one analysis call. The three fields
// always replace the session's previous analysis together.
type Analysis struct {
	Description BilingualText
	Camera      string
	Scenarios   []Scenario
}

const maxScenarios = 3

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractJSON pulls the candidate JSON string out of a free-form model
// response. A fenced code block wins; a response that is already valid JSON
// is used as-is; slicing from the first '{' to the last '}' is the last
// resort for responses with stray prose around the object.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	if json.Valid([]byte(trimmed)) {
		return trimmed
	}

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first != -1 && last > first {
		return trimmed[first : last+1]
	}

	return trimmed
}

// ParseAnalysis extracts and validates the JSON payload of an analysis
// response. It is tolerant of formatting noise (fencing, surrounding prose)
// but strict about field presence and types. Failures are KindResponseFormat
// for unparsable JSON and KindResponseSchema for a parsable object of the
// wrong shape; the raw candidate is logged, never shown to the user.
func ParseAnalysis(text string) (*Analysis, error) {
	candidate := extractJSON(text)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		log.Debug().Str("candidate", candidate).Msg("unparsable analysis response")
		return nil, wrapError(KindResponseFormat, err, "failed to parse analysis response")
	}

	// Absent sub-fields decode to zero values, so both language strings are
	// checked explicitly rather than decoded straight into the struct.
	var description BilingualText
	var descFields map[string]json.RawMessage
	raw, ok := fields["product_description"]
	if !ok || json.Unmarshal(raw, &descFields) != nil ||
		json.Unmarshal(descFields["english"], &description.English) != nil ||
		json.Unmarshal(descFields["chinese"], &description.Chinese) != nil {
		log.Debug().Str("candidate", candidate).Msg("analysis response missing product_description")
		return nil, newError(KindResponseSchema, "analysis response has no valid product_description object")
	}
	var camera string
	raw, ok = fields["recommended_camera"]
	if !ok || json.Unmarshal(raw, &camera) != nil || camera == "" {
		log.Debug().Str("candidate", candidate).Msg("analysis response missing recommended_camera")
		return nil, newError(KindResponseSchema, "analysis response has no recommended_camera string")
	}

	var scenarios []Scenario
	raw, ok = fields["scenarios"]
	if !ok || json.Unmarshal(raw, &scenarios) != nil {
		log.Debug().Str("candidate", candidate).Msg("analysis response missing scenarios")
		return nil, newError(KindResponseSchema, "analysis response has no scenarios array")
	}

	// The contract asks for exactly three, but the model does not always
	// comply exactly. Keep the first three.
	if len(scenarios) > maxScenarios {
		scenarios = scenarios[:maxScenarios]
	}

	return &Analysis{
		Description: description,
		Camera:      camera,
		Scenarios:   scenarios,
	}, nil
}
