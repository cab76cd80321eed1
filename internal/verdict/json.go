package verdict

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt tolerates confidence scores arriving as either a JSON number or a
// quoted string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(v)
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

// extractDecision pulls a Decision out of potentially messy model output:
// text around the JSON object is stripped, string confidences are coerced,
// and a missing confidence defaults to 50. When nothing parseable remains a
// conservative default decision is returned.
func extractDecision(raw, team string, logf LogFunc) Decision {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	if start >= 0 && end > start {
		var d Decision
		if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err == nil && d.Decision != "" {
			if start > 0 || end < len(raw)-1 {
				logf(team, fmt.Sprintf("%s team response contained text outside JSON, extracted valid JSON", team))
			}
			if d.Confidence == 0 {
				d.Confidence = 50
				d.ConfidenceExplanation = "Default confidence score assigned as it was missing from the response."
				logf(team, fmt.Sprintf("%s team response was missing confidence score, assigned default value of 50", team))
			}
			return d
		}
	}

	logf(team, fmt.Sprintf("%s team response was not valid JSON, creating default response", team))
	fallback := DecisionDepends
	if team == TeamFinal {
		fallback = DecisionInconclusive
	}
	return Decision{
		Decision:              fallback,
		Reason:                "Could not parse a valid response from the model output.",
		Confidence:            50,
		ConfidenceExplanation: "Default confidence due to parsing error in model response.",
		KeyEvidence:           []string{"No valid evidence could be extracted from the model response."},
	}
}
