package results

import (
	"strconv"

	"signaware-client/internal/gateway"
)

// Section is one named block of the populated result view.
type Section struct {
	Key   string   `json:"key"`
	Title string   `json:"title"`
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// Sections projects a payload onto display sections. Optional lists only
// appear when present.
func Sections(a gateway.Analysis) []Section {
	out := []Section{
		{Key: "summary", Title: "Summary", Text: a.Summary},
		{Key: "red_flags", Title: "Red Flags", Items: a.RedFlags},
		{Key: "key_concerns", Title: "Key Concerns", Items: a.KeyConcerns},
		{Key: "risk_assessment", Title: "Risk Assessment", Text: a.RiskAssessment},
	}
	if len(a.Loopholes) > 0 {
		out = append(out, Section{Key: "loopholes", Title: "Loopholes", Items: a.Loopholes})
	}
	if len(a.Recommendations) > 0 {
		out = append(out, Section{Key: "recommendations", Title: "Recommendations", Items: a.Recommendations})
	}
	return out
}

// FormatScore renders a risk score exactly as stored (4 -> "4", 7.2 -> "7.2").
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
