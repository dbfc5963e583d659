package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Correction is the parsed model answer for one item.
type Correction struct {
	Corrected string `json:"corrected"`
	Summary   string `json:"summary"`
}

// ParseCorrection extracts the JSON object from a raw model response. Models
// occasionally wrap the answer in markdown fences or stray prose despite the
// prompt, so everything outside the outermost braces is ignored.
func ParseCorrection(raw string) (Correction, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Correction{}, fmt.Errorf("%w: no JSON object found", ErrInvalidResponse)
	}

	var c Correction
	if err := json.Unmarshal([]byte(s[start:end+1]), &c); err != nil {
		return Correction{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if c.Corrected == "" {
		return Correction{}, fmt.Errorf("%w: empty corrected text", ErrInvalidResponse)
	}
	return c, nil
}
