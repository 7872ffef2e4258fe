package policy

import "strings"

// HandoffDetector identifies explicit talk-to-a-human requests in
// inbound messages.
type HandoffDetector struct {
	keywords []string
}

// NewHandoffDetector returns a detector with the fixed keyword set.
func NewHandoffDetector() *HandoffDetector {
	return &HandoffDetector{
		keywords: []string{
			"humano",
			"pessoa",
			"atendente",
			"falar com gente",
			"falar com pessoa",
			"pessoa real",
		},
	}
}

// WantsHuman returns true when body contains any handoff keyword,
// case-insensitive, anywhere in the string.
func (d *HandoffDetector) WantsHuman(body string) bool {
	if d == nil || len(d.keywords) == 0 {
		return false
	}
	lowered := strings.ToLower(body)
	for _, kw := range d.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
