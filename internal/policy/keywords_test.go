package policy

import "testing"

func TestHandoffDetector(t *testing.T) {
	d := NewHandoffDetector()
	cases := []struct {
		body string
		want bool
	}{
		{"quero falar com um ATENDENTE agora", true},
		{"Atendente", true},
		{"tem como falar com gente de verdade?", true},
		{"quero uma pessoa real", true},
		{"me passa pra um humano", true},
		{"qual o preço da membrana?", false},
		{"bom dia", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := d.WantsHuman(tc.body); got != tc.want {
			t.Fatalf("WantsHuman(%q)=%v want %v", tc.body, got, tc.want)
		}
	}
}

func TestHandoffDetectorNilSafety(t *testing.T) {
	var d *HandoffDetector
	if d.WantsHuman("atendente") {
		t.Fatal("nil detector should not match")
	}
}
