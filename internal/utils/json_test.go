package utils

import "testing"

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		expect string
	}{
		{name: "plain", raw: `{"score": 7}`, expect: `{"score": 7}`},
		{name: "json fence", raw: "```json\n{\"score\": 7}\n```", expect: `{"score": 7}`},
		{name: "upper case fence", raw: "```JSON\n{\"score\": 7}\n```", expect: `{"score": 7}`},
		{name: "bare fence", raw: "```\n{\"score\": 7}\n```", expect: `{"score": 7}`},
		{name: "surrounding prose", raw: "Segue a avaliação: {\"score\": 7} Espero ter ajudado.", expect: `{"score": 7}`},
		{name: "no object", raw: "nota 7", expect: "nota 7"},
		{name: "empty", raw: "   ", expect: ""},
	}

	for _, tt := range tests {
		if got := ExtractJSON(tt.raw); got != tt.expect {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.expect, got)
		}
	}
}
