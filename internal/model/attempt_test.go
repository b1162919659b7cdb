package model

import "testing"

func TestParseAnswer(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Answer
	}{
		{"single letter", "B", Answer{Kind: AnswerSingle, Value: "B"}},
		{"free text", "x = 42", Answer{Kind: AnswerSingle, Value: "x = 42"}},
		{"empty", "", Answer{Kind: AnswerSingle, Value: ""}},
		{"multi", `["A","C"]`, Answer{Kind: AnswerMulti, Values: []string{"A", "C"}}},
		{"empty multi", "[]", Answer{Kind: AnswerMulti, Values: []string{}}},
		{"bracket but not json", "[broken", Answer{Kind: AnswerSingle, Value: "[broken"}},
		{"lone bracket", "[", Answer{Kind: AnswerSingle, Value: "["}},
		{"text starting with bracket", "[see attachment]", Answer{Kind: AnswerSingle, Value: "[see attachment]"}},
	}
	for _, tc := range cases {
		got := ParseAnswer(tc.raw)
		if got.Kind != tc.want.Kind || got.Value != tc.want.Value {
			t.Errorf("%s: got %+v, want %+v", tc.name, got, tc.want)
			continue
		}
		if len(got.Values) != len(tc.want.Values) {
			t.Errorf("%s: values %v, want %v", tc.name, got.Values, tc.want.Values)
			continue
		}
		for i := range got.Values {
			if got.Values[i] != tc.want.Values[i] {
				t.Errorf("%s: values %v, want %v", tc.name, got.Values, tc.want.Values)
				break
			}
		}
	}
}

func TestAnswerWireSymmetry(t *testing.T) {
	for _, raw := range []string{"A", "", "free text", `["A","C"]`, "[]"} {
		if got := ParseAnswer(raw).Wire(); got != raw {
			t.Errorf("Wire(ParseAnswer(%q)) = %q", raw, got)
		}
	}
}

func TestAnswerContains(t *testing.T) {
	multi := ParseAnswer(`["A","C"]`)
	if !multi.Contains("A") || !multi.Contains("C") {
		t.Error("multi answer missing selected letters")
	}
	if multi.Contains("B") {
		t.Error("multi answer contains unselected letter")
	}

	single := ParseAnswer("B")
	if !single.Contains("B") {
		t.Error("single answer does not match itself")
	}
	if single.Contains("A") {
		t.Error("single answer matched wrong letter")
	}
}

func TestAnswerMap(t *testing.T) {
	entries := []AnswerEntry{
		{QuestionIndex: 0, Answer: "A"},
		{QuestionIndex: 3, Answer: `["B","D"]`},
		{QuestionIndex: 3, Answer: `["B"]`}, // later entry wins
	}
	m := AnswerMap(entries)
	if len(m) != 2 {
		t.Fatalf("len = %d, want 2", len(m))
	}
	if m[0] != "A" || m[3] != `["B"]` {
		t.Errorf("map = %v", m)
	}
}
