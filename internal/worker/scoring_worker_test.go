package worker

import (
	"testing"

	"github.com/examportal/backend/internal/model"
)

func TestGrade(t *testing.T) {
	questions := []model.Question{
		{Question: "q0", QuestionType: model.QuestionTypeOption, Answer: "B"},
		{Question: "q1", QuestionType: model.QuestionTypeOption, Answer: "A"},
		{Question: "q2", QuestionType: model.QuestionTypeMultiSelect, Answer: `["A","C"]`},
		{Question: "q3", QuestionType: model.QuestionTypeText, Answer: "anything"},
		{Question: "q4", QuestionType: model.QuestionTypeFormula, Answer: "x^2"},
	}

	cases := []struct {
		name    string
		answers []model.AnswerEntry
		want    float64
	}{
		{
			"all correct auto-gradable",
			[]model.AnswerEntry{
				{QuestionIndex: 0, Answer: "B"},
				{QuestionIndex: 1, Answer: "A"},
				{QuestionIndex: 2, Answer: `["A","C"]`},
			},
			3,
		},
		{
			"multi-select order insensitive",
			[]model.AnswerEntry{{QuestionIndex: 2, Answer: `["C","A"]`}},
			1,
		},
		{
			"multi-select duplicates collapse",
			[]model.AnswerEntry{{QuestionIndex: 2, Answer: `["C","A","A"]`}},
			1,
		},
		{
			"partial multi-select scores zero",
			[]model.AnswerEntry{{QuestionIndex: 2, Answer: `["A"]`}},
			0,
		},
		{
			"superset multi-select scores zero",
			[]model.AnswerEntry{{QuestionIndex: 2, Answer: `["A","B","C"]`}},
			0,
		},
		{
			"wrong single choice",
			[]model.AnswerEntry{{QuestionIndex: 0, Answer: "C"}},
			0,
		},
		{
			"text and formula never auto-grade",
			[]model.AnswerEntry{
				{QuestionIndex: 3, Answer: "anything"},
				{QuestionIndex: 4, Answer: "x^2"},
			},
			0,
		},
		{
			"unanswered questions skipped",
			nil,
			0,
		},
		{
			"answer index outside question range ignored",
			[]model.AnswerEntry{{QuestionIndex: 42, Answer: "B"}},
			0,
		},
	}

	for _, tc := range cases {
		if got := Grade(questions, tc.answers); got != tc.want {
			t.Errorf("%s: score = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGradeSkipsQuestionsWithoutKey(t *testing.T) {
	questions := []model.Question{
		{Question: "ungraded", QuestionType: model.QuestionTypeOption, Answer: ""},
	}
	answers := []model.AnswerEntry{{QuestionIndex: 0, Answer: "A"}}
	if got := Grade(questions, answers); got != 0 {
		t.Errorf("score = %v, want 0 for keyless question", got)
	}
}

func TestSameSet(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{`["A","C"]`, `["C","A"]`, true},
		{`["A"]`, "A", true}, // single letter equals one-element set
		{`["A","A"]`, `["A"]`, true},
		{`["A","C"]`, `["A"]`, false},
		{"[]", "", true},
		{"A", "B", false},
	}
	for _, tc := range cases {
		got := sameSet(model.ParseAnswer(tc.a), model.ParseAnswer(tc.b))
		if got != tc.want {
			t.Errorf("sameSet(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
