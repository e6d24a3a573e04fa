package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"flipnote.app/cli/internal/core/domain"
)

// wireID accepts ids sent either as JSON numbers or strings.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = wireID(n.String())
	return nil
}

type wireQuiz struct {
	ID            wireID `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CreatedAt     string `json:"created_at"`
	IsPublic      bool   `json:"is_public"`
	OwnerUsername string `json:"owner_username"`
	Owner         string `json:"owner"`
	LastAccessed  string `json:"last_accessed"`
}

type wirePage struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []wireQuiz `json:"results"`
}

type wireQuestion struct {
	ID            wireID   `json:"id"`
	QuestionText  string   `json:"question_text"`
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
	Answer        string   `json:"answer"`
}

type wireQuestionSet struct {
	MCQ     []wireQuestion `json:"mcq_questions"`
	Written []wireQuestion `json:"written_questions"`
}

type wireExtraction struct {
	MCQ []struct {
		Text    string   `json:"text"`
		Options []string `json:"options"`
		Answer  string   `json:"answer"`
	} `json:"mcq"`
	Written []struct {
		Text   string `json:"text"`
		Answer string `json:"answer"`
	} `json:"written"`
}

type wireQuizCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type wireQuizPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

type wireQuestionWrite struct {
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type"`
	Choices       []string `json:"choices,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Answer        string   `json:"answer,omitempty"`
}

func normalizeQuiz(w wireQuiz) domain.Quiz {
	q := domain.Quiz{
		ID:            string(w.ID),
		Title:         w.Title,
		Description:   w.Description,
		CreatedAt:     parseTime(w.CreatedAt),
		IsPublic:      w.IsPublic,
		OwnerUsername: w.OwnerUsername,
		Questions:     []domain.Question{},
	}
	if q.OwnerUsername == "" {
		q.OwnerUsername = w.Owner
	}
	if w.LastAccessed != "" {
		if t := parseTime(w.LastAccessed); !t.IsZero() {
			q.LastAccessed = &t
		}
	}
	return q
}

func normalizeQuizzes(ws []wireQuiz) []domain.Quiz {
	out := make([]domain.Quiz, 0, len(ws))
	for _, w := range ws {
		out = append(out, normalizeQuiz(w))
	}
	return out
}

func normalizePage(w wirePage) domain.QuizPage {
	p := domain.QuizPage{Count: w.Count, Results: normalizeQuizzes(w.Results)}
	if w.Next != nil {
		p.Next = *w.Next
	}
	if w.Previous != nil {
		p.Previous = *w.Previous
	}
	return p
}

// normalizeQuestion classifies a wire question: it is mcq when it carries a
// choices list, written otherwise. Exactly the options whose text equals
// correct_answer are marked correct; when none match, none are.
func normalizeQuestion(w wireQuestion) domain.Question {
	text := w.QuestionText
	if text == "" {
		text = w.Text
	}

	if w.Choices == nil {
		return domain.Question{
			ID:     string(w.ID),
			Kind:   domain.QuestionWritten,
			Text:   text,
			Answer: w.Answer,
		}
	}

	return domain.Question{
		ID:      string(w.ID),
		Kind:    domain.QuestionMCQ,
		Text:    text,
		Options: buildOptions(w.Choices, w.CorrectAnswer),
		Answer:  w.CorrectAnswer,
	}
}

func buildOptions(choices []string, answer string) []domain.Option {
	options := make([]domain.Option, 0, len(choices))
	for i, c := range choices {
		options = append(options, domain.Option{
			ID:      strconv.Itoa(i),
			Text:    c,
			Correct: c == answer,
		})
	}
	return options
}

func normalizeQuestionSet(w wireQuestionSet) []domain.Question {
	out := make([]domain.Question, 0, len(w.MCQ)+len(w.Written))
	for _, q := range w.MCQ {
		out = append(out, normalizeQuestion(q))
	}
	for _, q := range w.Written {
		out = append(out, normalizeQuestion(q))
	}
	return out
}

// Extracted questions have no backend id yet; they get temp- ids so the
// review step can address them.
func normalizeExtraction(w wireExtraction) []domain.Question {
	out := make([]domain.Question, 0, len(w.MCQ)+len(w.Written))
	for _, q := range w.MCQ {
		out = append(out, domain.Question{
			ID:      "temp-mcq-" + uuid.NewString(),
			Kind:    domain.QuestionMCQ,
			Text:    q.Text,
			Options: buildOptions(q.Options, q.Answer),
			Answer:  q.Answer,
		})
	}
	for _, q := range w.Written {
		out = append(out, domain.Question{
			ID:     "temp-written-" + uuid.NewString(),
			Kind:   domain.QuestionWritten,
			Text:   q.Text,
			Answer: q.Answer,
		})
	}
	return out
}

// denormalizeQuestion builds the write body for a question.
func denormalizeQuestion(q domain.Question) (wireQuestionWrite, error) {
	if q.Text == "" {
		return wireQuestionWrite{}, fmt.Errorf("question text is required")
	}

	switch q.Kind {
	case domain.QuestionWritten:
		return wireQuestionWrite{
			QuestionText: q.Text,
			QuestionType: string(domain.QuestionWritten),
			Answer:       q.Answer,
		}, nil
	case domain.QuestionMCQ:
		if len(q.Options) == 0 {
			return wireQuestionWrite{}, fmt.Errorf("mcq question needs at least one option")
		}
		choices := make([]string, 0, len(q.Options))
		correct := q.Answer
		for _, o := range q.Options {
			choices = append(choices, o.Text)
			if correct == "" && o.Correct {
				correct = o.Text
			}
		}
		return wireQuestionWrite{
			QuestionText:  q.Text,
			QuestionType:  string(domain.QuestionMCQ),
			Choices:       choices,
			CorrectAnswer: correct,
		}, nil
	default:
		return wireQuestionWrite{}, fmt.Errorf("unknown question kind %q", q.Kind)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
