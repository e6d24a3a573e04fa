package domain

import (
	"fmt"
	"time"
)

// QuestionKind distinguishes multiple-choice from written-answer questions.
type QuestionKind string

const (
	QuestionMCQ     QuestionKind = "mcq"
	QuestionWritten QuestionKind = "written"
)

// ParseQuestionKind validates a question kind string
func ParseQuestionKind(s string) (QuestionKind, error) {
	switch QuestionKind(s) {
	case QuestionMCQ, QuestionWritten:
		return QuestionKind(s), nil
	default:
		return "", fmt.Errorf("unknown question kind %q (expected mcq or written)", s)
	}
}

// Option is one choice of a multiple-choice question.
type Option struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"isCorrect" yaml:"isCorrect"`
}

// Question is a normalized quiz question. Options is only set for mcq questions.
type Question struct {
	ID      string       `json:"id" yaml:"id"`
	Kind    QuestionKind `json:"type" yaml:"type"`
	Text    string       `json:"text" yaml:"text"`
	Options []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	Answer  string       `json:"answer" yaml:"answer"`
}

// CorrectOptions returns the options flagged as correct
func (q Question) CorrectOptions() []Option {
	var out []Option
	for _, o := range q.Options {
		if o.Correct {
			out = append(out, o)
		}
	}
	return out
}

// Quiz is a normalized quiz.
type Quiz struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"createdAt"`
	IsPublic      bool       `json:"isPublic" yaml:"isPublic"`
	OwnerUsername string     `json:"ownerUsername" yaml:"ownerUsername"`
	LastAccessed  *time.Time `json:"lastAccessed,omitempty" yaml:"lastAccessed,omitempty"`
	Questions     []Question `json:"questions" yaml:"questions"`
}

// QuizPage is one page of a paginated quiz listing.
type QuizPage struct {
	Count    int    `json:"count" yaml:"count"`
	Next     string `json:"next,omitempty" yaml:"next,omitempty"`
	Previous string `json:"previous,omitempty" yaml:"previous,omitempty"`
	Results  []Quiz `json:"results" yaml:"results"`
}

// HasNext reports whether a following page exists
func (p QuizPage) HasNext() bool { return p.Next != "" }

// HasPrevious reports whether a preceding page exists
func (p QuizPage) HasPrevious() bool { return p.Previous != "" }

// TotalPages returns the number of pages of the given size.
func (p QuizPage) TotalPages(pageSize int) int {
	if pageSize <= 0 || p.Count == 0 {
		return 0
	}
	return (p.Count + pageSize - 1) / pageSize
}

// QuizDraft holds the fields needed to create a quiz.
type QuizDraft struct {
	Title       string
	Description string
	IsPublic    bool
}

// Validate checks the draft has a title
func (d QuizDraft) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("quiz title is required")
	}
	return nil
}

// QuizPatch is a partial quiz update; nil fields are left unchanged.
type QuizPatch struct {
	Title       *string
	Description *string
	IsPublic    *bool
}

// Empty reports whether the patch changes nothing
func (p QuizPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsPublic == nil
}

// Pagination describes a requested page.
type Pagination struct {
	Page     int
	PageSize int
}

// DefaultPagination is used when callers pass zero values
var DefaultPagination = Pagination{Page: 1, PageSize: 10}

// Normalize fills zero fields from DefaultPagination.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = DefaultPagination.Page
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPagination.PageSize
	}
	return p
}
