package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"flipnote.app/cli/internal/core/domain"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
)

// render writes v as JSON or YAML when requested, otherwise calls text
func render(w io.Writer, format string, v interface{}, text func(io.Writer)) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

func printQuizTable(w io.Writer, quizzes []domain.Quiz) {
	if len(quizzes) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No quizzes found."))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-8s │ %-32s │ %-12s │ %-7s │ %s",
		"ID", "TITLE", "OWNER", "PUBLIC", "CREATED")))
	for _, q := range quizzes {
		public := "no"
		if q.IsPublic {
			public = "yes"
		}
		created := ""
		if !q.CreatedAt.IsZero() {
			created = q.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-8s │ %-32s │ %-12s │ %-7s │ %s\n",
			truncateString(q.ID, 8),
			truncateString(q.Title, 32),
			truncateString(q.OwnerUsername, 12),
			public,
			created,
		)
	}
}

func printPage(w io.Writer, page domain.QuizPage, p domain.Pagination) {
	printQuizTable(w, page.Results)
	footer := fmt.Sprintf("Page %d of %d (%d quizzes)", p.Page, page.TotalPages(p.PageSize), page.Count)
	if page.HasNext() {
		footer += fmt.Sprintf(" | next: --page %d", p.Page+1)
	}
	fmt.Fprintln(w, mutedStyle.Render(footer))
}

func printQuiz(w io.Writer, q domain.Quiz) {
	fmt.Fprintln(w, titleStyle.Render(q.Title))
	if q.Description != "" {
		fmt.Fprintln(w, q.Description)
	}

	meta := []string{"id " + q.ID}
	if q.OwnerUsername != "" {
		meta = append(meta, "by "+q.OwnerUsername)
	}
	if q.IsPublic {
		meta = append(meta, "public")
	} else {
		meta = append(meta, "private")
	}
	fmt.Fprintln(w, mutedStyle.Render(strings.Join(meta, " · ")))

	if len(q.Questions) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("\nNo questions yet."))
		return
	}
	fmt.Fprintln(w)
	for i, question := range q.Questions {
		printQuestion(w, i+1, question)
	}
}

func printQuestion(w io.Writer, n int, q domain.Question) {
	fmt.Fprintf(w, "%d. %s %s\n", n, badgeStyle.Render("["+string(q.Kind)+"]"), q.Text)
	fmt.Fprintln(w, mutedStyle.Render("   id "+q.ID))

	switch q.Kind {
	case domain.QuestionMCQ:
		for _, o := range q.Options {
			if o.Correct {
				fmt.Fprintln(w, correctStyle.Render("   ✓ "+o.Text))
			} else {
				fmt.Fprintln(w, "   • "+o.Text)
			}
		}
	case domain.QuestionWritten:
		if q.Answer != "" {
			fmt.Fprintln(w, correctStyle.Render("   → "+q.Answer))
		}
	}
}

func printProfile(w io.Writer, u domain.UserProfile) {
	fmt.Fprintf(w, "👤 %s\n", titleStyle.Render(u.DisplayName()))
	fmt.Fprintf(w, "   Username: %s\n", u.Username)
	fmt.Fprintf(w, "   Email:    %s\n", u.Email)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
