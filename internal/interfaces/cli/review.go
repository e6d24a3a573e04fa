package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"flipnote.app/cli/internal/core/domain"
)

// newReviewCommand creates the review command
func newReviewCommand(container *CLIContainer) *cobra.Command {
	var noAltScreen bool

	cmd := &cobra.Command{
		Use:   "review <quiz-id>",
		Short: "Review a quiz as flip cards",
		Long: `Walk through a quiz one card at a time.

Controls:
  space / enter   flip the card
  → / l / n       next card
  ← / h / p       previous card
  q               quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			quiz, err := app.QuizService.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(quiz.Questions) == 0 {
				return fmt.Errorf("quiz %s has no questions to review", quiz.ID)
			}

			opts := []tea.ProgramOption{
				tea.WithContext(cmd.Context()),
				tea.WithInput(container.In),
				tea.WithOutput(container.Out),
			}
			if !noAltScreen {
				opts = append(opts, tea.WithAltScreen())
			}
			if _, err := tea.NewProgram(newReviewModel(quiz), opts...).Run(); err != nil {
				return fmt.Errorf("review failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noAltScreen, "inline", false, "Render inline instead of full screen")

	return cmd
}

// reviewModel holds the state of the flip-card review
type reviewModel struct {
	quiz    domain.Quiz
	current int
	flipped bool
	seen    map[int]bool
	width   int
}

func newReviewModel(quiz domain.Quiz) reviewModel {
	return reviewModel{quiz: quiz, seen: map[int]bool{}}
}

// Init implements the Bubble Tea init method
func (m reviewModel) Init() tea.Cmd {
	return nil
}

// Update implements the Bubble Tea update method
func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit

		case " ", "enter":
			m.flipped = !m.flipped
			if m.flipped {
				m.seen = copySeen(m.seen)
				m.seen[m.current] = true
			}
			return m, nil

		case "right", "l", "n":
			if m.current < len(m.quiz.Questions)-1 {
				m.current++
				m.flipped = false
			}
			return m, nil

		case "left", "h", "p":
			if m.current > 0 {
				m.current--
				m.flipped = false
			}
			return m, nil
		}
	}

	return m, nil
}

// View implements the Bubble Tea view method
func (m reviewModel) View() string {
	header := titleStyle.Render(m.quiz.Title)
	progress := mutedStyle.Render(fmt.Sprintf("Card %d of %d · %d revealed",
		m.current+1, len(m.quiz.Questions), len(m.seen)))

	footer := mutedStyle.Render("[space] flip | [←→] navigate | [q] quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, progress, "", m.renderCard(), "", footer) + "\n"
}

func (m reviewModel) renderCard() string {
	q := m.quiz.Questions[m.current]

	width := 60
	if m.width > 0 && m.width-4 < width {
		width = m.width - 4
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(1, 2).
		Width(width)

	var body strings.Builder
	if !m.flipped {
		body.WriteString(badgeStyle.Render("["+string(q.Kind)+"]") + " " + q.Text)
		for i, o := range q.Options {
			fmt.Fprintf(&body, "\n  %c) %s", 'a'+rune(i%26), o.Text)
		}
		return card.Render(body.String())
	}

	body.WriteString(mutedStyle.Render("Answer") + "\n")
	switch q.Kind {
	case domain.QuestionMCQ:
		correct := q.CorrectOptions()
		if len(correct) == 0 {
			body.WriteString(mutedStyle.Render("No option is marked correct."))
		}
		for i, o := range correct {
			if i > 0 {
				body.WriteString("\n")
			}
			body.WriteString(correctStyle.Render("✓ " + o.Text))
		}
	default:
		answer := q.Answer
		if answer == "" {
			answer = "(no answer recorded)"
		}
		body.WriteString(correctStyle.Render(answer))
	}
	return card.BorderForeground(lipgloss.Color("46")).Render(body.String())
}

func copySeen(seen map[int]bool) map[int]bool {
	out := make(map[int]bool, len(seen)+1)
	for k, v := range seen {
		out[k] = v
	}
	return out
}
