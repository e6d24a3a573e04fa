package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"flipnote.app/cli/internal/core/domain"
)

// questionFlags collects a question from the command line
type questionFlags struct {
	kind    string
	text    string
	choices []string
	correct string
	answer  string
}

func (f *questionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "type", string(domain.QuestionMCQ), "Question type: mcq or written")
	cmd.Flags().StringVar(&f.text, "text", "", "Question text")
	cmd.Flags().StringArrayVar(&f.choices, "choice", nil, "An answer option (mcq, repeatable)")
	cmd.Flags().StringVar(&f.correct, "correct", "", "Text of the correct option (mcq)")
	cmd.Flags().StringVar(&f.answer, "answer", "", "Expected answer (written)")
	_ = cmd.MarkFlagRequired("text")
}

// question builds the domain question; the correct option is matched by text
func (f *questionFlags) question(id string) (domain.Question, error) {
	kind, err := domain.ParseQuestionKind(f.kind)
	if err != nil {
		return domain.Question{}, err
	}

	q := domain.Question{ID: id, Kind: kind, Text: f.text}
	switch kind {
	case domain.QuestionMCQ:
		if len(f.choices) < 2 {
			return domain.Question{}, fmt.Errorf("an mcq question needs at least two --choice values")
		}
		found := false
		for i, c := range f.choices {
			correct := c == f.correct
			found = found || correct
			q.Options = append(q.Options, domain.Option{ID: fmt.Sprint(i), Text: c, Correct: correct})
		}
		if !found {
			return domain.Question{}, fmt.Errorf("--correct must match one of the --choice values")
		}
		q.Answer = f.correct
	case domain.QuestionWritten:
		q.Answer = f.answer
	}
	return q, nil
}

// newQuestionCommand creates the question subcommand
func newQuestionCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "question",
		Aliases: []string{"questions"},
		Short:   "Add, change and remove quiz questions",
	}

	cmd.AddCommand(newQuestionAddCommand(container))
	cmd.AddCommand(newQuestionUpdateCommand(container))
	cmd.AddCommand(newQuestionDeleteCommand(container))

	return cmd
}

func newQuestionAddCommand(container *CLIContainer) *cobra.Command {
	flags := &questionFlags{}

	cmd := &cobra.Command{
		Use:   "add <quiz-id>",
		Short: "Add a question to a quiz",
		Example: `  fq question add 12 --text "2+2?" --choice 3 --choice 4 --correct 4
  fq question add 12 --type written --text "Capital of France?" --answer Paris`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.question("")
			if err != nil {
				return err
			}
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			stored, err := app.QuizService.AddQuestion(cmd.Context(), args[0], q)
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, stored, func(w io.Writer) {
				fmt.Fprintln(w, "✅ Question added")
				printQuestion(w, 1, stored)
			})
		},
	}
	flags.register(cmd)

	return cmd
}

func newQuestionUpdateCommand(container *CLIContainer) *cobra.Command {
	flags := &questionFlags{}

	cmd := &cobra.Command{
		Use:   "update <quiz-id> <question-id>",
		Short: "Replace a question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.question(args[1])
			if err != nil {
				return err
			}
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			stored, err := app.QuizService.UpdateQuestion(cmd.Context(), args[0], q)
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, stored, func(w io.Writer) {
				fmt.Fprintln(w, "✅ Question updated")
				printQuestion(w, 1, stored)
			})
		},
	}
	flags.register(cmd)

	return cmd
}

func newQuestionDeleteCommand(container *CLIContainer) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "delete <quiz-id> <question-id>",
		Short: "Delete a question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseQuestionKind(kind)
			if err != nil {
				return err
			}
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.QuizService.DeleteQuestion(cmd.Context(), args[0], args[1], k); err != nil {
				return err
			}
			fmt.Fprintf(container.Out, "✅ Deleted question %s\n", args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Question type: mcq or written")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}
