package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"flipnote.app/cli/internal/core/domain"
	"flipnote.app/cli/internal/interfaces/di"
)

// newExtractCommand creates the extract subcommand
func newExtractCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Generate draft questions from text or a PDF",
		Long: `Send study material to the backend and get draft questions back.
Drafts are printed for review; pass --save to add them all to the quiz.`,
	}

	cmd.AddCommand(newExtractTextCommand(container))
	cmd.AddCommand(newExtractPDFCommand(container))

	return cmd
}

func newExtractTextCommand(container *CLIContainer) *cobra.Command {
	var (
		text, file string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "text <quiz-id>",
		Short: "Extract questions from text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				text = string(data)
			}
			if text == "" {
				return fmt.Errorf("pass --text or --file")
			}

			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			drafts, err := app.QuizService.ExtractFromText(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			return finishExtraction(cmd.Context(), container, app, args[0], drafts, save)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to extract questions from")
	cmd.Flags().StringVar(&file, "file", "", "Read the text from a file")
	cmd.Flags().BoolVar(&save, "save", false, "Add every draft to the quiz")

	return cmd
}

func newExtractPDFCommand(container *CLIContainer) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "pdf <quiz-id> <file.pdf>",
		Short: "Extract questions from a PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer f.Close()

			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			drafts, err := app.QuizService.ExtractFromPDF(cmd.Context(), args[0], filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			return finishExtraction(cmd.Context(), container, app, args[0], drafts, save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Add every draft to the quiz")

	return cmd
}

// finishExtraction prints the drafts and optionally stores them. Drafts are
// saved one by one; the first failure stops and reports how far it got.
func finishExtraction(ctx context.Context, container *CLIContainer, app *di.Container, quizID string, drafts []domain.Question, save bool) error {
	if save {
		saved := make([]domain.Question, 0, len(drafts))
		for _, d := range drafts {
			d.ID = ""
			stored, err := app.QuizService.AddQuestion(ctx, quizID, d)
			if err != nil {
				return fmt.Errorf("saved %d of %d questions: %w", len(saved), len(drafts), err)
			}
			saved = append(saved, stored)
		}
		drafts = saved
	}

	return render(container.Out, container.Output, drafts, func(w io.Writer) {
		if len(drafts) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("No questions found."))
			return
		}
		for i, q := range drafts {
			printQuestion(w, i+1, q)
		}
		if save {
			fmt.Fprintf(w, "✅ Added %d questions to quiz %s\n", len(drafts), quizID)
		} else {
			fmt.Fprintln(w, mutedStyle.Render("Drafts only. Re-run with --save to add them."))
		}
	})
}
