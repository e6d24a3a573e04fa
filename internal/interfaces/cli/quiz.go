package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"flipnote.app/cli/internal/core/domain"
)

// newQuizCommand creates the quiz subcommand
func newQuizCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quiz",
		Aliases: []string{"quizzes"},
		Short:   "List, inspect and edit quizzes",
	}

	cmd.AddCommand(newQuizListCommand(container, false))
	cmd.AddCommand(newQuizListCommand(container, true))
	cmd.AddCommand(newQuizSearchCommand(container))
	cmd.AddCommand(newQuizHistoryCommand(container))
	cmd.AddCommand(newQuizShowCommand(container))
	cmd.AddCommand(newQuizCreateCommand(container))
	cmd.AddCommand(newQuizUpdateCommand(container))
	cmd.AddCommand(newQuizDeleteCommand(container))

	return cmd
}

// newQuizListCommand lists the user's quizzes, or public ones
func newQuizListCommand(container *CLIContainer, public bool) *cobra.Command {
	var p domain.Pagination

	use, short := "list", "List your quizzes"
	if public {
		use, short = "public", "List public quizzes"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}

			p = p.Normalize()
			var page domain.QuizPage
			if public {
				page, err = app.QuizService.ListPublic(cmd.Context(), p)
			} else {
				page, err = app.QuizService.ListMine(cmd.Context(), p)
			}
			if err != nil {
				return err
			}

			return render(container.Out, container.Output, page, func(w io.Writer) {
				printPage(w, page, p)
			})
		},
	}

	cmd.Flags().IntVar(&p.Page, "page", domain.DefaultPagination.Page, "Page number")
	cmd.Flags().IntVar(&p.PageSize, "page-size", domain.DefaultPagination.PageSize, "Quizzes per page")

	return cmd
}

func newQuizSearchCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search quizzes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			quizzes, err := app.QuizService.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, quizzes, func(w io.Writer) {
				printQuizTable(w, quizzes)
			})
		},
	}
}

func newQuizHistoryCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recently opened quizzes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			quizzes, err := app.QuizService.History(cmd.Context())
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, quizzes, func(w io.Writer) {
				printQuizTable(w, quizzes)
			})
		},
	}
}

func newQuizShowCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <quiz-id>",
		Short: "Show a quiz with its questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			quiz, err := app.QuizService.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, quiz, func(w io.Writer) {
				printQuiz(w, quiz)
			})
		},
	}
}

func newQuizCreateCommand(container *CLIContainer) *cobra.Command {
	var draft domain.QuizDraft

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a quiz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			quiz, err := app.QuizService.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, quiz, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Created quiz %s (%s)\n", quiz.Title, quiz.ID)
			})
		},
	}

	cmd.Flags().StringVar(&draft.Title, "title", "", "Quiz title")
	cmd.Flags().StringVar(&draft.Description, "description", "", "Quiz description")
	cmd.Flags().BoolVar(&draft.IsPublic, "public", false, "Make the quiz visible to everyone")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newQuizUpdateCommand(container *CLIContainer) *cobra.Command {
	var (
		title, description string
		public             bool
	)

	cmd := &cobra.Command{
		Use:   "update <quiz-id>",
		Short: "Change a quiz's title, description or visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.QuizPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("public") {
				patch.IsPublic = &public
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to update: pass --title, --description or --public")
			}

			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			quiz, err := app.QuizService.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, quiz, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Updated quiz %s\n", quiz.ID)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().BoolVar(&public, "public", false, "Visibility (--public=false to make private)")

	return cmd
}

func newQuizDeleteCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <quiz-id>",
		Short: "Delete a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.QuizService.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(container.Out, "✅ Deleted quiz %s\n", args[0])
			return nil
		},
	}
}
