package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	httpdomain "flipnote.app/cli/internal/core/domain/http"
	"flipnote.app/cli/internal/interfaces/di"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds all the dependencies for CLI commands. The DI
// container is built lazily once flags are parsed, unless one is injected.
type CLIContainer struct {
	Options   di.Options
	Container *di.Container
	Out       io.Writer
	In        io.Reader
	Output    string

	owned bool
}

// App returns the wired container, building it on first use
func (c *CLIContainer) App(ctx context.Context) (*di.Container, error) {
	if c.Container != nil {
		return c.Container, nil
	}
	container, err := di.NewContainer(ctx, c.Options)
	if err != nil {
		return nil, err
	}
	c.Container, c.owned = container, true
	return container, nil
}

func (c *CLIContainer) shutdown(ctx context.Context) {
	if c.owned && c.Container != nil {
		if err := c.Container.Shutdown(ctx); err != nil {
			c.Container.Logger.Warn("shutdown failed", "error", err)
		}
	}
}

// NewRootCommand builds the fq command tree
func NewRootCommand(container *CLIContainer) *cobra.Command {
	if container.Out == nil {
		container.Out = os.Stdout
	}
	if container.In == nil {
		container.In = os.Stdin
	}

	rootCmd := &cobra.Command{
		Use:   "fq",
		Short: "Flipnote quizzer from the terminal",
		Long: `fq talks to the flipnote quizzer backend: log in, build quizzes out of
multiple-choice and written questions, extract questions from text or PDF
and review a quiz as flip cards.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch container.Output {
			case outputText, outputJSON, outputYAML:
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", container.Output)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			container.shutdown(cmd.Context())
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))
	rootCmd.SetOut(container.Out)

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&container.Options.Debug, "debug", false, "Enable debug logging")
	flags.StringVar(&container.Options.ConfigPath, "config", "", "Config file path (default is ~/.config/flipnote/config.yaml)")
	flags.StringVar(&container.Options.APIURL, "api-url", "", "Backend URL, overrides the environment's default")
	flags.StringVar(&container.Options.Env, "env", "", "Backend environment (development or production)")
	flags.BoolVar(&container.Options.Ephemeral, "ephemeral", false, "Keep the session in memory only")
	flags.StringVarP(&container.Output, "output", "o", outputText, "Output format: text, json or yaml")

	rootCmd.AddCommand(newAuthCommand(container))
	rootCmd.AddCommand(newQuizCommand(container))
	rootCmd.AddCommand(newQuestionCommand(container))
	rootCmd.AddCommand(newExtractCommand(container))
	rootCmd.AddCommand(newReviewCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the command tree and returns the process exit code
func Execute(ctx context.Context, container *CLIContainer) int {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		return 1
	}
	return 0
}

// describeError turns client errors into something actionable
func describeError(err error) string {
	switch {
	case errors.Is(err, httpdomain.ErrSessionExpired):
		return "your session has expired, run 'fq auth login' again"
	case errors.Is(err, httpdomain.ErrNotLoggedIn):
		return "you are not logged in, run 'fq auth login' first"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}

	var netErr *httpdomain.NetworkError
	if errors.As(err, &netErr) {
		return fmt.Sprintf("could not reach the backend: %v", netErr.Err)
	}
	return err.Error()
}
