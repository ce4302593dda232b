package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/format"
	"github.com/devbuddy-ai/devbuddy/internal/repository"
	"github.com/devbuddy-ai/devbuddy/internal/review"
	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/internal/tui"
	"github.com/devbuddy-ai/devbuddy/models"
)

var (
	reviewDiff     bool
	reviewPR       string
	reviewPublish  bool
	reviewTUI      bool
	reviewFormat   string
	reviewSeverity string
	reviewOutput   string
)

var reviewCmd = &cobra.Command{
	Use:   "review [path]",
	Short: "Review a file, directory, working-tree diff or pull request",
	Long: `Runs the language analyzers and the configured model over source files
and reports bugs, warnings, style issues and notes.

Examples:
  devbuddy review app.py
  devbuddy review ./src --severity high --format markdown -o review.md
  devbuddy review --diff
  devbuddy review --pr octo/widgets#42 --publish
  devbuddy review ./src --tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewDiff, "diff", false, "Review uncommitted changes in the git working tree")
	reviewCmd.Flags().StringVar(&reviewPR, "pr", "", "Review a GitHub pull request (owner/repo#N or URL)")
	reviewCmd.Flags().BoolVar(&reviewPublish, "publish", false, "Post the --pr review back to GitHub")
	reviewCmd.Flags().BoolVar(&reviewTUI, "tui", false, "Browse results in the terminal UI")
	reviewCmd.Flags().StringVarP(&reviewFormat, "format", "f", "", "Output format: text|json|markdown (default from config)")
	reviewCmd.Flags().StringVar(&reviewSeverity, "severity", "", "Minimum severity: low|medium|high (default from config)")
	reviewCmd.Flags().StringVarP(&reviewOutput, "output", "o", "", "Write results to a file instead of stdout")
	reviewCmd.MarkFlagsMutuallyExclusive("diff", "pr")
	reviewCmd.MarkFlagsMutuallyExclusive("tui", "output")
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := modelClient(cfg)
	if err != nil {
		return err
	}
	db, ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reviewer := review.New(client, ledger, cfg.Review, cfg.IgnorePatterns, runner.Local{}).
		WithSeverity(reviewSeverity)

	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	var results []*models.ReviewResult
	switch {
	case reviewPR != "":
		ref, err := repository.ParsePRRef(reviewPR)
		if err != nil {
			return err
		}
		gh, err := repository.NewGitHub(cfg.GitHub)
		if err != nil {
			return err
		}
		results, err = reviewPullRequest(ctx, gh, reviewer, ref, reviewPublish)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not review %s: %v\n", ref, err)
			return nil
		}
	case reviewDiff:
		wt, err := repository.OpenWorktree(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil
		}
		patch, err := wt.Patch()
		if err != nil {
			return fmt.Errorf("computing diff: %w", err)
		}
		if patch == "" {
			fmt.Println("No uncommitted changes to review.")
			return nil
		}
		if results, err = reviewer.ReviewDiff(ctx, wt.Root(), patch); err != nil {
			fmt.Fprintf(os.Stderr, "Could not review diff: %v\n", err)
			return nil
		}
	default:
		if results, err = reviewer.ReviewPath(ctx, path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil
		}
	}

	if len(results) == 0 {
		fmt.Println("No reviewable files found.")
		return nil
	}

	if reviewTUI {
		usage, err := ledger.Summary(ctx)
		if err != nil {
			slog.Debug("Usage summary unavailable", "error", err)
		}
		return tui.NewApp(results, usage).Run()
	}
	return emit(cfg, reviewFormat, reviewOutput, func(f format.Formatter) string {
		return f.Review(results)
	})
}

// reviewPullRequest fetches the PR diff, reviews it and optionally posts
// the review. Static analysis is skipped since no checkout is available.
func reviewPullRequest(ctx context.Context, prs repository.PullRequests, r *review.Reviewer, ref repository.PRRef, publish bool) ([]*models.ReviewResult, error) {
	patch, err := prs.Diff(ctx, ref)
	if err != nil {
		return nil, err
	}
	results, err := r.ReviewDiff(ctx, "", patch)
	if err != nil {
		return nil, err
	}
	if publish && len(results) > 0 {
		url, err := prs.PublishReview(ctx, ref, results)
		if err != nil {
			return nil, fmt.Errorf("publishing review: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Published review: %s\n", url)
	}
	return results, nil
}

// emit renders with the selected formatter and writes to path or stdout.
func emit(cfg *config.Config, formatName, path string, render func(format.Formatter) string) error {
	if formatName == "" {
		formatName = cfg.Output.Format
	}
	color := path == "" && format.ColorEnabled(cfg.Output.Color, os.Stdout)
	out := render(format.Get(formatName, color))
	if path == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Results written to %s\n", path)
	return nil
}
