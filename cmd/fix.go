package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/devbuddy-ai/devbuddy/internal/fixer"
	"github.com/devbuddy-ai/devbuddy/internal/format"
	"github.com/devbuddy-ai/devbuddy/models"
)

var (
	fixSource string
	fixApply  bool
	fixVerify bool
	fixYes    bool
	fixFormat string
)

var fixCmd = &cobra.Command{
	Use:   "fix <test_path>",
	Short: "Suggest fixes for failing tests",
	Long: `Runs a test file, sends the failures to the model and prints the
suggested edits. --apply previews each edit and asks before writing it;
--verify applies edits and re-runs the tests until they pass or the retry
budget is spent.

Examples:
  devbuddy fix test_calc.py --source calc.py
  devbuddy fix test_calc.py --source calc.py --apply
  devbuddy fix test_calc.py --verify --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixSource, "source", "", "Source file under test (sent to the model as context)")
	fixCmd.Flags().BoolVar(&fixApply, "apply", false, "Preview and apply suggested fixes")
	fixCmd.Flags().BoolVar(&fixVerify, "verify", false, "Apply fixes and re-run the tests until they pass")
	fixCmd.Flags().BoolVarP(&fixYes, "yes", "y", false, "Apply without asking")
	fixCmd.Flags().StringVarP(&fixFormat, "format", "f", "", "Output format: text|json|markdown (default from config)")
}

func runFix(cmd *cobra.Command, args []string) error {
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

	f := fixer.New(client, ledger, cfg.Fix)
	testPath := args[0]

	if fixVerify {
		autoApply := fixYes || cfg.Fix.AutoApply
		if !autoApply {
			if autoApply, err = confirm("Apply suggested fixes to your files while verifying?", ""); err != nil {
				return err
			}
		}
		res := f.SuggestAndVerify(ctx, testPath, fixSource, autoApply)
		return emit(cfg, fixFormat, "", func(fm format.Formatter) string { return fm.Fix(res) + "\n" })
	}

	res := f.SuggestFix(ctx, testPath, fixSource)
	if err := emit(cfg, fixFormat, "", func(fm format.Formatter) string { return fm.Fix(res) + "\n" }); err != nil {
		return err
	}
	if !fixApply || len(res.Suggestions) == 0 {
		return nil
	}
	return applySuggestions(res.Suggestions, format.ColorEnabled(cfg.Output.Color, os.Stdout))
}

func applySuggestions(suggestions []models.FixSuggestion, color bool) error {
	text := &format.Text{Color: color}
	applied := 0
	for i, s := range suggestions {
		lines, err := fixer.Preview(s)
		if err != nil {
			fmt.Printf("\nSkipping fix %d: %v\n", i+1, err)
			continue
		}
		fmt.Printf("\nFix %d: %s (%s:%d)\n", i+1, s.Description, s.FilePath, s.Line)
		fmt.Print(text.Diff(fixer.FormatPreview(lines)))

		ok := fixYes
		if !ok {
			if ok, err = confirm("Apply this fix?", s.FilePath); err != nil {
				return err
			}
		}
		if !ok {
			continue
		}
		if fixer.ApplyFix(s) {
			applied++
		} else {
			fmt.Printf("Could not apply fix %d\n", i+1)
		}
	}
	fmt.Printf("\nApplied %d of %d fix(es).\n", applied, len(suggestions))
	return nil
}

func confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}
