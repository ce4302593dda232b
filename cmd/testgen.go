package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devbuddy-ai/devbuddy/internal/format"
	"github.com/devbuddy-ai/devbuddy/internal/testgen"
	"github.com/devbuddy-ai/devbuddy/models"
)

var (
	testgenFunction  string
	testgenFramework string
	testgenVerify    bool
	testgenCoverage  bool
	testgenOutput    string
	testgenFormat    string
)

var testgenCmd = &cobra.Command{
	Use:   "testgen <path>",
	Short: "Generate tests for a Python module",
	Long: `Extracts the functions of a Python module and asks the model for a
test suite. With --verify the suite is run under pytest and repaired with
the model's help until it passes or the retry budget is spent.

Examples:
  devbuddy testgen calc.py
  devbuddy testgen calc.py --function add -o test_calc.py
  devbuddy testgen calc.py --verify --coverage`,
	Args: cobra.ExactArgs(1),
	RunE: runTestgen,
}

func init() {
	testgenCmd.Flags().StringVar(&testgenFunction, "function", "", "Generate tests for this function only")
	testgenCmd.Flags().StringVar(&testgenFramework, "framework", "", "Test framework: pytest|unittest (default from config)")
	testgenCmd.Flags().BoolVar(&testgenVerify, "verify", false, "Run the generated tests and repair them until they pass")
	testgenCmd.Flags().BoolVar(&testgenCoverage, "coverage", false, "Collect coverage while verifying")
	testgenCmd.Flags().StringVarP(&testgenOutput, "output", "o", "", "Write the generated test module to this file")
	testgenCmd.Flags().StringVarP(&testgenFormat, "format", "f", "", "Output format: text|json|markdown (default from config)")
}

func runTestgen(cmd *cobra.Command, args []string) error {
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

	opts := testgen.Options{
		Function:  testgenFunction,
		Framework: testgenFramework,
		Coverage:  testgenCoverage || cfg.TestGen.Coverage,
	}
	gen := testgen.New(client, ledger, cfg.TestGen)

	var res *models.GenerationResult
	if testgenVerify {
		res = gen.GenerateAndVerify(ctx, args[0], opts)
	} else {
		res = gen.Generate(ctx, args[0], opts)
	}

	if res.Success && testgenOutput != "" {
		if err := os.WriteFile(testgenOutput, []byte(res.TestCode), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", testgenOutput, err)
		}
		fmt.Fprintf(os.Stderr, "Tests written to %s\n", testgenOutput)
	}
	return emit(cfg, testgenFormat, "", func(f format.Formatter) string {
		return f.TestGen(res) + "\n"
	})
}
