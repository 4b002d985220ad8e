package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/rosewood-labs/payeeclean/internal/cli"
	"github.com/rosewood-labs/payeeclean/internal/engine"
	"github.com/rosewood-labs/payeeclean/internal/model"
)

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup [payee]",
		Short: "Clean up a raw payee string",
		Long: `Normalize a raw bank payee string into a clean merchant name.

Approved rules are tried first. When none match, the configured LLM is
consulted and its suggested rule is stored as a pending candidate for
review with 'payeeclean rules list --pending'.`,
		Example: `  payeeclean cleanup "AMAZON MKTPLC AMZN.CO.UK/PMTS 15OCT A1B2CD3E4"
  payeeclean cleanup --file payees.txt
  payeeclean cleanup --transaction txn-123 "NETFLIX.COM 866-579-7172"`,
		RunE: runCleanup,
	}

	cmd.Flags().String("file", "", "Clean every payee in a file, one per line")
	cmd.Flags().String("transaction", "", "Transaction ID to correlate with the audit record")

	return cmd
}

func runCleanup(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	txnID, _ := cmd.Flags().GetString("transaction")

	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if file != "" {
		return runBatchCleanup(cmd, eng, file)
	}

	if len(args) != 1 {
		return fmt.Errorf("expected exactly one payee argument (or --file)")
	}

	var txnContext map[string]string
	if txnID != "" {
		txnContext = map[string]string{engine.TransactionIDKey: txnID}
	}

	result, err := eng.CleanupPayee(cmd.Context(), args[0], txnContext)
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *model.CleanupResult) {
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s → %s", result.Original, result.Cleaned)))

	switch {
	case result.AppliedRule != nil:
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  applied rule %s (%s %q, confidence %.2f)",
			result.AppliedRule.ID, result.AppliedRule.PatternType, result.AppliedRule.Pattern, result.Confidence)))
	case result.GeneratedRule != nil:
		fmt.Println(cli.PendingStyle.Render(fmt.Sprintf("  %s new candidate rule %s pending review (confidence %.2f)",
			cli.RobotIcon, result.GeneratedRule.ID, result.Confidence)))
	}
}

// runBatchCleanup cleans every non-empty line of the file, continuing past
// per-payee failures so one bad line does not abort the run.
func runBatchCleanup(cmd *cobra.Command, eng *engine.CleanupEngine, path string) error {
	f, err := os.Open(path) //nolint:gosec // user-supplied input file
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var payees []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payees = append(payees, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	if len(payees) == 0 {
		fmt.Println(cli.FormatWarning("input file contains no payees"))
		return nil
	}

	bar := progressbar.NewOptions(len(payees),
		progressbar.OptionSetDescription("Cleaning payees"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var cleaned, generated, failed int
	for _, payee := range payees {
		result, err := eng.CleanupPayee(cmd.Context(), payee, nil)
		_ = bar.Add(1)
		if err != nil {
			failed++
			fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", payee, err)))
			continue
		}
		cleaned++
		if result.GeneratedRule != nil {
			generated++
		}
		fmt.Printf("%s\t%s\n", result.Original, result.Cleaned)
	}

	fmt.Println(cli.FormatInfo(fmt.Sprintf("cleaned %d payees (%d new candidate rules, %d failures)",
		cleaned, generated, failed)))
	return nil
}
