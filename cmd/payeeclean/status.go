package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rosewood-labs/payeeclean/internal/cli"
	"github.com/rosewood-labs/payeeclean/internal/matcher"
	"github.com/rosewood-labs/payeeclean/internal/model"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts and check LLM connectivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			checkLLM, _ := cmd.Flags().GetBool("llm")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.FormatTitle("payeeclean status"))
			var approved []model.CleanupRule
			for _, status := range []model.RuleStatus{model.StatusApproved, model.StatusPending, model.StatusRejected} {
				rules, err := store.GetRulesByStatus(cmd.Context(), status)
				if err != nil {
					return err
				}
				if status == model.StatusApproved {
					approved = rules
				}
				fmt.Printf("  %s rules: %d\n", status, len(rules))
			}

			// Flag approved regex rules that will never match.
			for id, compileErr := range matcher.New(approved).InvalidPatterns() {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("rule %s has an invalid regex pattern: %v", id, compileErr)))
			}

			if !checkLLM {
				return nil
			}

			cleaner, err := createCleaner()
			if err != nil {
				return err
			}
			defer cleaner.Close()

			if err := cleaner.HealthCheck(cmd.Context()); err != nil {
				fmt.Println(cli.FormatError(fmt.Sprintf("LLM fallback unreachable: %v", err)))
				return nil
			}
			fmt.Println(cli.FormatSuccess("LLM fallback reachable"))
			return nil
		},
	}

	cmd.Flags().Bool("llm", false, "Also check LLM provider connectivity")
	return cmd
}
