package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rosewood-labs/payeeclean/internal/cli"
	"github.com/rosewood-labs/payeeclean/internal/engine"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback [rule-id]",
		Short: "Record whether a rule's cleanup was correct",
		Long: `Fold a human verdict into a rule's rolling success rate. Use --incorrect
to report that a cleanup was wrong; the default records a confirmation.`,
		Example: `  payeeclean feedback 4f7c...
  payeeclean feedback 4f7c... --incorrect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incorrect, _ := cmd.Flags().GetBool("incorrect")

			return withStore(cmd.Context(), func(eng *engine.CleanupEngine) error {
				rule, err := eng.ProvideFeedback(cmd.Context(), args[0], !incorrect)
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf(
					"feedback recorded for rule %s (success rate %.2f over %d uses)",
					rule.ID, rule.SuccessRate, rule.UseCount)))
				return nil
			})
		},
	}

	cmd.Flags().Bool("incorrect", false, "Report the cleanup as incorrect")
	return cmd
}
