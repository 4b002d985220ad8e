package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rosewood-labs/payeeclean/internal/cli"
	"github.com/rosewood-labs/payeeclean/internal/engine"
	"github.com/rosewood-labs/payeeclean/internal/model"
	"github.com/rosewood-labs/payeeclean/internal/service"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the cleanup rule catalog",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesCreateCmd())
	cmd.AddCommand(rulesApproveCmd())
	cmd.AddCommand(rulesRejectCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesMatchCmd())

	return cmd
}

// withStore runs fn against an opened rule store, wiring the engine with a
// mock cleaner since catalog management never touches the LLM.
func withStore(ctx context.Context, fn func(*engine.CleanupEngine) error) error {
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng := engine.New(store, engine.NewMockCleaner(), nil)
	return fn(eng)
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, _ := cmd.Flags().GetBool("pending")

			return withStore(cmd.Context(), func(eng *engine.CleanupEngine) error {
				var rules []model.CleanupRule
				var err error
				if pending {
					rules, err = eng.GetPendingRules(cmd.Context())
				} else {
					rules, err = eng.GetApprovedRules(cmd.Context())
				}
				if err != nil {
					return err
				}

				if len(rules) == 0 {
					fmt.Println(cli.FormatInfo("no rules found"))
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tPATTERN\tREPLACEMENT\tSOURCE\tCONF\tUSES\tSUCCESS")
				for _, r := range rules {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%d\t%.2f\n",
						r.ID, r.PatternType, r.Pattern, r.Replacement,
						r.GeneratedBy, r.Confidence, r.UseCount, r.SuccessRate)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().Bool("pending", false, "Show pending candidate rules instead of approved rules")
	return cmd
}

func rulesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [pattern] [replacement]",
		Short: "Create a rule (approved immediately)",
		Example: `  payeeclean rules create "STARBUCKS" "Starbucks Coffee" --type contains
  payeeclean rules create 'TFL\s+TRAVEL' "TfL" --type regex`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typeStr, _ := cmd.Flags().GetString("type")
			patternType, err := model.ParsePatternType(typeStr)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), func(eng *engine.CleanupEngine) error {
				rule, err := eng.CreateRule(cmd.Context(), args[0], patternType, args[1])
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("created rule %s", rule.ID)))
				return nil
			})
		},
	}

	cmd.Flags().String("type", "contains", "Pattern type (exact, starts_with, contains, regex)")
	return cmd
}

func rulesApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve [rule-id]",
		Short: "Approve a pending candidate rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := modificationsFromFlags(cmd)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), func(eng *engine.CleanupEngine) error {
				rule, err := eng.ApproveRule(cmd.Context(), args[0], mods)
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("approved rule %s (%s %q → %q)",
					rule.ID, rule.PatternType, rule.Pattern, rule.Replacement)))
				return nil
			})
		},
	}

	cmd.Flags().String("pattern", "", "Override the pattern before approving")
	cmd.Flags().String("type", "", "Override the pattern type before approving")
	cmd.Flags().String("replacement", "", "Override the replacement before approving")
	return cmd
}

func modificationsFromFlags(cmd *cobra.Command) (*service.RuleModifications, error) {
	var mods service.RuleModifications
	var any bool

	if pattern, _ := cmd.Flags().GetString("pattern"); pattern != "" {
		mods.Pattern = &pattern
		any = true
	}
	if typeStr, _ := cmd.Flags().GetString("type"); typeStr != "" {
		patternType, err := model.ParsePatternType(typeStr)
		if err != nil {
			return nil, err
		}
		mods.PatternType = &patternType
		any = true
	}
	if replacement, _ := cmd.Flags().GetString("replacement"); replacement != "" {
		mods.Replacement = &replacement
		any = true
	}

	if !any {
		return nil, nil
	}
	return &mods, nil
}

func rulesRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject [rule-id]",
		Short: "Reject a pending candidate rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")

			return withStore(cmd.Context(), func(eng *engine.CleanupEngine) error {
				rule, err := eng.RejectRule(cmd.Context(), args[0], reason)
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("rejected rule %s", rule.ID)))
				return nil
			})
		},
	}

	cmd.Flags().String("reason", "", "Reason for rejecting the rule")
	return cmd
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [rule-id]",
		Short: "Show a rule and its recent applications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := store.GetRule(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Rule " + rule.ID))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Pattern:\t%s (%s)\n", rule.Pattern, rule.PatternType)
			fmt.Fprintf(w, "Replacement:\t%s\n", rule.Replacement)
			fmt.Fprintf(w, "Status:\t%s\n", rule.Status)
			fmt.Fprintf(w, "Source:\t%s\n", rule.GeneratedBy)
			fmt.Fprintf(w, "Confidence:\t%.2f\n", rule.Confidence)
			fmt.Fprintf(w, "Uses:\t%d\n", rule.UseCount)
			fmt.Fprintf(w, "Success rate:\t%.2f\n", rule.SuccessRate)
			if rule.Notes != "" {
				fmt.Fprintf(w, "Notes:\t%s\n", rule.Notes)
			}
			fmt.Fprintf(w, "Created:\t%s\n", rule.CreatedAt.Format("2006-01-02 15:04:05"))
			if err := w.Flush(); err != nil {
				return err
			}

			apps, err := store.GetApplicationsForRule(cmd.Context(), rule.ID, 10)
			if err != nil {
				return err
			}
			if len(apps) == 0 {
				return nil
			}

			fmt.Println()
			fmt.Println(cli.SubtleStyle.Render("Recent applications:"))
			aw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(aw, "APPLIED\tORIGINAL\tCLEANED\tFEEDBACK")
			for _, app := range apps {
				feedback := "-"
				if app.FeedbackStatus != nil {
					feedback = string(*app.FeedbackStatus)
				}
				fmt.Fprintf(aw, "%s\t%s\t%s\t%s\n",
					app.AppliedAt.Format("2006-01-02 15:04"),
					app.OriginalPayee, app.CleanedPayee, feedback)
			}
			return aw.Flush()
		},
	}
}

func rulesMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match [payee]",
		Short: "Show which approved rules match a payee, in ranked order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(eng *engine.CleanupEngine) error {
				matches, err := eng.FindMatchingRules(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if len(matches) == 0 {
					fmt.Println(cli.FormatInfo("no approved rules match"))
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "RANK\tID\tTYPE\tPATTERN\tREPLACEMENT\tCONF")
				for i, r := range matches {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\n",
						i+1, r.ID, r.PatternType, r.Pattern, r.Replacement, r.Confidence)
				}
				return w.Flush()
			})
		},
	}
}
