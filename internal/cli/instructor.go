package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/studio-league/internal/engine"
)

func (a *app) gradeCmd() *cobra.Command {
	var (
		daysLate int
		feedback string
	)
	cmd := &cobra.Command{
		Use:   "grade <agency> <week> <deliverable> <score>",
		Short: "Grade a deliverable (instructor)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[3], err)
			}
			out, err := a.client().Grade(cmd.Context(), args[0], args[1], args[2], score, daysLate, feedback)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "Graded %s: VE %+d (x%.2f), now %d\n", out.DeliverableID, out.DeltaVE, out.Multiplier, out.VECurrent)
			})
		},
	}
	cmd.Flags().IntVar(&daysLate, "late", 0, "days late")
	cmd.Flags().StringVar(&feedback, "feedback", "", "feedback for the agency")
	return cmd
}

func (a *app) settleCmd() *cobra.Command {
	var scope engine.Scope
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Run the weekly settlement now (instructor)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.client().Settle(cmd.Context(), scope)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), report, func(w io.Writer) {
				fmt.Fprintf(w, "Week %d settled, %d agencies\n", report.Week, len(report.Agencies))
				for _, s := range report.Agencies {
					fmt.Fprintf(w, "  %s: VE %d -> %d (%+d), %s\n", s.AgencyID, s.VEBefore, s.VEAfter, s.Adjustment, s.Status)
				}
				if len(report.Skipped) > 0 {
					fmt.Fprintf(w, "Already settled: %s\n", strings.Join(report.Skipped, ", "))
				}
			})
		},
	}
	cmd.Flags().StringVar(&scope.ClassID, "class", "", "settle only this class")
	cmd.Flags().IntVar(&scope.Week, "week", 0, "week to settle (defaults to the current week)")
	return cmd
}
