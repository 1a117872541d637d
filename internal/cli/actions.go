package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/policy"
)

func (a *app) mercatoCmd() *cobra.Command {
	var requester string
	cmd := &cobra.Command{
		Use:   "mercato <agency> <hire|fire> <student>",
		Short: "Open a hire or fire request on an agency",
		Long: `Open a transfer request that the agency's members vote on.
A student may ask to be hired; members may propose hires, dismissals,
or their own resignation.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := agency.RequestKind(strings.ToUpper(args[1]))
			if kind != agency.KindHire && kind != agency.KindFire {
				return fmt.Errorf("kind must be hire or fire, got %q", args[1])
			}
			if requester == "" {
				requester = args[2]
			}
			req, err := a.client().RequestMercato(cmd.Context(), args[0], requester, args[2], kind)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), req, func(w io.Writer) {
				fmt.Fprintf(w, "Request %s opened: %s %s on %s\n", req.ID, req.Kind, req.StudentID, req.AgencyID)
			})
		},
	}
	cmd.Flags().StringVar(&requester, "as", "", "requesting student (defaults to the subject)")
	return cmd
}

func (a *app) voteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <request> <voter> <approve|reject>",
		Short: "Vote on a pending request",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			choice := agency.VoteChoice(strings.ToUpper(args[2]))
			out, err := a.client().Vote(cmd.Context(), args[0], args[1], choice)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s: %s (%d/%d approvals)\n", out.Kind, out.RequestID, out.Status, out.Approvals, out.Eligible)
			})
		},
	}
}

func (a *app) rejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <agency> <request>",
		Short: "Drop a pending request without executing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Reject(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %s rejected\n", args[1])
			return nil
		},
	}
}

func (a *app) challengeCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "challenge <agency> <title>",
		Short: "Challenge an agency to an extra deliverable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := a.client().SendChallenge(cmd.Context(), args[0], args[1], description)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), ch, func(w io.Writer) {
				fmt.Fprintf(w, "Challenge %s sent: %q (reward %d VE)\n", ch.ID, ch.Title, ch.Reward)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "challenge details")
	return cmd
}

func (a *app) reviewCmd() *cobra.Command {
	var r agency.PeerReview
	cmd := &cobra.Command{
		Use:   "review <agency> <reviewer> <target>",
		Short: "Rate a teammate for the current week",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r.ReviewerID, r.TargetID = args[1], args[2]
			if err := a.client().SubmitPeerReview(cmd.Context(), args[0], r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Review of %s recorded (%.2f average)\n", r.TargetID, r.Average())
			return nil
		},
	}
	cmd.Flags().Float64Var(&r.Attendance, "attendance", 3, "attendance rating 0-5")
	cmd.Flags().Float64Var(&r.Quality, "quality", 3, "quality rating 0-5")
	cmd.Flags().Float64Var(&r.Involvement, "involvement", 3, "involvement rating 0-5")
	cmd.Flags().StringVar(&r.WeekID, "week", "", "week id (defaults to the current week)")
	return cmd
}

func (a *app) mergerCmd() *cobra.Command {
	merger := &cobra.Command{
		Use:   "merger",
		Short: "Propose or finalize agency mergers",
	}
	merger.AddCommand(&cobra.Command{
		Use:   "propose <source> <target>",
		Short: "Offer the target agency to absorb the source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.client().ProposeMerger(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), m, func(w io.Writer) {
				fmt.Fprintf(w, "Merger %s proposed: %s into %s\n", m.ID, m.SourceAgencyID, m.TargetAgencyID)
			})
		},
	})
	for _, verdict := range []struct {
		use, past string
		approved  bool
	}{{"accept", "accepted", true}, {"refuse", "refused", false}} {
		merger.AddCommand(&cobra.Command{
			Use:   verdict.use + " <target> <request>",
			Short: strings.ToUpper(verdict.use[:1]) + verdict.use[1:] + " a merger offer",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.client().FinalizeMerger(cmd.Context(), args[0], args[1], verdict.approved); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merger %s %s\n", args[1], verdict.past)
				return nil
			},
		})
	}
	return merger
}

func (a *app) covertCmd() *cobra.Command {
	var p engine.CovertPayload
	cmd := &cobra.Command{
		Use:   "covert <agency> <student> <op>",
		Short: "Run a personal covert operation",
		Long: `Run a covert operation paid from the student's wallet and karma.
Operations: SHORT_SELL, DOXXING, LEAK, FAKE_CERT, BUY_VOTE, AUDIT_HOSTILE.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := policy.CovertOp(strings.ToUpper(args[2]))
			out, err := a.client().Covert(cmd.Context(), args[0], args[1], op, p)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s done (success: %t)\n", out.Op, out.Success)
				fmt.Fprintf(w, "Paid %s cr and %d karma; wallet %s cr, karma %d\n",
					humanize.Comma(out.Cost.Cash), out.Cost.Karma, humanize.Comma(out.Wallet), out.Karma)
				if out.Penalty != 0 {
					fmt.Fprintf(w, "Target lost %d VE\n", out.Penalty)
				}
			})
		},
	}
	cmd.Flags().StringVar(&p.TargetAgencyID, "target", "", "target agency (SHORT_SELL, AUDIT_HOSTILE)")
	cmd.Flags().StringVar(&p.WeekID, "week", "", "week id (FAKE_CERT)")
	cmd.Flags().StringVar(&p.DeliverableID, "deliverable", "", "deliverable id (FAKE_CERT)")
	cmd.Flags().StringVar(&p.RequestID, "request", "", "request id (BUY_VOTE)")
	return cmd
}

func (a *app) blackopCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "blackop <agency> <op>",
		Short: "Run a treasury-funded black op",
		Long:  `Run a black op paid from the agency budget. Operations: AUDIT, SPY, PR_CAMPAIGN.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := policy.BlackOp(strings.ToUpper(args[1]))
			out, err := a.client().BlackOp(cmd.Context(), args[0], target, op)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s done (success: %t), budget now %s\n", out.Op, out.Success, humanize.Comma(out.BudgetAfter))
				if out.AttackerVE != 0 {
					fmt.Fprintf(w, "Own VE %+d\n", out.AttackerVE)
				}
				if out.TargetVE != 0 {
					fmt.Fprintf(w, "Target VE %+d\n", out.TargetVE)
				}
				if in := out.Intel; in != nil {
					fmt.Fprintf(w, "Intel on %s: VE %d, budget %s, %d members, vulnerable: %t\n",
						in.AgencyID, in.VECurrent, humanize.Comma(in.BudgetReal), in.Members, in.Vulnerable)
				}
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "target agency (AUDIT, SPY)")
	return cmd
}
