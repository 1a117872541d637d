package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the league headline numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), st, func(w io.Writer) {
				fmt.Fprintf(w, "%s, week %d\n", st.Name, st.Week)
				fmt.Fprintf(w, "Agencies: %d\n", st.Agencies)
				fmt.Fprintf(w, "Students: %d\n", st.Students)
			})
		},
	}
}

func (a *app) agenciesCmd() *cobra.Command {
	var class string
	cmd := &cobra.Command{
		Use:   "agencies",
		Short: "List agencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client().Agencies(cmd.Context(), class)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), list, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tCLASS\tVE\tBUDGET\tSTATUS\tMEMBERS\tPENDING")
				for _, s := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\t%d\t%d\n",
						s.ID, s.Name, s.ClassID, s.VECurrent, s.VECap,
						humanize.Comma(s.BudgetReal), s.Status, s.Members, s.Pending)
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "only agencies of this class")
	return cmd
}

func (a *app) agencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agency <id>",
		Short: "Show one agency in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.client().Agency(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), ag, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", ag.Name, ag.ID)
				fmt.Fprintf(w, "Class: %s\n", ag.ClassID)
				fmt.Fprintf(w, "VE: %d  Status: %s\n", ag.VECurrent, ag.Status)
				fmt.Fprintf(w, "Budget: %s\n", humanize.Comma(ag.BudgetReal))
				fmt.Fprintf(w, "Members: %d\n", len(ag.Members))
				for _, m := range ag.Members {
					fmt.Fprintf(w, "  %s  %-20s score %d  wallet %s  karma %d\n",
						m.ID, m.Name, m.IndividualScore, humanize.Comma(m.Wallet), m.Karma)
				}
				for _, r := range ag.MercatoRequests {
					fmt.Fprintf(w, "Request %s: %s %s (%s, %d votes)\n", r.ID, r.Kind, r.StudentID, r.Status, len(r.Votes))
				}
				for _, c := range ag.Challenges {
					fmt.Fprintf(w, "Challenge %s: %q (%s)\n", c.ID, c.Title, c.Status)
				}
				for _, m := range ag.MergerRequests {
					fmt.Fprintf(w, "Merger %s: from %s (%s)\n", m.ID, m.SourceAgencyID, m.Status)
				}
			})
		},
	}
}

func (a *app) eventsCmd() *cobra.Command {
	var (
		agencyID string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.client().Events(cmd.Context(), agencyID, limit)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), events, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, e := range events {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Date, e.AgencyID, e.Type, e.Label)
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&agencyID, "agency", "", "only events of this agency")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}
