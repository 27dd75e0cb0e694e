package main

import (
	"fmt"
	"text/tabwriter"

	"fintrack/internal/amortization"
	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newScheduleCmd() *cobra.Command {
	var principal, apr, payment string
	var term int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print a loan amortization table",
		Example: `  fintrack-admin schedule --principal 10000 --apr 10 --term 12
  fintrack-admin schedule -p 450000 -r 6.5 -t 60 --payment 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := core.ParseAmountStrict(principal)
			if err != nil {
				return fmt.Errorf("principal: %w", err)
			}
			r, err := core.ParseAmountStrict(apr)
			if err != nil {
				return fmt.Errorf("apr: %w", err)
			}
			if err := amortization.Validate(p, r, term); err != nil {
				return err
			}

			var schedule amortization.Schedule
			if payment == "" {
				schedule = amortization.GenerateSchedule(p, r, term)
			} else {
				pay, err := core.ParseAmountStrict(payment)
				if err != nil {
					return fmt.Errorf("payment: %w", err)
				}
				schedule = amortization.GenerateScheduleWithPayment(p, r, term, pay)
			}
			return writeSchedule(cmd, schedule)
		},
	}
	cmd.Flags().StringVarP(&principal, "principal", "p", "", "Loan principal")
	cmd.Flags().StringVarP(&apr, "apr", "r", "0", "Annual percentage rate, e.g. 6.5")
	cmd.Flags().IntVarP(&term, "term", "t", 0, "Term in months")
	cmd.Flags().StringVar(&payment, "payment", "", "Fixed monthly payment (default: computed)")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

func writeSchedule(cmd *cobra.Command, s amortization.Schedule) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tPayment\tPrincipal\tInterest\tBalance\t")
	for _, row := range s {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", row.Month,
			money(row.Payment), money(row.Principal), money(row.Interest), money(row.Balance))
	}
	sum := amortization.Summarize(s)
	fmt.Fprintf(tw, "Total\t%s\t\t%s\t%s\t\n", money(sum.TotalPaid), money(sum.TotalInterest), money(sum.FinalBalance))
	return tw.Flush()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
