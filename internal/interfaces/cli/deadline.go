package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
)

func newDeadlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Deadline calculators",
	}
	cmd.AddCommand(newDeadlineDueCmd(), newDeadlineWorkdaysCmd())
	return cmd
}

func newDeadlineDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due <quarter> <year>",
		Short: "Print the expense-report due date for a quarter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[1])
			}
			period, err := compliance.NewPeriod(strings.ToUpper(args[0]), year)
			if err != nil {
				return err
			}
			due := compliance.DueDate(period)
			fmt.Fprintf(cmd.OutOrStdout(), "%s reports are due %s\n",
				period, due.Format("2006-01-02"))
			return nil
		},
	}
}

func newDeadlineWorkdaysCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "workdays <n>",
		Short: "Add n working days to a date, skipping weekends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid day count %q", args[0])
			}
			start := time.Now().UTC()
			if from != "" {
				start, err = time.Parse("2006-01-02", from)
				if err != nil {
					return fmt.Errorf("invalid --from date %q, want YYYY-MM-DD", from)
				}
			}
			end := compliance.AddWorkingDays(start, n)
			fmt.Fprintf(cmd.OutOrStdout(), "%s + %d working days = %s (%s)\n",
				start.Format("2006-01-02"), n, end.Format("2006-01-02"), end.Weekday())
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD), defaults to today")
	return cmd
}
