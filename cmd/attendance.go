package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance [date]",
	Short: "Show attendance records for a day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
}

func runAttendance(cmd *cobra.Command, args []string) error {
	date := database.DateOf(time.Now())
	if len(args) == 1 {
		if _, err := time.Parse("2006-01-02", args[0]); err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD, got %q", args[0])
		}
		date = args[0]
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.attendance.RecordsForDate(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("No attendance records for %s\n", date)
		return nil
	}

	fmt.Printf("Attendance for %s:\n", date)
	for _, rec := range records {
		fmt.Printf("  %-30s %s  (distance %.3f)\n", rec.Employee, rec.MarkedAt.Format("15:04:05"), rec.Distance)
	}
	fmt.Printf("\n%d employee(s) present\n", len(records))
	return nil
}
