package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage the employee roster",
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees on the roster",
	RunE:  runRosterList,
}

var rosterAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an employee with a training photo and retrain",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterAdd,
}

var rosterUpdateCmd = &cobra.Command{
	Use:   "update-photo <name>",
	Short: "Replace an employee's training photo and retrain",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterUpdate,
}

var rosterRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an employee and their attendance history, then retrain",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterRemove,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterListCmd)
	rosterCmd.AddCommand(rosterAddCmd)
	rosterCmd.AddCommand(rosterUpdateCmd)
	rosterCmd.AddCommand(rosterRemoveCmd)

	rosterAddCmd.Flags().String("photo", "", "Path to the employee's training photo (required)")
	_ = rosterAddCmd.MarkFlagRequired("photo")
	rosterUpdateCmd.Flags().String("photo", "", "Path to the new training photo (required)")
	_ = rosterUpdateCmd.MarkFlagRequired("photo")
}

func runRosterList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	employees, err := a.roster.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}
	if len(employees) == 0 {
		fmt.Println("Roster is empty")
		return nil
	}
	for _, e := range employees {
		fmt.Printf("%-30s %s\n", e.Name, e.PhotoPath)
	}
	fmt.Printf("\n%d employee(s)\n", len(employees))
	return nil
}

// readPhotoFlag loads the file behind --photo.
func readPhotoFlag(cmd *cobra.Command) ([]byte, string, error) {
	path := mustGetString(cmd, "photo")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading photo %s: %w", path, err)
	}
	return data, filepath.Base(path), nil
}

// reportRetrain turns a retrain failure into a warning; the roster change
// itself already succeeded.
func reportRetrain(err error) error {
	if errors.Is(err, roster.ErrRetrain) {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("The roster change is saved; run 'face-attendance train' to retry")
		return nil
	}
	return err
}

func runRosterAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	photo, filename, err := readPhotoFlag(cmd)
	if err != nil {
		return err
	}

	e, err := a.roster.Add(cmd.Context(), args[0], photo, filename)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("employee %q already exists", args[0])
		}
		if err := reportRetrain(err); err != nil {
			return fmt.Errorf("adding employee: %w", err)
		}
	}
	fmt.Printf("Added %s (photo %s)\n", e.Name, e.PhotoPath)
	return nil
}

func runRosterUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	photo, filename, err := readPhotoFlag(cmd)
	if err != nil {
		return err
	}

	if err := a.roster.UpdatePhoto(cmd.Context(), args[0], photo, filename); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("employee %q not found", args[0])
		}
		if err := reportRetrain(err); err != nil {
			return fmt.Errorf("updating photo: %w", err)
		}
	}
	fmt.Printf("Updated photo for %s\n", args[0])
	return nil
}

func runRosterRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.roster.Remove(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("employee %q not found", args[0])
		}
		if err := reportRetrain(err); err != nil {
			return fmt.Errorf("removing employee: %w", err)
		}
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}
