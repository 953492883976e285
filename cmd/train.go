package cmd

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/trainer"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Rebuild the face signature store from employee photos",
	Long: `Extract a face signature from every employee photo on the roster and
write the result as a new signature store. The store is replaced wholesale;
employees whose photo yields no detectable face are skipped and reported.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	a.trainer.Progress = func(done, total int, name string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Training signatures"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("photos"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Add(1)
	}

	report, err := a.trainer.Run(cmd.Context())
	if err != nil {
		if errors.Is(err, trainer.ErrEmptyRoster) {
			return errors.New("roster is empty, add employees before training")
		}
		return fmt.Errorf("training failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	fmt.Printf("Trained %d signature(s), store written to %s\n", report.Trained, a.cfg.Signatures.Path)
	if len(report.Skipped) > 0 {
		fmt.Printf("Skipped %d employee(s) with no usable photo:\n", len(report.Skipped))
		for _, name := range report.Skipped {
			fmt.Printf("  - %s\n", name)
		}
	}
	return nil
}
