package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/signature"
)

var attendCmd = &cobra.Command{
	Use:   "attend",
	Short: "Run a live attendance session against the camera",
	Long: `Open the camera, match every detected face against the trained signature
store, and record each recognized employee as present. An employee is
recorded at most once per day; the session runs until interrupted.`,
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().Int("camera", -1, "Camera device index (overrides CAMERA_INDEX)")
	attendCmd.Flags().Float64("threshold", 0, "Maximum cosine distance accepted as a match (overrides MATCH_THRESHOLD)")
}

// consoleObserver announces newly marked employees on stdout.
type consoleObserver struct{}

func (consoleObserver) ObserveFrame(frame []byte, faces []session.Observation) {
	for _, f := range faces {
		if f.Class == session.ClassNewlyMarked {
			fmt.Printf("Marked %s present (distance %.3f)\n", f.Name, f.Distance)
		}
	}
}

func runAttend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cameraIndex := a.cfg.Camera.Index
	if idx := mustGetInt(cmd, "camera"); idx >= 0 {
		cameraIndex = idx
	}
	threshold := a.cfg.Match.Threshold
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		threshold = t
	}

	sess := &session.Session{
		StorePath:     a.cfg.Signatures.Path,
		Threshold:     threshold,
		Source:        camera.NewSource(cameraIndex),
		Extractor:     a.detector,
		Attendance:    a.attendance,
		Observer:      consoleObserver{},
		FrameInterval: time.Duration(a.cfg.Camera.FrameIntervalMs) * time.Millisecond,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting attendance session (camera %d, threshold %.2f)\n", cameraIndex, threshold)
	fmt.Println("Press Ctrl+C to stop")

	err = sess.Run(ctx)
	switch {
	case err == nil:
		fmt.Println("Attendance session finished")
		return nil
	case errors.Is(err, signature.ErrStoreMissing):
		return fmt.Errorf("no signature store at %s, run 'face-attendance train' first", a.cfg.Signatures.Path)
	case errors.Is(err, camera.ErrUnavailable):
		return fmt.Errorf("camera %d is unavailable: %w", cameraIndex, err)
	default:
		return fmt.Errorf("attendance session failed: %w", err)
	}
}
