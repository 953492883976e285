// Package trainer rebuilds the signature store from the current roster.
// Every run is a full rebuild: the previous blob is replaced wholesale, so
// removed or renamed employees drop out and nothing is patched in place.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/signature"
)

// ErrEmptyRoster is returned when there are no employees to train. Fatal to
// the training run, harmless to the system: there is simply nothing to do.
var ErrEmptyRoster = errors.New("roster is empty")

// Extractor extracts one signature embedding from a still photo.
type Extractor interface {
	ExtractFromFile(ctx context.Context, path string) ([]float32, error)
}

// Report summarizes one training run.
type Report struct {
	Trained int
	Skipped []string // employees excluded from this run, with their photos logged
}

// Trainer is the batch training pipeline.
type Trainer struct {
	Roster    database.EmployeeRepository
	Extractor Extractor
	PhotoDir  string // resolved against each employee's relative photo path
	StorePath string
	Dim       int

	// Progress, when set, is called after each employee is processed.
	Progress func(done, total int, name string)
}

// Run rebuilds the signature store. Employees whose photo has no detectable
// face or cannot be read are logged and excluded from this run; they stay on
// the roster and a later retrain picks them up again. Two consecutive runs
// over an unchanged roster produce identical blobs.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	employees, err := t.Roster.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing roster: %w", err)
	}
	if len(employees) == 0 {
		return nil, ErrEmptyRoster
	}

	report := &Report{}
	sigs := make([]signature.Signature, 0, len(employees))

	for i, e := range employees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(t.PhotoDir, e.PhotoPath)
		embedding, err := t.Extractor.ExtractFromFile(ctx, path)
		switch {
		case err == nil:
			sigs = append(sigs, signature.Signature{Name: e.Name, Embedding: embedding})
			report.Trained++
		case errors.Is(err, detector.ErrNoFace):
			log.Printf("Warning: no face found in %s for %s, skipping", path, e.Name)
			report.Skipped = append(report.Skipped, e.Name)
		case errors.Is(err, detector.ErrDecode):
			log.Printf("Warning: unreadable photo %s for %s, skipping: %v", path, e.Name, err)
			report.Skipped = append(report.Skipped, e.Name)
		default:
			// Unreachable photo, detector outage for one item, etc.
			// Per-employee failures never abort the batch.
			log.Printf("Warning: extracting signature for %s (%s) failed, skipping: %v", e.Name, path, err)
			report.Skipped = append(report.Skipped, e.Name)
		}

		if t.Progress != nil {
			t.Progress(i+1, len(employees), e.Name)
		}
	}

	set := signature.NewSet(t.Dim, sigs)
	if err := signature.Save(t.StorePath, set); err != nil {
		return nil, fmt.Errorf("saving signature store: %w", err)
	}

	log.Printf("Training complete: %d signature(s) saved, %d employee(s) skipped", report.Trained, len(report.Skipped))
	return report, nil
}
