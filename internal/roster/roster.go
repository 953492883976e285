// Package roster manages employee records and their training photos, and
// triggers a signature retrain after every mutation. The retrain is a
// synchronous blocking call: the mutation is not considered done until the
// store has been rebuilt (or the rebuild has been reported as failed).
package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/trainer"
)

// ErrRetrain wraps a training failure after a roster mutation succeeded.
// The roster change is durable; the signature store is stale until the next
// successful retrain.
var ErrRetrain = errors.New("retraining failed")

// Retrainer rebuilds the signature store. Satisfied by *trainer.Trainer.
type Retrainer interface {
	Run(ctx context.Context) (*trainer.Report, error)
}

// Service owns roster mutations and their side effects: photo files on
// disk, the employees table, and the retrain trigger.
type Service struct {
	Employees database.EmployeeRepository
	Trainer   Retrainer
	PhotoDir  string
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize produces the comparison form of an employee name: lowercase, no
// diacritics, dashes as spaces, collapsed whitespace. Uniqueness is
// enforced on this form so "Jan Novák" and "jan-novak" cannot coexist.
func Normalize(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// List returns the roster in name order.
func (s *Service) List(ctx context.Context) ([]database.Employee, error) {
	return s.Employees.List(ctx)
}

// Add creates an employee with their training photo and retrains. The photo
// is stored under a UUID-prefixed file name so re-uploads never collide.
func (s *Service) Add(ctx context.Context, name string, photo []byte, filename string) (*database.Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("employee name is required")
	}
	if len(photo) == 0 {
		return nil, errors.New("employee photo is required")
	}

	photoPath, err := s.writePhoto(photo, filename)
	if err != nil {
		return nil, err
	}

	e := &database.Employee{Name: name, PhotoPath: photoPath}
	if err := s.Employees.Create(ctx, e); err != nil {
		s.removePhoto(photoPath)
		return nil, err
	}

	return e, s.retrain(ctx)
}

// UpdatePhoto replaces an employee's training photo and retrains.
func (s *Service) UpdatePhoto(ctx context.Context, name string, photo []byte, filename string) error {
	if len(photo) == 0 {
		return errors.New("employee photo is required")
	}

	existing, err := s.Employees.Get(ctx, name)
	if err != nil {
		return err
	}

	photoPath, err := s.writePhoto(photo, filename)
	if err != nil {
		return err
	}
	if err := s.Employees.UpdatePhoto(ctx, name, photoPath); err != nil {
		s.removePhoto(photoPath)
		return err
	}
	s.removePhoto(existing.PhotoPath)

	return s.retrain(ctx)
}

// Remove deletes an employee, their photo, and their attendance history,
// then retrains so the dropped signature disappears from the store.
func (s *Service) Remove(ctx context.Context, name string) error {
	existing, err := s.Employees.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := s.Employees.Delete(ctx, name); err != nil {
		return err
	}
	s.removePhoto(existing.PhotoPath)

	return s.retrain(ctx)
}

// writePhoto stores photo bytes under a UUID-prefixed name and returns the
// path relative to PhotoDir, which is what the employees table records.
func (s *Service) writePhoto(photo []byte, filename string) (string, error) {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		base = "photo.jpg"
	}
	relPath := uuid.New().String() + "_" + base

	if err := os.MkdirAll(s.PhotoDir, 0o755); err != nil {
		return "", fmt.Errorf("creating photo directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.PhotoDir, relPath), photo, 0o644); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return relPath, nil
}

// removePhoto is best-effort cleanup; a leftover file is not an error.
func (s *Service) removePhoto(relPath string) {
	if relPath == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.PhotoDir, relPath)); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: removing photo %s: %v", relPath, err)
	}
}

// retrain rebuilds the signature store after a mutation. An empty roster is
// not an error here: the last employee was just removed and there is
// nothing to train. Any other failure is reported as ErrRetrain; the
// mutation itself stays committed.
func (s *Service) retrain(ctx context.Context) error {
	report, err := s.Trainer.Run(ctx)
	if err != nil {
		if errors.Is(err, trainer.ErrEmptyRoster) {
			log.Printf("Roster is empty, skipping retrain")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRetrain, err)
	}
	for _, name := range report.Skipped {
		log.Printf("Warning: %s has no trainable signature after this retrain", name)
	}
	return nil
}
