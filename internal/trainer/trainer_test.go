package trainer

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/signature"
)

// fakeExtractor maps photo file names to canned embeddings or errors.
type fakeExtractor struct {
	embeddings map[string][]float32
	errs       map[string]error
}

func (f *fakeExtractor) ExtractFromFile(ctx context.Context, path string) ([]float32, error) {
	name := filepath.Base(path)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	if emb, ok := f.embeddings[name]; ok {
		return emb, nil
	}
	return nil, os.ErrNotExist
}

func newTrainer(t *testing.T, roster *mock.EmployeeRepository, ex Extractor) *Trainer {
	t.Helper()
	return &Trainer{
		Roster:    roster,
		Extractor: ex,
		PhotoDir:  "photos",
		StorePath: filepath.Join(t.TempDir(), "signatures.gob"),
		Dim:       4,
	}
}

func TestRun_BuildsStoreFromRoster(t *testing.T) {
	roster := mock.NewEmployeeRepository()
	roster.Add("Asha", "asha.jpg")
	roster.Add("Bala", "bala.jpg")

	ex := &fakeExtractor{embeddings: map[string][]float32{
		"asha.jpg": {1, 0, 0, 0},
		"bala.jpg": {0, 1, 0, 0},
	}}
	tr := newTrainer(t, roster, ex)

	report, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Trained != 2 || len(report.Skipped) != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	set, err := signature.Load(tr.StorePath)
	if err != nil {
		t.Fatalf("loading trained store failed: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 signatures, got %d", set.Len())
	}
	if set.All()[0].Name != "Asha" {
		t.Errorf("expected Asha first, got %s", set.All()[0].Name)
	}
}

func TestRun_EmptyRoster(t *testing.T) {
	tr := newTrainer(t, mock.NewEmployeeRepository(), &fakeExtractor{})

	_, err := tr.Run(context.Background())
	if !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("expected ErrEmptyRoster, got %v", err)
	}
	if _, statErr := os.Stat(tr.StorePath); !os.IsNotExist(statErr) {
		t.Error("empty roster must not write a store")
	}
}

func TestRun_NoFaceIsSkippedAndLogged(t *testing.T) {
	roster := mock.NewEmployeeRepository()
	roster.Add("Bala", "bala.jpg")

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	ex := &fakeExtractor{errs: map[string]error{"bala.jpg": detector.ErrNoFace}}
	tr := newTrainer(t, roster, ex)

	report, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("run must complete despite no-face photos: %v", err)
	}
	if report.Trained != 0 || len(report.Skipped) != 1 || report.Skipped[0] != "Bala" {
		t.Errorf("unexpected report: %+v", report)
	}
	if !strings.Contains(logs.String(), "Bala") {
		t.Error("expected warning naming the skipped employee")
	}

	set, err := signature.Load(tr.StorePath)
	if err != nil {
		t.Fatalf("loading store failed: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("expected empty store, got %d signatures", set.Len())
	}
}

func TestRun_DecodeErrorDoesNotAbortBatch(t *testing.T) {
	roster := mock.NewEmployeeRepository()
	roster.Add("Asha", "asha.jpg")
	roster.Add("Bala", "bala.jpg")
	roster.Add("Chandra", "chandra.jpg")

	ex := &fakeExtractor{
		embeddings: map[string][]float32{
			"asha.jpg":    {1, 0, 0, 0},
			"chandra.jpg": {0, 0, 1, 0},
		},
		errs: map[string]error{"bala.jpg": detector.ErrDecode},
	}
	tr := newTrainer(t, roster, ex)

	report, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Trained != 2 {
		t.Errorf("expected 2 trained, got %d", report.Trained)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "Bala" {
		t.Errorf("expected Bala skipped, got %v", report.Skipped)
	}
}

func TestRun_Idempotent(t *testing.T) {
	roster := mock.NewEmployeeRepository()
	roster.Add("Asha", "asha.jpg")
	roster.Add("Bala", "bala.jpg")

	ex := &fakeExtractor{embeddings: map[string][]float32{
		"asha.jpg": {1, 0, 0, 0},
		"bala.jpg": {0, 1, 0, 0},
	}}
	tr := newTrainer(t, roster, ex)

	if _, err := tr.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first, err := os.ReadFile(tr.StorePath)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	second, err := os.ReadFile(tr.StorePath)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("expected bit-identical store after retraining an unchanged roster")
	}
}

func TestRun_ReplacesRemovedEmployees(t *testing.T) {
	roster := mock.NewEmployeeRepository()
	roster.Add("Asha", "asha.jpg")
	roster.Add("Bala", "bala.jpg")

	ex := &fakeExtractor{embeddings: map[string][]float32{
		"asha.jpg": {1, 0, 0, 0},
		"bala.jpg": {0, 1, 0, 0},
	}}
	tr := newTrainer(t, roster, ex)

	if _, err := tr.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := roster.Delete(context.Background(), "Bala"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	set, err := signature.Load(tr.StorePath)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 1 || set.All()[0].Name != "Asha" {
		t.Errorf("expected store rebuilt without Bala, got %d signatures", set.Len())
	}
}

func TestRun_ProgressCallback(t *testing.T) {
	roster := mock.NewEmployeeRepository()
	roster.Add("Asha", "asha.jpg")
	roster.Add("Bala", "bala.jpg")

	ex := &fakeExtractor{embeddings: map[string][]float32{
		"asha.jpg": {1, 0, 0, 0},
		"bala.jpg": {0, 1, 0, 0},
	}}
	tr := newTrainer(t, roster, ex)

	var seen []string
	tr.Progress = func(done, total int, name string) {
		if total != 2 {
			t.Errorf("expected total 2, got %d", total)
		}
		seen = append(seen, name)
	}

	if _, err := tr.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 progress calls, got %d", len(seen))
	}
}
