package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/trainer"
)

// maxUploadSize caps roster photo uploads at 20 MB.
const maxUploadSize = 20 << 20

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// EmployeeResponse is the JSON shape of a roster entry.
type EmployeeResponse struct {
	Name      string    `json:"name"`
	PhotoPath string    `json:"photo_path"`
	CreatedAt time.Time `json:"created_at"`
}

// TrainResponse reports the outcome of a training run.
type TrainResponse struct {
	Trained int      `json:"trained"`
	Skipped []string `json:"skipped"`
	Warning string   `json:"warning,omitempty"`
}

// AttendanceResponse is the JSON shape of an attendance record.
type AttendanceResponse struct {
	Employee string    `json:"employee"`
	Date     string    `json:"date"`
	MarkedAt time.Time `json:"marked_at"`
	Distance float64   `json:"distance"`
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := s.roster.List(r.Context())
	if err != nil {
		log.Printf("Listing employees: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list employees")
		return
	}

	out := make([]EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		out = append(out, EmployeeResponse{Name: e.Name, PhotoPath: e.PhotoPath, CreatedAt: e.CreatedAt})
	}
	respondJSON(w, http.StatusOK, out)
}

// readPhotoForm extracts the "photo" file from a multipart form. A nil
// return with no error written means the response is already sent.
func readPhotoForm(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, "", false
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo file is required")
		return nil, "", false
	}
	defer file.Close()

	photo, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read photo")
		return nil, "", false
	}
	return photo, header.Filename, true
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	photo, filename, ok := readPhotoForm(w, r)
	if !ok {
		return
	}
	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	e, err := s.roster.Add(r.Context(), name, photo, filename)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, EmployeeResponse{Name: e.Name, PhotoPath: e.PhotoPath, CreatedAt: e.CreatedAt})
	case errors.Is(err, roster.ErrRetrain):
		log.Printf("Employee %s added, retrain failed: %v", name, err)
		respondJSON(w, http.StatusCreated, map[string]string{
			"name":    e.Name,
			"warning": "employee added but retraining failed; run training again",
		})
	case errors.Is(err, database.ErrDuplicate):
		respondError(w, http.StatusConflict, "employee already exists")
	default:
		log.Printf("Adding employee %s: %v", name, err)
		respondError(w, http.StatusInternalServerError, "failed to add employee")
	}
}

func (s *Server) updateEmployeePhoto(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	photo, filename, ok := readPhotoForm(w, r)
	if !ok {
		return
	}

	err := s.roster.UpdatePhoto(r.Context(), name, photo, filename)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case errors.Is(err, roster.ErrRetrain):
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "updated",
			"warning": "photo updated but retraining failed; run training again",
		})
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "employee not found")
	default:
		log.Printf("Updating photo for %s: %v", name, err)
		respondError(w, http.StatusInternalServerError, "failed to update photo")
	}
}

func (s *Server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	err := s.roster.Remove(r.Context(), name)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case errors.Is(err, roster.ErrRetrain):
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "deleted",
			"warning": "employee deleted but retraining failed; run training again",
		})
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "employee not found")
	default:
		log.Printf("Deleting employee %s: %v", name, err)
		respondError(w, http.StatusInternalServerError, "failed to delete employee")
	}
}

func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	report, err := s.roster.Trainer.Run(r.Context())
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, TrainResponse{Trained: report.Trained, Skipped: report.Skipped})
	case errors.Is(err, trainer.ErrEmptyRoster):
		respondError(w, http.StatusConflict, "roster is empty, nothing to train")
	default:
		log.Printf("Training: %v", err)
		respondError(w, http.StatusInternalServerError, "training failed")
	}
}

func (s *Server) listAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = database.DateOf(time.Now())
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := s.attendance.RecordsForDate(r.Context(), date)
	if err != nil {
		log.Printf("Listing attendance for %s: %v", date, err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	out := make([]AttendanceResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, AttendanceResponse{
			Employee: rec.Employee,
			Date:     rec.Date,
			MarkedAt: rec.MarkedAt,
			Distance: rec.Distance,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
