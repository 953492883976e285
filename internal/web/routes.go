package web

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", s.healthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Roster
		r.Get("/employees", s.listEmployees)
		r.Post("/employees", s.createEmployee)
		r.Put("/employees/{name}", s.updateEmployeePhoto)
		r.Delete("/employees/{name}", s.deleteEmployee)

		// Training
		r.Post("/train", s.train)

		// Attendance
		r.Get("/attendance", s.listAttendance)
	})
}
