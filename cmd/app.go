package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/trainer"
)

// app bundles the wiring shared by every command: config, database pool,
// repositories, detector client, trainer, and roster service.
type app struct {
	cfg        *config.Config
	pool       *postgres.Pool
	employees  *postgres.EmployeeRepository
	attendance *postgres.AttendanceRepository
	detector   *detector.Client
	trainer    *trainer.Trainer
	roster     *roster.Service
}

func newApp() (*app, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	employees := postgres.NewEmployeeRepository(pool)
	employees.Normalize = roster.Normalize
	attendance := postgres.NewAttendanceRepository(pool)

	client := detector.NewClient(cfg.Detector.URL, cfg.Detector.Dim)

	tr := &trainer.Trainer{
		Roster:    employees,
		Extractor: client,
		PhotoDir:  cfg.Photos.Dir,
		StorePath: cfg.Signatures.Path,
		Dim:       cfg.Detector.Dim,
	}

	return &app{
		cfg:        cfg,
		pool:       pool,
		employees:  employees,
		attendance: attendance,
		detector:   client,
		trainer:    tr,
		roster: &roster.Service{
			Employees: employees,
			Trainer:   tr,
			PhotoDir:  cfg.Photos.Dir,
		},
	}, nil
}

func (a *app) Close() {
	if err := a.pool.Close(); err != nil {
		fmt.Printf("Warning: closing database pool: %v\n", err)
	}
}
