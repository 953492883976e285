// Package session drives the live attendance loop: acquire a frame, detect
// faces, match them against the trained signature set, and commit one
// attendance row per recognized employee per day.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/signature"
)

// State is the session lifecycle phase.
type State int

const (
	StateInitializing State = iota
	StateReady
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Class is the visual classification of one detected face on one frame.
type Class int

const (
	// ClassUnknown marks a face that matched no stored signature.
	ClassUnknown Class = iota
	// ClassNewlyMarked marks a recognized face whose attendance was not
	// yet committed when this frame was processed.
	ClassNewlyMarked
	// ClassAlreadyMarked marks a recognized face already present today.
	ClassAlreadyMarked
)

func (c Class) String() string {
	switch c {
	case ClassNewlyMarked:
		return "newly-marked"
	case ClassAlreadyMarked:
		return "already-marked"
	}
	return "unknown"
}

// Observation is the per-face output handed to the observer: bounding
// region, resolved identity, and classification. Purely derived; carries no
// session state.
type Observation struct {
	Region   []float64 // [x1, y1, x2, y2] in frame pixel coordinates
	Name     string    // empty for unknown faces
	Distance float64
	Class    Class
}

// Observer receives per-frame observations. Implementations must not block;
// the loop is single-threaded.
type Observer interface {
	ObserveFrame(frame []byte, faces []Observation)
}

// Extractor detects faces with embeddings on an encoded frame.
type Extractor interface {
	ExtractFromFrame(ctx context.Context, frame []byte) ([]detector.Face, error)
}

// Session is one continuous attendance run. Populate the fields, call Run
// once; sessions are not reusable.
type Session struct {
	StorePath  string
	Threshold  float64
	Source     FrameSource
	Extractor  Extractor
	Attendance database.AttendanceRepository
	Observer   Observer // optional

	// FrameInterval throttles the loop between processed frames.
	// Zero means no pause beyond the blocking read itself.
	FrameInterval time.Duration

	// Now is the clock used to resolve "today". Defaults to time.Now.
	Now func() time.Time

	mu     sync.Mutex
	state  State
	marked map[string]struct{}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Marked reports whether an employee is in the session's already-marked set.
func (s *Session) Marked(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marked[name]
	return ok
}

func (s *Session) addMarked(name string) {
	s.mu.Lock()
	s.marked[name] = struct{}{}
	s.mu.Unlock()
}

// Run executes the session until ctx is cancelled, the frame source ends,
// or a fatal error occurs. A missing signature store aborts during
// initialization: the operator must train first. The frame source is
// released on every exit path.
func (s *Session) Run(ctx context.Context) error {
	if s.Now == nil {
		s.Now = time.Now
	}
	s.setState(StateInitializing)
	defer s.setState(StateStopped)

	set, err := signature.Load(s.StorePath)
	if err != nil {
		if errors.Is(err, signature.ErrStoreMissing) {
			return fmt.Errorf("%w (run training first)", err)
		}
		return err
	}
	engine := match.NewEngine(set, s.Threshold)
	log.Printf("Loaded %d signature(s) from %s", set.Len(), s.StorePath)

	today := database.DateOf(s.Now())
	if err := s.seedMarked(ctx, today); err != nil {
		return err
	}

	if err := s.Source.Open(); err != nil {
		return fmt.Errorf("opening frame source: %w", err)
	}
	defer func() {
		if err := s.Source.Close(); err != nil {
			log.Printf("Warning: releasing frame source: %v", err)
		}
	}()

	s.setState(StateReady)
	return s.loop(ctx, engine, today)
}

// seedMarked fills the already-marked set from today's durable rows. The
// set is a derived cache of durable truth, scoped to this run.
func (s *Session) seedMarked(ctx context.Context, today string) error {
	names, err := s.Attendance.ListForDate(ctx, today)
	if err != nil {
		return fmt.Errorf("seeding already-marked set: %w", err)
	}
	s.mu.Lock()
	s.marked = make(map[string]struct{}, len(names))
	for _, name := range names {
		s.marked[name] = struct{}{}
	}
	s.mu.Unlock()
	if len(names) > 0 {
		log.Printf("Already marked today: %v", names)
	}
	return nil
}

func (s *Session) loop(ctx context.Context, engine *match.Engine, today string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := s.Source.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("Frame source ended, stopping session")
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		if s.State() == StateReady {
			s.setState(StateRunning)
		}

		s.processFrame(ctx, engine, today, frame)

		if s.FrameInterval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.FrameInterval):
			}
		}
	}
}

// processFrame runs detection, matching, and conditional marking for one
// frame. Frame-level failures are logged and skipped; the loop continues.
func (s *Session) processFrame(ctx context.Context, engine *match.Engine, today string, frame []byte) {
	faces, err := s.Extractor.ExtractFromFrame(ctx, frame)
	if err != nil {
		log.Printf("Warning: face detection failed for frame, skipping: %v", err)
		return
	}

	observations := make([]Observation, 0, len(faces))
	for _, face := range faces {
		observations = append(observations, s.processFace(ctx, engine, today, face))
	}

	if s.Observer != nil {
		s.Observer.ObserveFrame(frame, observations)
	}
}

// processFace matches one face and commits attendance when the match is a
// first sighting today. A failed commit leaves the employee out of the
// marked set so the next frame that re-detects them retries the insert.
func (s *Session) processFace(ctx context.Context, engine *match.Engine, today string, face detector.Face) Observation {
	result := engine.Match(face.Embedding)
	obs := Observation{Region: face.BBox, Distance: result.Distance}
	if !result.Known {
		return obs
	}

	obs.Name = result.Name
	if s.Marked(result.Name) {
		obs.Class = ClassAlreadyMarked
		return obs
	}

	obs.Class = ClassNewlyMarked
	err := s.Attendance.MarkPresent(ctx, result.Name, today, face.Embedding, result.Distance)
	switch {
	case err == nil:
		s.addMarked(result.Name)
		log.Printf("Attendance marked for %s (distance %.3f)", result.Name, result.Distance)
	case errors.Is(err, database.ErrDuplicate):
		// Another writer (a concurrent session, a manual entry) got
		// there first; durable truth wins.
		s.addMarked(result.Name)
		obs.Class = ClassAlreadyMarked
	default:
		log.Printf("Warning: marking attendance for %s failed, will retry on next detection: %v", result.Name, err)
	}
	return obs
}
