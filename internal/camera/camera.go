// Package camera implements the session frame source on a local video
// capture device.
package camera

import (
	"errors"
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when the capture device cannot be opened.
// Fatal to a session: there is no frame supply to fall back to.
var ErrUnavailable = errors.New("camera unavailable")

// Source reads frames from a capture device and hands them to the session
// as JPEG bytes. Not safe for concurrent use; the session loop is the only
// reader.
type Source struct {
	index   int
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// NewSource creates a source for the capture device at index.
func NewSource(index int) *Source {
	return &Source{index: index}
}

// Open acquires the capture device.
func (s *Source) Open() error {
	capture, err := gocv.OpenVideoCapture(s.index)
	if err != nil {
		return fmt.Errorf("%w: opening device %d: %v", ErrUnavailable, s.index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d did not open", ErrUnavailable, s.index)
	}
	s.capture = capture
	s.mat = gocv.NewMat()
	return nil
}

// Read blocks for the next frame and returns it JPEG-encoded. A read
// failure from an open device means the camera disconnected; the session
// treats it as end of stream.
func (s *Source) Read() ([]byte, error) {
	if s.capture == nil {
		return nil, fmt.Errorf("%w: source not open", ErrUnavailable)
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()

	frame := make([]byte, buf.Len())
	copy(frame, buf.GetBytes())
	return frame, nil
}

// Close releases the device. Safe to call when Open failed.
func (s *Source) Close() error {
	var err error
	if s.capture != nil {
		err = s.capture.Close()
		s.capture = nil
		s.mat.Close()
	}
	return err
}
