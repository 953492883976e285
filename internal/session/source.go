package session

// FrameSource supplies encoded video frames to a session. Read blocks until
// a frame is available and returns io.EOF when the stream ends; Close
// releases the underlying device and is safe to call after a failed Open.
type FrameSource interface {
	Open() error
	Read() ([]byte, error)
	Close() error
}
