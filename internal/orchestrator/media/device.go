// Package media owns the camera capture resource of a rehearsal: acquisition
// with retry, validation, binding to a render sink, and release.
package media

import "context"

type TrackState string

const (
	TrackLive  TrackState = "live"
	TrackEnded TrackState = "ended"
)

// Track is one captured media track (video or audio).
type Track interface {
	Kind() string
	State() TrackState
	Stop()
}

// Stream is the raw capture handle returned by a device.
type Stream interface {
	ID() string
	Tracks() []Track
}

type Constraints struct {
	Video      bool
	Audio      bool
	Width      int
	Height     int
	FacingMode string // user|environment
}

// DefaultConstraints asks for the front camera without audio; dictation audio is
// captured separately by the recognizer.
func DefaultConstraints() Constraints {
	return Constraints{Video: true, Width: 1280, Height: 720, FacingMode: "user"}
}

// Device opens capture streams. Open blocks while permission or hardware is pending.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Sink renders a stream (a video element in the UI).
type Sink interface {
	ID() string
	Bind(s Stream) error
	Unbind()
}

// SinkLocator returns the currently mounted sink, or nil while none exists.
type SinkLocator func() Sink
