package playback

import "errors"

// Sentinel errors for scheduler operations.
var (
	ErrNoStream     = errors.New("playback: no stream loaded")
	ErrInvalidSpeed = errors.New("playback: speed must be positive")
	ErrInvalidRate  = errors.New("playback: tick rate must be positive")
)
