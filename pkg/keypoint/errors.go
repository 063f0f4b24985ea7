package keypoint

import "errors"

// Sentinel errors for stream decoding.
var (
	ErrInvalidStream = errors.New("keypoint: invalid stream document")
	ErrNoFrames      = errors.New("keypoint: stream has no frames")
	ErrFrameSize     = errors.New("keypoint: frame does not have 33 landmarks")
)
