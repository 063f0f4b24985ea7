package pose

import "errors"

// Sentinel errors. None of these is fatal to playback: the affected bone
// or frame keeps its previous pose.
var (
	ErrDegenerateSegment = errors.New("pose: segment shorter than epsilon")
	ErrOccluded          = errors.New("pose: keypoint below visibility threshold")
	ErrEmptyFrame        = errors.New("pose: frame has no landmarks")
	ErrSolverUnavailable = errors.New("pose: kinematics solver unavailable")
	ErrNoSolution        = errors.New("pose: kinematics solver returned no pose")
	ErrUnknownStrategy   = errors.New("pose: unknown strategy")
)
