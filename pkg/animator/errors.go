package animator

import "errors"

var (
	// ErrLoadFailure wraps any stream or rig that could not be loaded.
	// The session keeps its previous stream or rig.
	ErrLoadFailure = errors.New("animator: load failure")
	// ErrSuperseded is returned for a rig request replaced by a newer one.
	ErrSuperseded = errors.New("animator: rig request superseded")
	// ErrUnknownPreset is returned by Preset for an unrecognized name.
	ErrUnknownPreset = errors.New("animator: unknown preset")
)
