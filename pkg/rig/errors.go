package rig

import "errors"

// Sentinel errors for rig loading.
var (
	ErrLoadFailed      = errors.New("rig: load failed")
	ErrEmptyHierarchy  = errors.New("rig: hierarchy has no nodes")
	ErrUnsupportedType = errors.New("rig: unsupported rig format")
)
