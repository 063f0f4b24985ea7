package animator

import (
	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/playback"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// BonePose is the local transform of one bound node after a tick.
type BonePose struct {
	Label    bonemap.Label `json:"label"`
	Node     string        `json:"node"`
	Rotation spatial.Quat  `json:"rotation"`
	Position [3]float64    `json:"position"`
	Scale    [3]float64    `json:"scale"`
}

// Snapshot is the rig state produced by one Tick.
type Snapshot struct {
	Session string     `json:"session"`
	Rig     string     `json:"rig"`
	Frame   int        `json:"frame"`
	Cursor  float64    `json:"cursor"`
	Playing bool       `json:"playing"`
	Bones   []BonePose `json:"bones"`
	// Skipped lists labels that kept their previous pose this tick.
	Skipped []string `json:"skipped,omitempty"`
}

// Bone returns the pose for l, if bound.
func (s *Snapshot) Bone(l bonemap.Label) (BonePose, bool) {
	for _, b := range s.Bones {
		if b.Label == l {
			return b, true
		}
	}
	return BonePose{}, false
}

// RigStatus describes the active rig and any pending swap.
type RigStatus struct {
	Name      string  `json:"name"`
	Source    string  `json:"source"`
	Nodes     int     `json:"nodes"`
	Resolved  int     `json:"resolved"`
	Coverage  float64 `json:"coverage"`
	Pending   string  `json:"pending,omitempty"`
	LastError string  `json:"last_error,omitempty"`
}

// Status is a point-in-time view of the session.
type Status struct {
	ID       string          `json:"id"`
	Strategy string          `json:"strategy"`
	Playback playback.Status `json:"playback"`
	Rig      RigStatus       `json:"rig"`
	Ticks    uint64          `json:"ticks"`
}

// Diagnostics reports bone mapping and solver health.
type Diagnostics struct {
	Mapping bonemap.Report `json:"mapping"`
	// Skipped counts ticks each label kept its previous pose, by reason.
	Skipped    map[string]map[string]int `json:"skipped"`
	Solves     uint64                    `json:"solves"`
	Failures   uint64                    `json:"failures"`
	SolverDown bool                      `json:"solver_down"`
}
