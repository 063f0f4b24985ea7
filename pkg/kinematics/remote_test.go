package kinematics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

func TestRemoteSolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in pose.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode input: %v", err)
		}
		if len(in.World) != keypoint.Count {
			t.Errorf("world landmarks = %d", len(in.World))
		}
		w.Write([]byte(`{"Spine":{"rotation":{"x":0,"y":0.5,"z":0}},"Hips":{"rotation":{"x":0,"y":0,"z":0},"position":{"x":1,"y":0,"z":0}}}`))
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, nil)
	d, err := pose.NewDelegated(pose.DelegatedPreset(), remote)
	if err != nil {
		t.Fatal(err)
	}

	f := keypoint.StandingFrame()
	res, err := d.Solve(context.Background(), &f, pose.AllBound{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	spine, ok := res.Target(bonemap.Spine)
	if !ok {
		t.Fatal("no spine target")
	}
	want := spatial.FromEuler(0, 0.5*pose.DefaultSpineDampen, 0)
	if !spatial.ApproxEqual(spine.Rotation, want, 1e-9) {
		t.Errorf("spine = %+v, want %+v", spine.Rotation, want)
	}
	if hips, _ := res.Target(bonemap.Hips); !hips.HasPosition {
		t.Error("hips should carry a position")
	}

	if req, fail := remote.Stats(); req != 1 || fail != 0 {
		t.Errorf("stats = %d/%d", req, fail)
	}
}

func TestRemoteNoSolution(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"no content", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }, pose.ErrNoSolution},
		{"null body", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("null")) }, pose.ErrNoSolution},
		{"server error", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", 500) }, pose.ErrSolverUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			d, _ := pose.NewDelegated(pose.DelegatedPreset(), NewRemote(srv.URL, nil))
			f := keypoint.StandingFrame()
			_, err := d.Solve(context.Background(), &f, pose.AllBound{})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
