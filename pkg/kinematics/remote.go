// Package kinematics provides pose.Kinematics implementations backed by
// external solver services.
package kinematics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/teslashibe/go-mocap/internal/httpc"
	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/pose"
)

// Remote posts frames to an HTTP solver. The service answers with a JSON
// object keyed by label name, or 204 / null when it cannot pose the frame.
type Remote struct {
	URL    string
	Client *http.Client

	logger   *slog.Logger
	requests atomic.Int64
	failures atomic.Int64
}

// NewRemote creates a client for the solver at url.
func NewRemote(url string, logger *slog.Logger) *Remote {
	return &Remote{
		URL:    url,
		Client: httpc.Client,
		logger: log.Or(logger, "kinematics"),
	}
}

// Solve implements pose.Kinematics.
func (r *Remote) Solve(ctx context.Context, in pose.Input) (pose.Solution, error) {
	r.requests.Add(1)

	var sol pose.Solution
	err := httpc.PostJSON(ctx, r.Client, r.URL, in, &sol)
	switch {
	case errors.Is(err, httpc.ErrNoContent):
		return nil, pose.ErrNoSolution
	case err != nil:
		if r.failures.Add(1) == 1 {
			r.logger.Warn("remote solver failed", "url", r.URL, "error", err)
		}
		return nil, fmt.Errorf("remote solve: %w", err)
	case len(sol) == 0:
		return nil, pose.ErrNoSolution
	}
	if r.failures.Swap(0) > 0 {
		r.logger.Info("remote solver recovered", "url", r.URL)
	}
	return sol, nil
}

// Stats reports request and consecutive failure counts.
func (r *Remote) Stats() (requests, failures int64) {
	return r.requests.Load(), r.failures.Load()
}

var _ pose.Kinematics = (*Remote)(nil)
