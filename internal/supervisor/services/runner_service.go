// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package services

import "context"

// ContextRunner is a component whose main loop blocks until ctx ends.
// Satisfied by *websocket.Hub.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService names a ContextRunner for supervision.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner under the given name.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (r *RunnerService) Serve(ctx context.Context) error {
	return r.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (r *RunnerService) String() string {
	return r.name
}
