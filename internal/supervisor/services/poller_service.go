// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/photowall/internal/logging"
)

// StartStopper is a component with a Start/Stop lifecycle.
// Satisfied by *ingest.PollIngestor.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// Trigger is a one-shot latch. Fire is safe to call from any goroutine any
// number of times and never blocks.
type Trigger struct {
	once sync.Once
	ch   chan struct{}
}

// NewTrigger returns an unfired Trigger.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{})}
}

// Fire releases every current and future waiter.
func (t *Trigger) Fire() {
	t.once.Do(func() { close(t.ch) })
}

// Fired is closed once Fire has been called.
func (t *Trigger) Fired() <-chan struct{} {
	return t.ch
}

// PollerService starts a poller the first time its trigger fires and stops it
// when the supervisor shuts the service down. After a restart the poller
// starts again immediately if the trigger has already fired.
type PollerService struct {
	poller  StartStopper
	trigger *Trigger
	name    string
}

// NewPollerService wraps poller. A nil trigger starts the poller at once.
func NewPollerService(poller StartStopper, trigger *Trigger) *PollerService {
	if trigger == nil {
		trigger = NewTrigger()
		trigger.Fire()
	}
	return &PollerService{poller: poller, trigger: trigger, name: "tag-poller"}
}

// Serve implements suture.Service.
func (p *PollerService) Serve(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.trigger.Fired():
	}

	if err := p.poller.Start(ctx); err != nil {
		return fmt.Errorf("poller start failed: %w", err)
	}
	logging.Debug().Msg("Tag poller released")

	<-ctx.Done()

	if err := p.poller.Stop(); err != nil {
		return fmt.Errorf("poller stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (p *PollerService) String() string {
	return p.name
}
