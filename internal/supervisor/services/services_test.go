// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/photowall/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*RunnerService)(nil)
	_ suture.Service = (*PollerService)(nil)
)

// mockHTTPServer blocks in ListenAndServe until Shutdown, or fails at once.
type mockHTTPServer struct {
	listenErr     error
	shutdownErr   error
	shutdownCount atomic.Int32
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("graceful shutdown returns ctx error", func(t *testing.T) {
		srv := newMockHTTPServer()
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if srv.shutdownCount.Load() != 1 {
			t.Errorf("Shutdown calls = %d, want 1", srv.shutdownCount.Load())
		}
	})

	t.Run("listen failure is returned", func(t *testing.T) {
		srv := newMockHTTPServer()
		srv.listenErr = errors.New("address already in use")
		err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
		if err == nil || !errors.Is(err, srv.listenErr) {
			t.Errorf("Serve() = %v, want wrapped listen error", err)
		}
	})

	t.Run("shutdown failure is returned", func(t *testing.T) {
		srv := newMockHTTPServer()
		srv.shutdownErr = errors.New("drain timeout")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewHTTPServerService(srv, time.Second).Serve(ctx); !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Serve() = %v, want wrapped shutdown error", err)
		}
	})
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	svc := NewHTTPServerService(newMockHTTPServer(), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

type mockRunner struct{ runs atomic.Int32 }

func (m *mockRunner) RunWithContext(ctx context.Context) error {
	m.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerService(t *testing.T) {
	r := &mockRunner{}
	svc := NewRunnerService("websocket-hub", r)
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v", err)
	}
	if r.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", r.runs.Load())
	}
}

type mockPoller struct {
	starts   atomic.Int32
	stops    atomic.Int32
	startErr error
}

func (m *mockPoller) Start(context.Context) error {
	m.starts.Add(1)
	return m.startErr
}

func (m *mockPoller) Stop() error {
	m.stops.Add(1)
	return nil
}

func TestTrigger_FireIsIdempotent(t *testing.T) {
	tr := NewTrigger()
	select {
	case <-tr.Fired():
		t.Fatal("fired before Fire")
	default:
	}
	tr.Fire()
	tr.Fire()
	select {
	case <-tr.Fired():
	default:
		t.Fatal("not fired after Fire")
	}
}

func TestPollerService_WaitsForTrigger(t *testing.T) {
	p := &mockPoller{}
	tr := NewTrigger()
	svc := NewPollerService(p, tr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if p.starts.Load() != 0 {
		t.Fatal("poller started before the trigger fired")
	}

	tr.Fire()
	deadline := time.Now().Add(time.Second)
	for p.starts.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.starts.Load() != 1 {
		t.Fatalf("starts = %d, want 1", p.starts.Load())
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
	if p.stops.Load() != 1 {
		t.Errorf("stops = %d, want 1", p.stops.Load())
	}
}

func TestPollerService_CancelBeforeTrigger(t *testing.T) {
	p := &mockPoller{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewPollerService(p, NewTrigger()).Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if p.starts.Load() != 0 || p.stops.Load() != 0 {
		t.Error("poller touched although never triggered")
	}
}

func TestPollerService_StartError(t *testing.T) {
	p := &mockPoller{startErr: errors.New("poll tag is not configured")}
	err := NewPollerService(p, nil).Serve(context.Background())
	if !errors.Is(err, p.startErr) {
		t.Errorf("Serve() = %v, want wrapped start error", err)
	}
}

func TestPollerService_RestartsUnderSupervisor(t *testing.T) {
	p := &mockPoller{startErr: errors.New("transient")}
	tr := NewTrigger()
	tr.Fire()

	sup := suture.New("test", suture.Spec{FailureThreshold: 10, FailureBackoff: 5 * time.Millisecond})
	sup.Add(NewPollerService(p, tr))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = sup.Serve(ctx)

	if p.starts.Load() < 2 {
		t.Errorf("starts = %d, want restarts after failure", p.starts.Load())
	}
}
