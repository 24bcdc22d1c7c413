// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/conventus/internal/ingest"
)

type fakeHTTPServer struct {
	listenErr error
	started   chan struct{}
	release   chan struct{}
	shutdowns atomic.Int64
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	close(f.started)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.release
	return errors.New("http: Server closed")
}

func (f *fakeHTTPServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	close(f.release)
	return nil
}

func TestHTTPService_GracefulShutdown(t *testing.T) {
	srv := newFakeHTTPServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}
	if srv.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times, want 1", srv.shutdowns.Load())
	}
}

func TestHTTPService_StartupFailure(t *testing.T) {
	srv := newFakeHTTPServer()
	srv.listenErr = errors.New("bind: address already in use")
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve() = %v, want wrapped listen error", err)
	}
}

type countingIngestor struct {
	runs atomic.Int64
	err  error
}

func (c *countingIngestor) Ingest(ctx context.Context, opts ingest.RunOptions) (ingest.RunResult, error) {
	c.runs.Add(1)
	return ingest.RunResult{EventsStored: 1}, c.err
}

func TestIngestScheduler_RunsImmediatelyThenOnTicks(t *testing.T) {
	ing := &countingIngestor{}
	svc := NewIngestScheduler(ing, 50*time.Millisecond, ingest.RunOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for ing.runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if got := ing.runs.Load(); got < 3 {
		t.Errorf("ran %d times, want at least 3 (startup + ticks)", got)
	}
}

func TestIngestScheduler_SurvivesRunFailures(t *testing.T) {
	ing := &countingIngestor{err: errors.New("all sources down")}
	svc := NewIngestScheduler(ing, 30*time.Millisecond, ingest.RunOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded after failures", err)
	}
	if ing.runs.Load() < 2 {
		t.Errorf("ran %d times, want the loop to continue past failures", ing.runs.Load())
	}
}

type fakeConsumer struct {
	calls atomic.Int64
	err   error
}

func (f *fakeConsumer) ConsumeIngestNotices(ctx context.Context, sub message.Subscriber) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestInvalidationService_BlocksUntilCancel(t *testing.T) {
	consumer := &fakeConsumer{}
	svc := NewInvalidationService(consumer, nil)

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
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return")
	}
	if consumer.calls.Load() != 1 {
		t.Errorf("consumer invoked %d times, want 1", consumer.calls.Load())
	}
}

func TestInvalidationService_SurfacesConsumerError(t *testing.T) {
	consumer := &fakeConsumer{err: errors.New("subscribe failed")}
	svc := NewInvalidationService(consumer, nil)

	if err := svc.Serve(context.Background()); err == nil {
		t.Error("Serve() should surface consumer failures for restart")
	}
}

type fakePurger struct {
	calls  atomic.Int64
	purged int64
	err    error
}

func (f *fakePurger) DeleteExpiredRecommendations(ctx context.Context, now time.Time) (int64, error) {
	f.calls.Add(1)
	return f.purged, f.err
}

func TestPurgeService_PurgesOnInterval(t *testing.T) {
	purger := &fakePurger{purged: 4}
	svc := NewPurgeService(purger, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v", err)
	}
	if purger.calls.Load() < 2 {
		t.Errorf("purged %d times, want at least 2", purger.calls.Load())
	}
}

func TestPurgeService_ContinuesPastErrors(t *testing.T) {
	purger := &fakePurger{err: errors.New("table locked")}
	svc := NewPurgeService(purger, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_ = svc.Serve(ctx)
	if purger.calls.Load() < 2 {
		t.Errorf("purged %d times, want the loop to continue past errors", purger.calls.Load())
	}
}
