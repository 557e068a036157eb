package wizard

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSubmitter_SingleFlight(t *testing.T) {
	var s Submitter

	gen, err := s.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Begin(); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("expected ErrSubmitInFlight, got %v", err)
	}
	if !s.InFlight() {
		t.Error("expected in flight")
	}

	o := s.Run(context.Background(), gen, func(context.Context) (any, error) {
		return "ok", nil
	})
	if o.Err != nil || o.Value != "ok" {
		t.Errorf("unexpected outcome: %+v", o)
	}
	if s.InFlight() {
		t.Error("slot should be released after run")
	}
	if _, err := s.Begin(); err != nil {
		t.Errorf("expected a new submission to be allowed, got %v", err)
	}
}

func TestSubmitter_ConcurrentSubmitCallsOnce(t *testing.T) {
	var s Submitter
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Submit(context.Background(), func(context.Context) (any, error) {
			calls.Add(1)
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	var rejected atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := s.Submit(context.Background(), func(context.Context) (any, error) {
				calls.Add(1)
				return nil, nil
			})
			if errors.Is(o.Err, ErrSubmitInFlight) {
				rejected.Add(1)
			}
		}()
	}

	// Give the rejected callers a chance to run before releasing.
	for rejected.Load() < 8 {
		runtime.Gosched()
	}
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestSubmitter_StaleOutcome(t *testing.T) {
	var s Submitter

	o := s.Submit(context.Background(), func(context.Context) (any, error) {
		s.Invalidate()
		return nil, errors.New("boom")
	})

	if s.Current(o) {
		t.Error("outcome started before Invalidate should be stale")
	}

	o = s.Submit(context.Background(), func(context.Context) (any, error) {
		return nil, nil
	})
	if !s.Current(o) {
		t.Error("fresh outcome should be current")
	}
}
