package wizard

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Submission errors.
var (
	ErrNothingToSubmit = errors.New("nothing to submit")
	ErrIncomplete      = errors.New("wizard has invalid steps")
	ErrSubmitInFlight  = errors.New("submission already in flight")
)

// Outcome is the result of one submission attempt.
type Outcome struct {
	Generation uint64
	Value      any
	Err        error
}

// Submitter guards the analysis request so that at most one is in flight
// per wizard. Results are tagged with the generation that started them;
// Invalidate bumps the generation so outcomes of abandoned attempts can be
// recognised as stale.
type Submitter struct {
	group    singleflight.Group
	inflight atomic.Bool
	gen      atomic.Uint64
}

// Begin claims the in-flight slot. It returns the generation to pass to Run,
// or ErrSubmitInFlight when a submission is already running.
func (s *Submitter) Begin() (uint64, error) {
	if !s.inflight.CompareAndSwap(false, true) {
		return 0, ErrSubmitInFlight
	}
	return s.gen.Load(), nil
}

// Run executes fn for a slot claimed with Begin and releases the slot.
// Concurrent Run calls for the same generation share one execution.
func (s *Submitter) Run(ctx context.Context, gen uint64, fn func(context.Context) (any, error)) Outcome {
	defer s.inflight.Store(false)
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return fn(ctx)
	})
	return Outcome{Generation: gen, Value: v, Err: err}
}

// Submit is Begin followed by Run.
func (s *Submitter) Submit(ctx context.Context, fn func(context.Context) (any, error)) Outcome {
	gen, err := s.Begin()
	if err != nil {
		return Outcome{Err: err}
	}
	return s.Run(ctx, gen, fn)
}

// InFlight reports whether a submission is running.
func (s *Submitter) InFlight() bool {
	return s.inflight.Load()
}

// Invalidate makes every outcome started before the call stale.
func (s *Submitter) Invalidate() {
	s.gen.Add(1)
}

// Current reports whether o belongs to the current generation.
func (s *Submitter) Current(o Outcome) bool {
	return o.Generation == s.gen.Load()
}

// Prepare validates st and formats its payload for submission.
func Prepare(st *State, now time.Time) (Payload, error) {
	if st.Empty() {
		return Payload{}, ErrNothingToSubmit
	}
	if !st.ReadyForReview() {
		return Payload{}, ErrIncomplete
	}
	return Format(st, now), nil
}
