package wizard

import "errors"

// Navigation errors.
var (
	ErrStepInvalid = errors.New("current step is not valid")
	ErrCompleted   = errors.New("wizard is completed")
)

// ResolveNext returns the step after current. From the business step the
// tasks step is skipped only when the prospect explicitly said they have
// no specific tasks; an unanswered preference never skips.
func ResolveNext(current StepID, st *State) StepID {
	switch {
	case current >= StepCompleted:
		return StepCompleted
	case current < StepWelcome:
		return StepWelcome
	case current == StepBusiness && st.Preference() == PreferenceNotInterested:
		return StepReview
	default:
		return current + 1
	}
}

// ResolvePrev is the symmetric counterpart of ResolveNext. Welcome has no
// previous step.
func ResolvePrev(current StepID, st *State) StepID {
	switch {
	case current <= StepWelcome:
		return StepWelcome
	case current > StepCompleted:
		return StepSchedule
	case current == StepReview && st.Preference() == PreferenceNotInterested:
		return StepBusiness
	default:
		return current - 1
	}
}

// Controller owns the active step. It reads record validity but never
// writes step fields.
type Controller struct {
	state   *State
	current StepID
}

// NewController starts at the welcome step.
func NewController(st *State) *Controller {
	if st == nil {
		st = NewState()
	}
	return &Controller{state: st, current: StepWelcome}
}

// Current returns the active step.
func (c *Controller) Current() StepID { return c.current }

// State returns the wizard state.
func (c *Controller) State() *State { return c.state }

// CanAdvance reports whether Next would move.
func (c *Controller) CanAdvance() bool {
	return c.current < StepCompleted && c.state.Valid(c.current)
}

// CanGoBack reports whether Back would move.
func (c *Controller) CanGoBack() bool {
	return c.current > StepWelcome && c.current < StepCompleted
}

// Next moves forward when the active step is valid. The active step is
// unchanged on error.
func (c *Controller) Next() (StepID, error) {
	if c.current >= StepCompleted {
		return c.current, ErrCompleted
	}
	if !c.state.Valid(c.current) {
		return c.current, ErrStepInvalid
	}
	c.current = ResolveNext(c.current, c.state)
	return c.current, nil
}

// Back moves to the previous step regardless of validity. It does nothing
// on the welcome step and once completed.
func (c *Controller) Back() StepID {
	if c.current < StepCompleted {
		c.current = ResolvePrev(c.current, c.state)
	}
	return c.current
}

// Reset clears every record and returns to the welcome step.
func (c *Controller) Reset() {
	c.state = NewState()
	c.current = StepWelcome
}

// Resume jumps to step, typically after restoring a snapshot. Steps that
// are not reachable with the current answers fall back to the first step
// that is not yet valid.
func (c *Controller) Resume(st *State, step StepID) {
	c.state = st
	c.current = StepWelcome
	for c.current < step && c.current < StepCompleted && c.state.Valid(c.current) {
		c.current = ResolveNext(c.current, c.state)
	}
}
