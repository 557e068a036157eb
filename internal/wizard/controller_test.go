package wizard

import (
	"errors"
	"testing"
)

func TestResolveNext_SkipsTasksOnlyWhenNotInterested(t *testing.T) {
	tests := []struct {
		name string
		pref AutomationPreference
		want StepID
	}{
		{"interested", PreferenceInterested, StepTasks},
		{"not interested", PreferenceNotInterested, StepReview},
		{"unset", PreferenceUnset, StepTasks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewState()
			Edit(st, func(r *BusinessRecord) { r.Interest = tt.pref })

			if got := ResolveNext(StepBusiness, st); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolvePrev_MirrorsSkip(t *testing.T) {
	st := NewState()
	if got := ResolvePrev(StepReview, st); got != StepTasks {
		t.Errorf("expected tasks, got %s", got)
	}

	Edit(st, func(r *BusinessRecord) { r.Interest = PreferenceNotInterested })
	if got := ResolvePrev(StepReview, st); got != StepBusiness {
		t.Errorf("expected business, got %s", got)
	}

	if got := ResolvePrev(StepWelcome, st); got != StepWelcome {
		t.Errorf("expected welcome to stay, got %s", got)
	}
}

func TestController_NextRequiresValidStep(t *testing.T) {
	c := NewController(nil)

	if step, err := c.Next(); err != nil || step != StepIndustry {
		t.Fatalf("welcome should always advance, got %s, %v", step, err)
	}

	step, err := c.Next()
	if !errors.Is(err, ErrStepInvalid) {
		t.Errorf("expected ErrStepInvalid, got %v", err)
	}
	if step != StepIndustry || c.Current() != StepIndustry {
		t.Errorf("expected to stay on industry, got %s", c.Current())
	}

	Edit(c.State(), func(r *IndustryRecord) { r.Industry = "NOT_A_CODE" })
	if c.CanAdvance() {
		t.Error("unknown industry code should not be valid")
	}

	Edit(c.State(), func(r *IndustryRecord) { r.Industry = "RETAIL" })
	if step, err := c.Next(); err != nil || step != StepContact {
		t.Errorf("expected contact, got %s, %v", step, err)
	}
}

func TestController_WalkWithoutTasks(t *testing.T) {
	c := NewController(filledState(PreferenceNotInterested))

	want := []StepID{StepIndustry, StepContact, StepBusiness, StepReview}
	for _, w := range want {
		step, err := c.Next()
		if err != nil {
			t.Fatalf("unexpected error advancing to %s: %v", w, err)
		}
		if step != w {
			t.Fatalf("expected %s, got %s", w, step)
		}
	}

	// Review needs a successful submission.
	if _, err := c.Next(); !errors.Is(err, ErrStepInvalid) {
		t.Errorf("expected ErrStepInvalid on review, got %v", err)
	}

	if got := c.Back(); got != StepBusiness {
		t.Errorf("expected back to business, got %s", got)
	}
}

func TestController_ReviewBlockedByInvalidTasks(t *testing.T) {
	st := filledState(PreferenceInterested)
	Edit(st, func(r *ReviewRecord) { r.Submitted = true })
	if !st.Valid(StepReview) {
		t.Fatal("review should be valid with complete tasks")
	}

	Edit(st, func(r *TasksRecord) { r.SetTaskField(0, "hourly_cost", "-3") })
	if st.Valid(StepReview) {
		t.Error("review should not be valid when tasks are invalid")
	}

	// Declining tasks makes the tasks page irrelevant again.
	Edit(st, func(r *BusinessRecord) { r.Interest = PreferenceNotInterested })
	if !st.Valid(StepReview) {
		t.Error("review should ignore tasks when the prospect has none")
	}
}

func TestController_BackIsNoopAtEnds(t *testing.T) {
	c := NewController(nil)
	if got := c.Back(); got != StepWelcome {
		t.Errorf("expected welcome, got %s", got)
	}
	if c.CanGoBack() {
		t.Error("welcome should not allow back")
	}

	st := filledState(PreferenceNotInterested)
	Edit(st, func(r *ReviewRecord) { r.Submitted = true })
	Edit(st, func(r *ScheduleRecord) { r.Scheduled = true })
	c = NewController(st)
	for c.Current() != StepCompleted {
		if _, err := c.Next(); err != nil {
			t.Fatalf("unexpected error at %s: %v", c.Current(), err)
		}
	}

	if got := c.Back(); got != StepCompleted {
		t.Errorf("completed should be terminal, got %s", got)
	}
	if _, err := c.Next(); !errors.Is(err, ErrCompleted) {
		t.Errorf("expected ErrCompleted, got %v", err)
	}

	c.Reset()
	if c.Current() != StepWelcome || !c.State().Empty() {
		t.Error("reset should return to an empty welcome step")
	}
}

func TestController_Resume(t *testing.T) {
	st := filledState(PreferenceInterested)
	Edit(st, func(r *TasksRecord) { r.Tasks = nil })

	c := NewController(nil)
	c.Resume(st, StepReview)

	if c.Current() != StepTasks {
		t.Errorf("expected resume to stop at the first invalid step, got %s", c.Current())
	}
}
