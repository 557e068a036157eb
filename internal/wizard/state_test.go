package wizard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func TestState_UpdateUnknownStep(t *testing.T) {
	st := NewState()

	err := st.Update(StepCompleted, func(Record) {})
	if !errors.Is(err, ErrUnknownStep) {
		t.Errorf("expected ErrUnknownStep, got %v", err)
	}
	if st.Dirty() {
		t.Error("failed update should not mark the state dirty")
	}
}

func TestState_EditMarksDirty(t *testing.T) {
	st := NewState()
	Edit(st, func(r *IndustryRecord) { r.Industry = "LAW" })

	if !st.Dirty() {
		t.Error("expected dirty after edit")
	}
	if st.Industry().Label() != "Law" {
		t.Errorf("expected Law, got %q", st.Industry().Label())
	}

	st.MarkClean()
	if st.Dirty() {
		t.Error("expected clean")
	}
}

func TestState_CloneIsDeep(t *testing.T) {
	st := filledState(PreferenceInterested)
	st.SetExtra(StepBusiness, "website", "example.com")

	c := st.Clone()
	Edit(c, func(r *BusinessRecord) { r.TogglePainPoint("reporting") })
	Edit(c, func(r *TasksRecord) { r.SetTaskField(0, "title", "changed") })
	c.SetExtra(StepBusiness, "website", "changed.com")

	if st.Business().HasPainPoint("reporting") {
		t.Error("clone shares pain points")
	}
	if st.Tasks().Tasks[0].Title != "Intake" {
		t.Error("clone shares tasks")
	}
	if st.Extra(StepBusiness, "website") != "example.com" {
		t.Error("clone shares extra fields")
	}
}

func TestState_Empty(t *testing.T) {
	st := NewState()
	if !st.Empty() {
		t.Error("new state should be empty")
	}

	Edit(st, func(r *BusinessRecord) { r.TogglePainPoint("email") })
	if st.Empty() {
		t.Error("a selected pain point should make the state non-empty")
	}
}

func TestState_SnapshotRoundTrip(t *testing.T) {
	st := filledState(PreferenceInterested)
	Edit(st, func(r *ContactRecord) {
		r.OTP.SentAt = t0
		r.OTP.Pending = true
	})
	st.SetExtra(StepContact, "phone", "555-0100")

	raw, err := msgpack.Marshal(st.Snapshot(StepTasks, t0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored := Restore(snap, 10*time.Second)
	if snap.Current != StepTasks {
		t.Errorf("expected current tasks, got %s", snap.Current)
	}
	if restored.Dirty() {
		t.Error("restored state should be clean")
	}
	if !restored.ReadyForReview() {
		t.Error("restored state should keep every answer")
	}
	if restored.Extra(StepContact, "phone") != "555-0100" {
		t.Error("extra fields were lost")
	}

	otp := &restored.Contact().OTP
	if otp.Pending {
		t.Error("pending sends should not survive a restore")
	}
	if otp.Cooldown() != 10*time.Second {
		t.Errorf("expected restored cooldown, got %s", otp.Cooldown())
	}
}

func TestTasksRecord_Editing(t *testing.T) {
	var r TasksRecord
	for i := 0; i < MaxTasks; i++ {
		if !r.AddTask() {
			t.Fatalf("add %d failed", i)
		}
	}
	if r.AddTask() {
		t.Error("expected add to fail when full")
	}

	r.SetTaskField(1, "title", "Second")
	r.RemoveTask(0)
	if len(r.Tasks) != MaxTasks-1 || r.Tasks[0].Title != "Second" {
		t.Errorf("unexpected tasks after remove: %+v", r.Tasks)
	}

	if r.Valid() {
		t.Error("tasks without descriptions should not be valid")
	}
	r.SetTaskField(0, "description", "Do it")
	r.SetTaskField(0, "daily_hours", "abc")
	if r.Valid() {
		t.Error("non-numeric hours should not be valid")
	}
	if errs := r.FieldErrors(); errs.Get("daily_hours_0") == "" {
		t.Error("expected a daily hours field error")
	}
	r.SetTaskField(0, "daily_hours", " 1.5 ")
	if !r.Valid() {
		t.Errorf("expected valid tasks, errors: %v", r.FieldErrors())
	}
}

func TestContactRecord_FieldErrors(t *testing.T) {
	var c ContactRecord
	errs := c.FieldErrors()
	for _, f := range []string{"name", "email", "code"} {
		if errs.Get(f) == "" {
			t.Errorf("expected error for %s", f)
		}
	}

	c.Name = "Ada"
	c.Email = "ada@example.com"
	c.OTP.Requested = true
	c.Code = "12345"
	if msg := c.FieldErrors().Get("code"); !strings.Contains(msg, "6") {
		t.Errorf("expected a six digit hint, got %q", msg)
	}
}

func TestParsePreference(t *testing.T) {
	tests := map[string]AutomationPreference{
		"yes":   PreferenceInterested,
		" NO ":  PreferenceNotInterested,
		"":      PreferenceUnset,
		"maybe": PreferenceUnset,
	}
	for in, want := range tests {
		if got := ParsePreference(in); got != want {
			t.Errorf("ParsePreference(%q): expected %d, got %d", in, want, got)
		}
	}
}
