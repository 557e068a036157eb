package wizard

import (
	"errors"
	"fmt"
	"time"
)

// State errors.
var (
	ErrUnknownStep   = errors.New("unknown step")
	ErrRecordMissing = errors.New("record type does not match step")
)

// State maps each step to the record it owns. Every write goes through
// Update so ownership of a field is always the step that owns the record.
type State struct {
	records map[StepID]Record
	extra   map[StepID]map[string]string
	dirty   bool
}

// NewState returns a state with empty records for every step.
func NewState() *State {
	return &State{
		records: map[StepID]Record{
			StepWelcome:  &WelcomeRecord{},
			StepIndustry: &IndustryRecord{},
			StepContact:  &ContactRecord{},
			StepBusiness: &BusinessRecord{},
			StepTasks:    &TasksRecord{},
			StepReview:   &ReviewRecord{},
			StepSchedule: &ScheduleRecord{},
		},
		extra: make(map[StepID]map[string]string),
	}
}

// Update applies fn to the record owned by step and marks the state dirty.
func (s *State) Update(step StepID, fn func(Record)) error {
	rec, ok := s.records[step]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	fn(rec)
	s.dirty = true
	return nil
}

// Edit is a typed Update for the step that owns R.
func Edit[R Record](s *State, fn func(R)) error {
	var zero R
	return s.Update(zero.Step(), func(rec Record) {
		if r, ok := rec.(R); ok {
			fn(r)
		}
	})
}

// SetExtra stores a field the typed records do not model.
func (s *State) SetExtra(step StepID, key, value string) error {
	if _, ok := s.records[step]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	m := s.extra[step]
	if m == nil {
		m = make(map[string]string)
		s.extra[step] = m
	}
	m[key] = value
	s.dirty = true
	return nil
}

// Extra returns a stored extra field.
func (s *State) Extra(step StepID, key string) string {
	return s.extra[step][key]
}

// Record returns the record for step, or nil for an unknown step.
func (s *State) Record(step StepID) Record {
	return s.records[step]
}

// Typed read accessors. Callers must not mutate the returned records;
// use Update or Edit instead.

func (s *State) Industry() *IndustryRecord { return s.records[StepIndustry].(*IndustryRecord) }
func (s *State) Contact() *ContactRecord   { return s.records[StepContact].(*ContactRecord) }
func (s *State) Business() *BusinessRecord { return s.records[StepBusiness].(*BusinessRecord) }
func (s *State) Tasks() *TasksRecord       { return s.records[StepTasks].(*TasksRecord) }
func (s *State) Review() *ReviewRecord     { return s.records[StepReview].(*ReviewRecord) }
func (s *State) Schedule() *ScheduleRecord { return s.records[StepSchedule].(*ScheduleRecord) }

// Preference returns the recorded automation preference.
func (s *State) Preference() AutomationPreference {
	return s.Business().Interest
}

// Dirty reports whether any record changed since the state was created or
// last marked clean.
func (s *State) Dirty() bool { return s.dirty }

// MarkClean clears the dirty flag.
func (s *State) MarkClean() { s.dirty = false }

// Valid reports whether step allows forward navigation. Review is valid
// only when every reachable earlier step is valid and the analysis request
// succeeded. There is no separate completion flag: a step is complete
// exactly when it is valid.
func (s *State) Valid(step StepID) bool {
	rec, ok := s.records[step]
	if !ok {
		return false
	}
	if step == StepReview && !s.ReadyForReview() {
		return false
	}
	return rec.Valid()
}

// Complete is an alias for Valid.
func (s *State) Complete(step StepID) bool {
	return s.Valid(step)
}

// ReadyForReview reports whether every step that leads to review is valid.
// The tasks step counts only when the prospect said they have tasks.
func (s *State) ReadyForReview() bool {
	for _, step := range []StepID{StepWelcome, StepIndustry, StepContact, StepBusiness} {
		if !s.records[step].Valid() {
			return false
		}
	}
	if s.Preference() == PreferenceNotInterested {
		return true
	}
	return s.records[StepTasks].Valid()
}

// Empty reports whether the prospect has entered nothing at all.
func (s *State) Empty() bool {
	c := s.Contact()
	b := s.Business()
	return s.Industry().Industry == "" &&
		c.Name == "" && c.Email == "" &&
		b.Description == "" && b.EmployeeCount == "" && b.Tools == "" &&
		len(b.PainPoints) == 0 && len(s.Tasks().Tasks) == 0
}

// Clone returns a deep copy that shares no memory with s.
func (s *State) Clone() *State {
	c := &State{
		records: make(map[StepID]Record, len(s.records)),
		extra:   make(map[StepID]map[string]string, len(s.extra)),
		dirty:   s.dirty,
	}
	for step, rec := range s.records {
		c.records[step] = rec.clone()
	}
	for step, m := range s.extra {
		cm := make(map[string]string, len(m))
		for k, v := range m {
			cm[k] = v
		}
		c.extra[step] = cm
	}
	return c
}

// Snapshot is the serialisable form of a State plus the active step.
type Snapshot struct {
	Current  StepID                       `msgpack:"current"`
	Industry IndustryRecord               `msgpack:"industry"`
	Contact  ContactRecord                `msgpack:"contact"`
	Business BusinessRecord               `msgpack:"business"`
	Tasks    TasksRecord                  `msgpack:"tasks"`
	Review   ReviewRecord                 `msgpack:"review"`
	Schedule ScheduleRecord               `msgpack:"schedule"`
	Extra    map[StepID]map[string]string `msgpack:"extra,omitempty"`
	SavedAt  time.Time                    `msgpack:"saved_at"`
}

// Snapshot captures the state with current as the active step.
func (s *State) Snapshot(current StepID, now time.Time) Snapshot {
	c := s.Clone()
	return Snapshot{
		Current:  current,
		Industry: *c.Industry(),
		Contact:  *c.Contact(),
		Business: *c.Business(),
		Tasks:    *c.Tasks(),
		Review:   *c.Review(),
		Schedule: *c.Schedule(),
		Extra:    c.extra,
		SavedAt:  now,
	}
}

// Restore rebuilds a State from a snapshot. The verification cooldown is
// set to cooldown and resumes from the snapshot's last send.
func Restore(snap Snapshot, cooldown time.Duration) *State {
	s := NewState()
	ind, contact, biz, tasks, review, sched := snap.Industry, snap.Contact, snap.Business, snap.Tasks, snap.Review, snap.Schedule
	contact.OTP.SetCooldown(cooldown)
	contact.OTP.Pending = false
	s.records[StepIndustry] = ind.clone()
	s.records[StepContact] = contact.clone()
	s.records[StepBusiness] = biz.clone()
	s.records[StepTasks] = tasks.clone()
	s.records[StepReview] = review.clone()
	s.records[StepSchedule] = sched.clone()
	for step, m := range snap.Extra {
		for k, v := range m {
			s.SetExtra(step, k, v)
		}
	}
	s.dirty = false
	return s
}
