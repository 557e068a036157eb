package wizard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func strp(s string) *string   { return &s }
func fltp(f float64) *float64 { return &f }

func TestFormat_FullPayload(t *testing.T) {
	st := filledState(PreferenceInterested)
	Edit(st, func(r *TasksRecord) {
		r.Tasks = append(r.Tasks,
			Task{Title: "Untitled", Description: "  "},
			Task{Title: "Invoices", Description: "Send invoices", HourlyCost: "$25.5"},
		)
	})

	got := Format(st, t0)
	want := Payload{
		Metadata: Metadata{Timestamp: "2026-03-14T09:30:00Z"},
		ContactInfo: ContactInfo{
			Name:  strp("Ada Lovelace"),
			Email: strp("ada@example.com"),
			Code:  strp("123456"),
		},
		BusinessInfo: BusinessInfo{
			Industry:         strp("LAW"),
			Description:      strp("Boutique law firm"),
			EmployeeCount:    strp("11-50"),
			PainPoints:       []string{"Manual data entry", "Repetitive email handling"},
			Tools:            []string{"Clio", "Outlook"},
			HasSpecificTasks: true,
		},
		AutomationTasks: []TaskPayload{
			{Title: "Intake", Description: "Copy client details", HourlyCost: fltp(40), DailyHours: fltp(2)},
			{Title: "Invoices", Description: "Send invoices", HourlyCost: fltp(25.5)},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_OmitsTasksWhenNotInterested(t *testing.T) {
	st := filledState(PreferenceNotInterested)
	Edit(st, func(r *TasksRecord) {
		r.Tasks = []Task{{Title: "Left over", Description: "From before"}}
	})

	p := Format(st, t0)
	if p.BusinessInfo.HasSpecificTasks {
		t.Error("expected hasSpecificTasks to be false")
	}
	if p.AutomationTasks != nil {
		t.Errorf("expected no tasks, got %d", len(p.AutomationTasks))
	}

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["automationTasks"]; ok {
		t.Error("automationTasks key should be absent")
	}
}

func TestFormat_BlankFieldsAreNull(t *testing.T) {
	st := NewState()
	Edit(st, func(r *ContactRecord) { r.Name = "   " })

	raw, err := json.Marshal(Format(st, t0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m struct {
		ContactInfo  map[string]any `json:"contactInfo"`
		BusinessInfo map[string]any `json:"businessInfo"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, k := range []string{"name", "email", "code"} {
		v, ok := m.ContactInfo[k]
		if !ok || v != nil {
			t.Errorf("expected contactInfo.%s to be null, got %v", k, v)
		}
	}
	for _, k := range []string{"industry", "description", "employeeCount"} {
		v, ok := m.BusinessInfo[k]
		if !ok || v != nil {
			t.Errorf("expected businessInfo.%s to be null, got %v", k, v)
		}
	}
}

func TestFormat_IsPureAndIdempotent(t *testing.T) {
	st := filledState(PreferenceInterested)
	before := st.Clone()

	a := Format(st, t0)
	b := Format(st, t0.Add(time.Hour))

	ignoreTime := cmpopts.IgnoreFields(Metadata{}, "Timestamp")
	if diff := cmp.Diff(a, b, ignoreTime); diff != "" {
		t.Errorf("repeated format differs (-first +second):\n%s", diff)
	}
	if a.Metadata.Timestamp == b.Metadata.Timestamp {
		t.Error("expected the timestamp to follow now")
	}

	a.BusinessInfo.PainPoints[0] = "mutated"
	*a.ContactInfo.Name = "mutated"
	a.AutomationTasks[0].Title = "mutated"

	if st.Business().PainPoints[0] != before.Business().PainPoints[0] {
		t.Error("payload aliases pain points")
	}
	if st.Contact().Name != before.Contact().Name {
		t.Error("payload aliases contact name")
	}
	if st.Tasks().Tasks[0].Title != before.Tasks().Tasks[0].Title {
		t.Error("payload aliases tasks")
	}
}

func TestPrepare(t *testing.T) {
	if _, err := Prepare(NewState(), t0); err != ErrNothingToSubmit {
		t.Errorf("expected ErrNothingToSubmit, got %v", err)
	}

	st := filledState(PreferenceInterested)
	Edit(st, func(r *TasksRecord) { r.Tasks = nil })
	if _, err := Prepare(st, t0); err != ErrIncomplete {
		t.Errorf("expected ErrIncomplete, got %v", err)
	}

	p, err := Prepare(filledState(PreferenceNotInterested), t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ContactInfo.Email == nil || *p.ContactInfo.Email != "ada@example.com" {
		t.Errorf("unexpected email in payload: %v", p.ContactInfo.Email)
	}
}
