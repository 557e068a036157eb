package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
)

const answers = `
industry: LOGISTICS
name: Ada Lovelace
email: ada@example.com
code: "123456"
description: Regional freight brokerage
employee_count: 11-50
pain_points: [data_entry, reporting]
tools: Excel, Gmail
has_specific_tasks: true
tasks:
  - title: Invoice entry
    description: Copy invoices from email into the ERP
    hourly_cost: "25"
    daily_hours: "3"
  - title: Half done
    description: "  "
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeAnswers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func ptr[T any](v T) *T { return &v }

func TestFormatCommand(t *testing.T) {
	path := writeAnswers(t, answers)
	out, err := execute(t, "format", "--state", path, "--at", "2026-03-01T10:00:00Z")
	if err != nil {
		t.Fatalf("format: %v\n%s", err, out)
	}

	var got wizard.Payload
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not a payload: %v\n%s", err, out)
	}
	want := wizard.Payload{
		Metadata: wizard.Metadata{Timestamp: "2026-03-01T10:00:00Z"},
		ContactInfo: wizard.ContactInfo{
			Name:  ptr("Ada Lovelace"),
			Email: ptr("ada@example.com"),
			Code:  ptr("123456"),
		},
		BusinessInfo: wizard.BusinessInfo{
			Industry:         ptr("LOGISTICS"),
			Description:      ptr("Regional freight brokerage"),
			EmployeeCount:    ptr("11-50"),
			PainPoints:       []string{"Manual data entry", "Reporting"},
			Tools:            []string{"Excel", "Gmail"},
			HasSpecificTasks: true,
		},
		AutomationTasks: []wizard.TaskPayload{{
			Title:       "Invoice entry",
			Description: "Copy invoices from email into the ERP",
			HourlyCost:  ptr(25.0),
			DailyHours:  ptr(3.0),
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatCommandRefusesIncomplete(t *testing.T) {
	path := writeAnswers(t, "industry: LOGISTICS\nname: Ada\n")

	if _, err := execute(t, "format", "--state", path); !errors.Is(err, wizard.ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}

	out, err := execute(t, "format", "--state", path, "--partial")
	if err != nil {
		t.Fatalf("format --partial: %v", err)
	}
	if strings.Contains(out, "automationTasks") {
		t.Errorf("partial payload should omit tasks:\n%s", out)
	}
}

func TestFormatCommandEmpty(t *testing.T) {
	path := writeAnswers(t, "{}\n")
	if _, err := execute(t, "format", "--state", path); !errors.Is(err, wizard.ErrNothingToSubmit) {
		t.Fatalf("err = %v, want ErrNothingToSubmit", err)
	}
}

func TestFormatCommandErrors(t *testing.T) {
	if _, err := execute(t, "format"); err == nil {
		t.Error("expected an error without --state")
	}
	if _, err := execute(t, "format", "--state", filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
	path := writeAnswers(t, answers)
	if _, err := execute(t, "format", "--state", path, "--at", "yesterday"); err == nil {
		t.Error("expected an error for a bad timestamp")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "intakewizard "+version {
		t.Errorf("version output = %q", out)
	}
}
