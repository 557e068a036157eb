package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gabrielmiguelok/intakewizard/internal/analysis"
	"github.com/gabrielmiguelok/intakewizard/internal/otp"
	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
	"github.com/gabrielmiguelok/intakewizard/pkg/audit"
	"github.com/gabrielmiguelok/intakewizard/pkg/core"
	"github.com/gabrielmiguelok/intakewizard/pkg/router"
	"github.com/gabrielmiguelok/intakewizard/pkg/state"
	lvtest "github.com/gabrielmiguelok/intakewizard/pkg/testing"
)

const await = 2 * time.Second

const analysisResponse = `{
  "business_info": {"industry": "Law", "employee_count": "11-50", "description": "Small firm"},
  "custom_tasks_analysis": [],
  "pain_points_analysis": [
    {"automation_suggestion": "<script>alert(1)</script><b>Route email automatically</b>", "case_study": {"link": "https://cases.example/email"}}
  ]
}`

// services fakes the OTP provider and the analysis API on one server.
type services struct {
	mu       sync.Mutex
	sends    int
	verifies int
	submits  int

	failSubmit int
	gate       chan struct{}
}

func (s *services) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	switch r.URL.Path {
	case "/send", "/resend":
		s.sends++
	case "/verify":
		s.verifies++
	case "/submit":
		s.submits++
	}
	fail := r.URL.Path == "/submit" && s.failSubmit > 0
	if fail {
		s.failSubmit--
	}
	gate := s.gate
	s.mu.Unlock()

	switch r.URL.Path {
	case "/send":
		json.NewEncoder(w).Encode(map[string]string{"state": "st-1"})
	case "/resend":
		json.NewEncoder(w).Encode(map[string]string{"state": "st-2"})
	case "/verify":
		if body["code"] != "123456" {
			http.Error(w, "invalid code", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"verified": true})
	case "/submit":
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(analysisResponse))
	default:
		http.NotFound(w, r)
	}
}

func (s *services) counts() (sends, verifies, submits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends, s.verifies, s.submits
}

type fixture struct {
	svc   *services
	clock *lvtest.ManualClock
	opts  Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	svc := &services{}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	otpClient, err := otp.NewClient(srv.URL, "", nil)
	if err != nil {
		t.Fatalf("otp client: %v", err)
	}
	analysisClient, err := analysis.NewClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("analysis client: %v", err)
	}

	clock := lvtest.NewManualClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return &fixture{
		svc:   svc,
		clock: clock,
		opts: Options{
			OTP:           otpClient,
			Analysis:      analysisClient,
			Now:           clock.Now,
			SupportEmail:  "help@example.com",
			SchedulingURL: "https://schedule.example/intro",
		},
	}
}

func (f *fixture) mount(t *testing.T, opts ...lvtest.MountOption) (*lvtest.LiveViewTest, *Wizard) {
	t.Helper()
	comp := New(f.opts)().(*Wizard)
	return lvtest.Mount(t, comp, opts...), comp
}

// verifyContact fills the contact step and completes the OTP exchange.
func verifyContact(t *testing.T, lv *lvtest.LiveViewTest) {
	t.Helper()
	lv.Change("field", "name", "Ada Lovelace").
		Change("field", "email", "ada@example.com").
		Click("send_code").
		AwaitInfo(await).
		AssertText("We sent a 6-digit code to ada@example.com")
	lv.Change("field", "code", "123456").
		Click("verify_code").
		AwaitInfo(await).
		AssertText("Email verified")
}

func fillBusiness(lv *lvtest.LiveViewTest, interest string) {
	lv.Change("field", "description", "Family law practice").
		Change("field", "employee_count", "11-50").
		Click("toggle_pain_point", lvtest.WithValue("point", "email")).
		Click("set_interest", lvtest.WithValue("interest", interest))
}

func TestWizard_FullFlow(t *testing.T) {
	f := newFixture(t)
	lv, w := f.mount(t)

	lv.AssertText("Discover which parts of your business")
	lv.Click("next")
	if w.Current() != wizard.StepIndustry {
		t.Fatalf("expected industry step, got %s", w.Current())
	}
	lv.HTML().Disabled("next")

	lv.Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	if w.Current() != wizard.StepContact {
		t.Fatalf("expected contact step, got %s", w.Current())
	}

	verifyContact(t, lv)
	lv.Click("next")

	fillBusiness(lv, "no")
	lv.Click("next")
	if w.Current() != wizard.StepReview {
		t.Fatalf("interest=no should skip tasks, got %s", w.Current())
	}
	lv.AssertText("=== Contact Information ===")

	lv.Click("submit").Click("submit")
	lv.HTML().Disabled("submit")
	lv.AwaitInfo(await)

	if _, _, submits := f.svc.counts(); submits != 1 {
		t.Errorf("expected one analysis request, got %d", submits)
	}
	lv.AssertText("Automation Opportunities").
		AssertText("<b>Route email automatically</b>").
		AssertNoText("<script>")

	lv.Click("next")
	if w.Current() != wizard.StepSchedule {
		t.Fatalf("expected schedule step, got %s", w.Current())
	}
	lv.HTML().HasID("scheduler").Disabled("next")
	lv.AssertText("https://schedule.example/intro?")

	lv.Click("scheduled").AssertText("Meeting Scheduled Successfully!")
	lv.HTML().Enabled("next")
	lv.Click("next")
	if w.Current() != wizard.StepCompleted {
		t.Fatalf("expected completed, got %s", w.Current())
	}

	lv.Click("reset")
	if w.Current() != wizard.StepWelcome || !w.State().Empty() {
		t.Error("reset should clear the wizard")
	}
}

func TestWizard_NextRefusedWhileInvalid(t *testing.T) {
	f := newFixture(t)
	lv, w := f.mount(t)

	lv.Click("next").Click("next")
	if w.Current() != wizard.StepIndustry {
		t.Fatalf("expected to stay on industry, got %s", w.Current())
	}
	lv.AssertText("This field is required")

	lv.Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	if w.Current() != wizard.StepContact {
		t.Errorf("expected contact once valid, got %s", w.Current())
	}
}

func TestWizard_TasksStep(t *testing.T) {
	f := newFixture(t)
	lv, w := f.mount(t)

	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "RETAIL")).Click("next")
	verifyContact(t, lv)
	lv.Click("next")
	fillBusiness(lv, "yes")
	lv.Click("next")
	if w.Current() != wizard.StepTasks {
		t.Fatalf("expected tasks step, got %s", w.Current())
	}

	for i := 0; i < wizard.MaxTasks; i++ {
		lv.Click("add_task")
	}
	lv.HTML().Disabled("add-task")
	lv.Click("remove_task", lvtest.WithValue("index", "4"))
	lv.HTML().Enabled("add-task")

	lv.Change("field", "task.0.title", "Invoices").
		Change("field", "task.0.hourly_cost", "-3")
	lv.AssertText("Enter a non-negative number")
	lv.HTML().Disabled("next")

	lv.Change("field", "task.0.description", "Type invoices into the ledger").
		Change("field", "task.0.hourly_cost", "25")
	lv.Click("next")
	if w.Current() != wizard.StepReview {
		t.Fatalf("expected review, got %s", w.Current())
	}
	lv.AssertText("Task 1: Invoices")

	lv.Click("back")
	if w.Current() != wizard.StepTasks {
		t.Errorf("back from review should return to tasks, got %s", w.Current())
	}
}

func TestWizard_ResendCooldown(t *testing.T) {
	f := newFixture(t)
	lv, w := f.mount(t)

	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	lv.Change("field", "email", "ada@example.com").Click("send_code").AwaitInfo(await)
	lv.HTML().Disabled("resend-code")
	lv.AssertText("Resend code in 30 seconds")

	f.clock.Advance(10 * time.Second)
	lv.Click("resend_code")
	lv.AssertText("Please wait 20 seconds")
	if sends, _, _ := f.svc.counts(); sends != 1 {
		t.Errorf("resend during cooldown must not reach the provider, got %d sends", sends)
	}

	f.clock.Advance(21 * time.Second)
	lv.Click("resend_code").AwaitInfo(await)
	if sends, _, _ := f.svc.counts(); sends != 2 {
		t.Errorf("expected resend after cooldown, got %d sends", sends)
	}
	if got := w.State().Contact().OTP.StateID; got != "st-2" {
		t.Errorf("expected rotated state, got %q", got)
	}
}

func TestWizard_RejectedCode(t *testing.T) {
	f := newFixture(t)
	lv, w := f.mount(t)

	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	lv.Change("field", "name", "Ada").
		Change("field", "email", "ada@example.com").
		Click("send_code").AwaitInfo(await)
	lv.Change("field", "code", "654321").Click("verify_code").AwaitInfo(await)

	lv.AssertText("That code is not valid")
	lv.AssertNoText("Something went wrong")
	if w.State().Contact().OTP.Verified {
		t.Error("rejected code must not verify")
	}
}

type auditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *auditRecorder) Log(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *auditRecorder) Close() error { return nil }

func (r *auditRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestWizard_AuditTrail(t *testing.T) {
	f := newFixture(t)
	rec := &auditRecorder{}
	f.opts.Audit = rec
	lv, _ := f.mount(t)

	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	lv.Change("field", "name", "Ada").
		Change("field", "email", "ada@example.com").
		Click("send_code").AwaitInfo(await)
	lv.Change("field", "code", "654321").Click("verify_code").AwaitInfo(await)
	lv.Change("field", "code", "123456").Click("verify_code").AwaitInfo(await)
	lv.Click("next")
	fillBusiness(lv, "no")
	lv.Click("next").Click("submit").AwaitInfo(await)

	want := []string{
		audit.EventCodeRequested,
		audit.EventCodeRejected,
		audit.EventEmailVerified,
		audit.EventSubmissionSent,
	}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Fatalf("audit trail (-want +got):\n%s", diff)
	}
	subject := audit.Subject("ada@example.com")
	for _, e := range rec.events {
		if e.Subject != subject {
			t.Errorf("%s: subject = %q, want %q", e.Type, e.Subject, subject)
		}
	}
}

func TestWizard_EmailEditResetsVerification(t *testing.T) {
	f := newFixture(t)
	lv, w := f.mount(t)

	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	verifyContact(t, lv)

	lv.Change("field", "email", "grace@example.com")
	c := w.State().Contact()
	if c.OTP.Verified || c.OTP.Requested || c.Code != "" {
		t.Errorf("expected verification to be cleared, got %+v", c.OTP)
	}
	lv.HTML().Disabled("send-code").Disabled("next")
	lv.AssertText("Send code in 30 seconds")

	lv.Click("send_code").AssertText("Please wait 30 seconds")
	if sends, _, _ := f.svc.counts(); sends != 1 {
		t.Errorf("send inside the cooldown must not reach the provider, got %d sends", sends)
	}

	f.clock.Advance(31 * time.Second)
	lv.SendInfo(cooldownElapsed{})
	lv.HTML().Enabled("send-code")
	lv.Click("send_code").AwaitInfo(await)
	if sends, _, _ := f.svc.counts(); sends != 2 {
		t.Errorf("expected a send to the new address after the cooldown, got %d sends", sends)
	}
}

func TestWizard_ResetKeepsCooldown(t *testing.T) {
	f := newFixture(t)
	lv, _ := f.mount(t)

	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	lv.Change("field", "email", "ada@example.com").Click("send_code").AwaitInfo(await)

	lv.Click("reset")
	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	lv.Change("field", "email", "ada@example.com").Click("send_code")
	lv.AssertText("Please wait 30 seconds")
	if sends, _, _ := f.svc.counts(); sends != 1 {
		t.Errorf("starting over must not skip the cooldown, got %d sends", sends)
	}
}

func TestWizard_StaleResultsDropped(t *testing.T) {
	t.Run("email edited while sending", func(t *testing.T) {
		f := newFixture(t)
		lv, w := f.mount(t)

		lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
		lv.Change("field", "email", "ada@example.com").Click("send_code")
		lv.Change("field", "email", "grace@example.com")
		lv.AwaitInfo(await)

		if c := w.State().Contact(); c.OTP.Requested || c.OTP.Pending {
			t.Errorf("result for the old address should be ignored, got %+v", c.OTP)
		}
	})

	t.Run("reset while submitting", func(t *testing.T) {
		f := newFixture(t)
		f.svc.gate = make(chan struct{})
		lv, w := f.mount(t)

		lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
		verifyContact(t, lv)
		lv.Click("next")
		fillBusiness(lv, "no")
		lv.Click("next").Click("submit").Click("reset")
		close(f.svc.gate)
		lv.AwaitInfo(await)

		if w.Current() != wizard.StepWelcome || w.State().Review().Submitted {
			t.Error("analysis for a discarded run should be ignored")
		}
		lv.AssertNoText("Automation Opportunities")
	})
}

func TestWizard_SubmitFailureAndRetry(t *testing.T) {
	f := newFixture(t)
	f.svc.failSubmit = 1
	lv, w := f.mount(t)

	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "LAW")).Click("next")
	verifyContact(t, lv)
	lv.Click("next")
	fillBusiness(lv, "no")
	lv.Click("next").Click("submit").AwaitInfo(await)

	lv.AssertText("Something went wrong").AssertText("mailto:")
	lv.HTML().HasID("retry")
	if w.State().Review().Submitted {
		t.Fatal("failed submission must leave the state unchanged")
	}

	lv.Click("retry").AwaitInfo(await)
	lv.AssertNoText("Something went wrong").AssertText("Automation Opportunities")
	if _, _, submits := f.svc.counts(); submits != 2 {
		t.Errorf("expected two analysis requests, got %d", submits)
	}
}

func TestWizard_ResumesFromSnapshot(t *testing.T) {
	f := newFixture(t)
	store := state.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	f.opts.Snapshots = state.NewSessions[wizard.Snapshot](store)
	session := lvtest.WithSession(core.Session{router.SessionIDKey: "visitor-1"})

	lv, _ := f.mount(t, session)
	lv.Click("next").Click("select_industry", lvtest.WithValue("industry", "HR")).Click("next")

	lv2, w2 := f.mount(t, session)
	if w2.Current() != wizard.StepContact {
		t.Fatalf("expected to resume on contact, got %s", w2.Current())
	}
	if got := w2.State().Industry().Industry; got != "HR" {
		t.Errorf("expected restored industry, got %q", got)
	}
	lv2.Click("reset")

	_, w3 := f.mount(t, session)
	if w3.Current() != wizard.StepWelcome {
		t.Errorf("reset should forget the snapshot, got %s", w3.Current())
	}
}

func TestWizard_UnknownEvent(t *testing.T) {
	f := newFixture(t)
	lv, _ := f.mount(t)

	if err := lv.Push("explode", nil); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestLayout(t *testing.T) {
	content := core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div data-live-view="intake">hi</div>`)
		return err
	})

	var buf bytes.Buffer
	if err := Layout("Intake")(context.Background(), &buf, content); err != nil {
		t.Fatalf("layout: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"<title>Intake</title>",
		`<div data-live-view="intake">hi</div>`,
		`src="/_live/intake.js"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in layout", want)
		}
	}
}
