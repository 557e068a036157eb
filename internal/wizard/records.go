package wizard

import (
	"math"
	"strconv"
	"strings"

	"github.com/gabrielmiguelok/intakewizard/pkg/forms"
)

// Record is the typed per-step data owned by one wizard page.
type Record interface {
	// Step returns the page that owns the record.
	Step() StepID

	// Valid reports whether the record's own fields allow moving forward.
	Valid() bool

	// FieldErrors returns inline errors keyed by field name.
	FieldErrors() forms.Errors

	clone() Record
}

// Industries are the selectable industries. Value is the code sent to the
// analysis API, Label is what the prospect sees.
var Industries = forms.Options{
	{Value: "LAW", Label: "Law"},
	{Value: "HEALTHCARE", Label: "Healthcare"},
	{Value: "REAL_ESTATE", Label: "Real Estate"},
	{Value: "ACCOUNTING", Label: "Accounting"},
	{Value: "HR", Label: "Human Resources"},
	{Value: "INDUSTRIAL", Label: "Industrial"},
	{Value: "INSURANCE", Label: "Insurance"},
	{Value: "LOGISTICS", Label: "Logistics and Transportation"},
	{Value: "MANUFACTURING", Label: "Manufacturing"},
	{Value: "RESTAURANT", Label: "Restaurant"},
	{Value: "RETAIL", Label: "Retail and E-commerce"},
	{Value: "TRAVEL", Label: "Travel"},
}

// EmployeeCounts are the company size buckets.
var EmployeeCounts = forms.Options{
	{Value: "1-10", Label: "1-10"},
	{Value: "11-50", Label: "11-50"},
	{Value: "51-200", Label: "51-200"},
	{Value: "201-1000", Label: "201-1000"},
	{Value: "1000+", Label: "1000+"},
}

// PainPoints are the checkbox choices on the business step.
var PainPoints = forms.Options{
	{Value: "data_entry", Label: "Manual data entry"},
	{Value: "email", Label: "Repetitive email handling"},
	{Value: "scheduling", Label: "Scheduling and appointments"},
	{Value: "documents", Label: "Document processing"},
	{Value: "follow_ups", Label: "Customer follow-ups"},
	{Value: "reporting", Label: "Reporting"},
}

// MaxTasks bounds the task list editor.
const MaxTasks = 5

// WelcomeRecord has no fields; the welcome page is always valid.
type WelcomeRecord struct{}

func (r *WelcomeRecord) Step() StepID              { return StepWelcome }
func (r *WelcomeRecord) Valid() bool               { return true }
func (r *WelcomeRecord) FieldErrors() forms.Errors { return nil }
func (r *WelcomeRecord) clone() Record             { return &WelcomeRecord{} }

// IndustryRecord holds the selected industry code.
type IndustryRecord struct {
	Industry string `msgpack:"industry"`
}

func (r *IndustryRecord) Step() StepID { return StepIndustry }

func (r *IndustryRecord) Valid() bool {
	return Industries.Has(r.Industry)
}

func (r *IndustryRecord) FieldErrors() forms.Errors {
	var errs forms.Errors
	errs.Set("industry", forms.Check(r.Industry, forms.Required(), forms.OneOf("Select an industry", Industries)))
	return errs
}

// Label returns the industry's display name.
func (r *IndustryRecord) Label() string {
	return Industries.Label(r.Industry)
}

func (r *IndustryRecord) clone() Record {
	c := *r
	return &c
}

// ContactRecord holds the prospect's name and verified email.
type ContactRecord struct {
	Name  string       `msgpack:"name"`
	Email string       `msgpack:"email"`
	Code  string       `msgpack:"code"`
	OTP   Verification `msgpack:"otp"`
}

func (r *ContactRecord) Step() StepID { return StepContact }

func (r *ContactRecord) Valid() bool {
	return strings.TrimSpace(r.Name) != "" &&
		forms.IsValidEmail(r.Email) &&
		forms.IsValidVerificationCode(r.Code) &&
		r.OTP.Verified
}

func (r *ContactRecord) FieldErrors() forms.Errors {
	var errs forms.Errors
	errs.Set("name", forms.Check(r.Name, forms.Required(), forms.MaxLength(120)))
	errs.Set("email", forms.Check(r.Email, forms.Required(), forms.Email()))
	switch {
	case !r.OTP.Requested:
		errs.Set("code", "Request a verification code first")
	case !r.OTP.Verified:
		errs.Set("code", forms.Check(r.Code, forms.Required(), forms.VerificationCode()))
		if errs.Get("code") == "" {
			errs.Set("code", "Verify the code to continue")
		}
	}
	return errs
}

// SetEmail updates the email. Editing the address once a code was
// requested, or while the request is pending, discards the code and the
// verification sub-flow; the return value reports whether that happened.
// The resend cooldown keeps running across the edit.
func (r *ContactRecord) SetEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == r.Email {
		return false
	}
	r.Email = email
	if !r.OTP.Requested && !r.OTP.Pending && !r.OTP.Verified {
		return false
	}
	r.Code = ""
	r.OTP.Reset()
	return true
}

func (r *ContactRecord) clone() Record {
	c := *r
	c.OTP = r.OTP.copy()
	return &c
}

// AutomationPreference records whether the prospect has specific tasks
// in mind. The zero value means the question was not answered.
type AutomationPreference int

const (
	PreferenceUnset AutomationPreference = iota
	PreferenceInterested
	PreferenceNotInterested
)

func (p AutomationPreference) String() string {
	switch p {
	case PreferenceInterested:
		return "yes"
	case PreferenceNotInterested:
		return "no"
	default:
		return ""
	}
}

// ParsePreference maps form values "yes"/"no" to a preference.
func ParsePreference(s string) AutomationPreference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		return PreferenceInterested
	case "no", "false":
		return PreferenceNotInterested
	default:
		return PreferenceUnset
	}
}

// BusinessRecord is the business overview questionnaire.
type BusinessRecord struct {
	Description   string               `msgpack:"description"`
	EmployeeCount string               `msgpack:"employee_count"`
	PainPoints    []string             `msgpack:"pain_points"`
	Tools         string               `msgpack:"tools"`
	Interest      AutomationPreference `msgpack:"interest"`
}

func (r *BusinessRecord) Step() StepID { return StepBusiness }

func (r *BusinessRecord) Valid() bool {
	return strings.TrimSpace(r.Description) != "" &&
		EmployeeCounts.Has(r.EmployeeCount) &&
		r.Interest != PreferenceUnset
}

func (r *BusinessRecord) FieldErrors() forms.Errors {
	var errs forms.Errors
	errs.Set("description", forms.Check(r.Description, forms.Required(), forms.MaxLength(2000)))
	errs.Set("employee_count", forms.Check(r.EmployeeCount, forms.OneOf("Select a company size", EmployeeCounts)))
	if r.Interest == PreferenceUnset {
		errs.Set("interest", "Tell us whether you have specific tasks in mind")
	}
	return errs
}

// TogglePainPoint adds or removes a pain point, keeping option order.
func (r *BusinessRecord) TogglePainPoint(value string) {
	if !PainPoints.Has(value) {
		return
	}
	selected := make(map[string]bool, len(r.PainPoints)+1)
	for _, p := range r.PainPoints {
		selected[p] = true
	}
	selected[value] = !selected[value]

	r.PainPoints = r.PainPoints[:0]
	for _, opt := range PainPoints {
		if selected[opt.Value] {
			r.PainPoints = append(r.PainPoints, opt.Value)
		}
	}
}

// HasPainPoint reports whether value is selected.
func (r *BusinessRecord) HasPainPoint(value string) bool {
	for _, p := range r.PainPoints {
		if p == value {
			return true
		}
	}
	return false
}

// ToolList splits the free-text tool field on commas and newlines.
func (r *BusinessRecord) ToolList() []string {
	fields := strings.FieldsFunc(r.Tools, func(c rune) bool {
		return c == ',' || c == '\n' || c == ';'
	})
	tools := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tools = append(tools, f)
		}
	}
	return tools
}

func (r *BusinessRecord) clone() Record {
	c := *r
	c.PainPoints = append([]string(nil), r.PainPoints...)
	return &c
}

// Task is one automation candidate. Numeric fields keep the raw input.
type Task struct {
	Title       string `msgpack:"title" yaml:"title"`
	Description string `msgpack:"description" yaml:"description"`
	HourlyCost  string `msgpack:"hourly_cost" yaml:"hourly_cost"`
	DailyHours  string `msgpack:"daily_hours" yaml:"daily_hours"`
}

// Complete reports whether the task has a non-blank title and description.
func (t Task) Complete() bool {
	return strings.TrimSpace(t.Title) != "" && strings.TrimSpace(t.Description) != ""
}

// TasksRecord is the automation task list.
type TasksRecord struct {
	Tasks []Task `msgpack:"tasks"`
}

func (r *TasksRecord) Step() StepID { return StepTasks }

func (r *TasksRecord) Valid() bool {
	complete := false
	for _, t := range r.Tasks {
		if t.Complete() {
			complete = true
		}
		if !validAmount(t.HourlyCost) || !validAmount(t.DailyHours) {
			return false
		}
	}
	return complete
}

func (r *TasksRecord) FieldErrors() forms.Errors {
	var errs forms.Errors
	complete := false
	for i, t := range r.Tasks {
		if t.Complete() {
			complete = true
		}
		if !validAmount(t.HourlyCost) {
			errs.Add("hourly_cost_"+strconv.Itoa(i), "Enter a non-negative number")
		}
		if !validAmount(t.DailyHours) {
			errs.Add("daily_hours_"+strconv.Itoa(i), "Enter a non-negative number")
		}
	}
	if !complete {
		errs.Add("tasks", "Describe at least one task with a title and description")
	}
	return errs
}

// AddTask appends an empty task unless the list is full.
func (r *TasksRecord) AddTask() bool {
	if len(r.Tasks) >= MaxTasks {
		return false
	}
	r.Tasks = append(r.Tasks, Task{})
	return true
}

// RemoveTask deletes the task at i.
func (r *TasksRecord) RemoveTask(i int) {
	if i < 0 || i >= len(r.Tasks) {
		return
	}
	r.Tasks = append(r.Tasks[:i:i], r.Tasks[i+1:]...)
}

// SetTaskField updates one field of task i.
func (r *TasksRecord) SetTaskField(i int, field, value string) {
	if i < 0 || i >= len(r.Tasks) {
		return
	}
	t := &r.Tasks[i]
	switch field {
	case "title":
		t.Title = value
	case "description":
		t.Description = value
	case "hourly_cost":
		t.HourlyCost = strings.TrimSpace(value)
	case "daily_hours":
		t.DailyHours = strings.TrimSpace(value)
	}
}

func (r *TasksRecord) clone() Record {
	return &TasksRecord{Tasks: append([]Task(nil), r.Tasks...)}
}

// ReviewRecord tracks whether the analysis request succeeded.
type ReviewRecord struct {
	Submitted bool `msgpack:"submitted"`
}

func (r *ReviewRecord) Step() StepID              { return StepReview }
func (r *ReviewRecord) Valid() bool               { return r.Submitted }
func (r *ReviewRecord) FieldErrors() forms.Errors { return nil }

func (r *ReviewRecord) clone() Record {
	c := *r
	return &c
}

// ScheduleRecord is set when the scheduling widget confirms a booking.
type ScheduleRecord struct {
	Scheduled bool `msgpack:"scheduled"`
}

func (r *ScheduleRecord) Step() StepID              { return StepSchedule }
func (r *ScheduleRecord) Valid() bool               { return r.Scheduled }
func (r *ScheduleRecord) FieldErrors() forms.Errors { return nil }

func (r *ScheduleRecord) clone() Record {
	c := *r
	return &c
}

// validAmount accepts blank input or a non-negative number.
func validAmount(s string) bool {
	if s == "" {
		return true
	}
	_, ok := parseAmount(s)
	return ok
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
