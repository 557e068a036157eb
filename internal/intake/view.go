package intake

import (
	"context"
	"html/template"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/gabrielmiguelok/intakewizard/internal/analysis"
	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
	"github.com/gabrielmiguelok/intakewizard/pkg/core"
	"github.com/gabrielmiguelok/intakewizard/pkg/forms"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

// Render implements core.Component.
func (w *Wizard) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, out io.Writer) error {
		return pageTemplate.ExecuteTemplate(out, "wizard", w.view())
	})
}

// view is the read-only model the templates see.
type view struct {
	w   *Wizard
	st  *wizard.State
	now time.Time
}

func (w *Wizard) view() *view {
	return &view{w: w, st: w.state(), now: w.now()}
}

type stepItem struct {
	Title   string
	Number  int
	Active  bool
	Done    bool
	Skipped bool
}

// Progress lists the indicator entries. Completed is not shown.
func (v *view) Progress() []stepItem {
	cur := v.w.ctrl.Current()
	skipTasks := v.st.Preference() == wizard.PreferenceNotInterested
	items := make([]stepItem, 0, len(wizard.Steps))
	for i, step := range wizard.Steps {
		items = append(items, stepItem{
			Title:   step.Title(),
			Number:  i + 1,
			Active:  step == cur,
			Done:    step < cur,
			Skipped: step == wizard.StepTasks && skipTasks,
		})
	}
	return items
}

func (v *view) Step() string             { return v.w.ctrl.Current().String() }
func (v *view) Title() string            { return v.w.ctrl.Current().Title() }
func (v *view) Notice() string           { return v.w.notice }
func (v *view) Failure() *failure        { return v.w.failure }
func (v *view) SupportEmail() string     { return v.w.opts.SupportEmail }
func (v *view) CanAdvance() bool         { return v.w.ctrl.CanAdvance() }
func (v *view) CanGoBack() bool          { return v.w.ctrl.CanGoBack() }
func (v *view) Pending(op string) bool   { return v.w.pending[op] }
func (v *view) Result() *analysis.Result { return v.w.result }

func (v *view) Industry() *wizard.IndustryRecord { return v.st.Industry() }
func (v *view) Contact() *wizard.ContactRecord   { return v.st.Contact() }
func (v *view) Business() *wizard.BusinessRecord { return v.st.Business() }
func (v *view) Tasks() []wizard.Task             { return v.st.Tasks().Tasks }
func (v *view) Submitted() bool                  { return v.st.Review().Submitted }
func (v *view) Scheduled() bool                  { return v.st.Schedule().Scheduled }

func (v *view) Industries() forms.Options     { return wizard.Industries }
func (v *view) EmployeeCounts() forms.Options { return wizard.EmployeeCounts }
func (v *view) PainPoints() forms.Options     { return wizard.PainPoints }
func (v *view) MaxTasks() int                 { return wizard.MaxTasks }
func (v *view) CanAddTask() bool              { return len(v.st.Tasks().Tasks) < wizard.MaxTasks }

func (v *view) Interested() bool    { return v.st.Preference() == wizard.PreferenceInterested }
func (v *view) NotInterested() bool { return v.st.Preference() == wizard.PreferenceNotInterested }

// Err returns the inline error for field once it was touched or next was
// pressed on the active step.
func (v *view) Err(field string) string {
	cur := v.w.ctrl.Current()
	if !v.w.touched[field] && !v.w.attempted[cur] {
		return ""
	}
	rec := v.st.Record(cur)
	if rec == nil {
		return ""
	}
	return rec.FieldErrors().Get(field)
}

// TaskErr is Err for a per-task field.
func (v *view) TaskErr(field string, i int) string {
	name := field + "_" + strconv.Itoa(i)
	if !v.w.touched["task."+strconv.Itoa(i)+"."+field] && !v.w.attempted[wizard.StepTasks] {
		return ""
	}
	return v.st.Tasks().FieldErrors().Get(name)
}

// CanSend reports whether the first code may be requested.
func (v *view) CanSend() bool {
	c := v.st.Contact()
	return forms.IsValidEmail(c.Email) && !c.OTP.Pending && !c.OTP.Verified && c.OTP.Remaining(v.now) == 0
}

// ResendIn is the cooldown left before a resend, zero when allowed.
func (v *view) ResendIn() time.Duration {
	return v.st.Contact().OTP.Remaining(v.now)
}

func (v *view) CanVerify() bool {
	c := v.st.Contact()
	return c.OTP.Requested && !c.OTP.Verified && forms.IsValidVerificationCode(c.Code) && !v.w.pending[opVerify]
}

// Savings is the total estimate, nil when it should not be shown.
func (v *view) Savings() *analysis.Savings {
	if v.w.result == nil {
		return nil
	}
	s, ok := v.w.result.TotalSavings()
	if !ok {
		return nil
	}
	return &s
}

// SchedulingURL is the widget URL with the prefill parameters.
func (v *view) SchedulingURL() string {
	if v.w.opts.SchedulingURL == "" {
		return ""
	}
	u, err := wizard.SchedulingURL(v.w.opts.SchedulingURL, v.st)
	if err != nil {
		v.w.logger.Warn("scheduling url", logging.Err(err))
		return ""
	}
	return u
}

// Summary is the answer recap shown on review.
func (v *view) Summary() string { return wizard.SchedulingSummary(v.st) }

// Safe sanitizes analysis text that may carry markup.
func (v *view) Safe(s string) template.HTML { return v.w.opts.Sanitizer.SafeHTML(s) }

func seconds(d time.Duration) string {
	n := int(math.Ceil(d.Seconds()))
	if n == 1 {
		return "1 second"
	}
	return strconv.Itoa(n) + " seconds"
}

var funcs = template.FuncMap{
	"seconds": seconds,
	"amount":  analysis.FormatAmount,
	"inc":     func(i int) int { return i + 1 },
}

var pageTemplate = template.Must(template.New("intake").Funcs(funcs).Parse(pageHTML))
