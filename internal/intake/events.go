package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

// ErrUnknownEvent is returned for events the wizard does not bind.
var ErrUnknownEvent = errors.New("unknown event")

func (w *Wizard) dispatch(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "next":
		w.next()
	case "back":
		w.back()
	case "reset":
		w.reset(ctx)
	case "field":
		w.setField(str(payload, "name"), str(payload, "value"))
	case "select_industry":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.IndustryRecord) { r.Industry = str(payload, "industry") })
		})
		w.touched["industry"] = true
	case "toggle_pain_point":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.BusinessRecord) { r.TogglePainPoint(str(payload, "point")) })
		})
	case "set_interest":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.BusinessRecord) { r.Interest = wizard.ParsePreference(str(payload, "interest")) })
		})
		w.touched["interest"] = true
	case "add_task":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.TasksRecord) { r.AddTask() })
		})
	case "remove_task":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.TasksRecord) { r.RemoveTask(index(payload, "index")) })
		})
	case "send_code":
		w.sendCode()
	case "resend_code":
		w.resendCode()
	case "verify_code":
		w.verifyCode()
	case "submit":
		w.submit()
	case "retry":
		w.retry()
	case "dismiss":
		w.failure = nil
	case "scheduled":
		w.markScheduled()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
	return nil
}

func (w *Wizard) next() {
	from := w.ctrl.Current()
	if _, err := w.ctrl.Next(); err != nil {
		w.attempted[from] = true
		w.logger.Debug("next refused", logging.String("step", from.String()), logging.Err(err))
		return
	}
	w.notice = ""
}

func (w *Wizard) back() {
	if w.ctrl.Current() == wizard.StepCompleted {
		return
	}
	w.ctrl.Back()
	w.notice = ""
}

// reset discards every answer, drops in-flight results and forgets the
// saved snapshot.
func (w *Wizard) reset(ctx context.Context) {
	w.gen++
	w.submitter.Invalidate()
	w.stopCooldownTimer()

	lastSend := w.state().Contact().OTP.SentAt
	w.ctrl.Reset()
	st := w.state()
	wizard.Edit(st, func(r *wizard.ContactRecord) {
		r.OTP.SetCooldown(w.opts.ResendCooldown)
		r.OTP.SentAt = lastSend
	})
	st.MarkClean()

	w.result = nil
	w.failure = nil
	w.notice = ""
	clear(w.pending)
	clear(w.touched)
	clear(w.attempted)

	w.forget(ctx)
	w.saved = wizard.StepWelcome
	w.startCooldownTimer(st.Contact().OTP.Remaining(w.now()))
	w.logger.Info("wizard reset")
}

// edit applies fn and invalidates an analysis that no longer matches the
// answers.
func (w *Wizard) edit(fn func(st *wizard.State)) {
	fn(w.state())
	w.invalidateSubmission()
}

func (w *Wizard) invalidateSubmission() {
	if !w.state().Review().Submitted && !w.pending[opSubmit] {
		return
	}
	w.submitter.Invalidate()
	delete(w.pending, opSubmit)
	w.result = nil
	wizard.Edit(w.state(), func(r *wizard.ReviewRecord) { r.Submitted = false })
}

// setField routes an lv-change to the record owning the input. Task inputs
// are named task.<index>.<field>.
func (w *Wizard) setField(name, value string) {
	w.touched[name] = true

	switch name {
	case "name":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.ContactRecord) { r.Name = value })
		})
	case "email":
		var reset bool
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.ContactRecord) { reset = r.SetEmail(value) })
		})
		if reset {
			w.startCooldownTimer(w.state().Contact().OTP.Remaining(w.now()))
			delete(w.pending, opSend)
			delete(w.pending, opVerify)
			delete(w.touched, "code")
			w.notice = ""
			if w.failure != nil && w.failure.op != opSubmit {
				w.failure = nil
			}
		}
	case "code":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.ContactRecord) { r.Code = strings.TrimSpace(value) })
		})
		w.notice = ""
	case "description":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.BusinessRecord) { r.Description = value })
		})
	case "employee_count":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.BusinessRecord) { r.EmployeeCount = value })
		})
	case "tools":
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.BusinessRecord) { r.Tools = value })
		})
	default:
		rest, ok := strings.CutPrefix(name, "task.")
		if !ok {
			w.state().SetExtra(w.ctrl.Current(), name, value)
			return
		}
		idx, field, ok := strings.Cut(rest, ".")
		if !ok {
			return
		}
		i, err := strconv.Atoi(idx)
		if err != nil {
			return
		}
		w.edit(func(st *wizard.State) {
			wizard.Edit(st, func(r *wizard.TasksRecord) { r.SetTaskField(i, field, value) })
		})
	}
}

func (w *Wizard) markScheduled() {
	if w.ctrl.Current() != wizard.StepSchedule {
		return
	}
	wizard.Edit(w.state(), func(r *wizard.ScheduleRecord) { r.Scheduled = true })
	w.logger.Info("consultation scheduled")
}

func (w *Wizard) retry() {
	f := w.failure
	if f == nil {
		return
	}
	w.failure = nil
	switch f.op {
	case opSend:
		if w.state().Contact().OTP.Requested {
			w.resendCode()
		} else {
			w.sendCode()
		}
	case opVerify:
		w.verifyCode()
	case opSubmit:
		w.submit()
	}
}

// str reads a payload value as a string. lv-value-* attributes always
// arrive as strings; numbers are tolerated for programmatic pushes.
func str(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func index(payload map[string]any, key string) int {
	i, err := strconv.Atoi(str(payload, key))
	if err != nil {
		return -1
	}
	return i
}
