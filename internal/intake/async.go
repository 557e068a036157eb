package intake

import (
	"context"
	"errors"
	"time"

	"github.com/gabrielmiguelok/intakewizard/internal/analysis"
	"github.com/gabrielmiguelok/intakewizard/internal/otp"
	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
	"github.com/gabrielmiguelok/intakewizard/pkg/audit"
	"github.com/gabrielmiguelok/intakewizard/pkg/forms"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

// Remote operations, also used as metric labels.
const (
	opSend   = "send"
	opResend = "resend"
	opVerify = "verify"
	opSubmit = "submit"
)

// failure is the error panel state. The panel never shows the cause.
type failure struct {
	op    string
	title string
	text  string
}

func newFailure(op string) *failure {
	f := &failure{op: op, title: "Something went wrong"}
	switch op {
	case opSend, opResend:
		f.text = "We could not send your verification code. Please try again."
	case opVerify:
		f.text = "We could not verify your code right now. Please try again."
	default:
		f.text = "We could not analyze your answers right now. Please try again."
	}
	return f
}

func (f *failure) Title() string { return f.title }
func (f *failure) Text() string  { return f.text }

// Info messages posted by background work. gen and epoch identify the run
// that started the call.
type (
	codeSent struct {
		gen   uint64
		epoch uint64
		op    string
		state string
		err   error
	}
	codeVerified struct {
		gen   uint64
		epoch uint64
		code  string
		err   error
	}
	submitted struct {
		outcome wizard.Outcome
		took    time.Duration
	}
	cooldownElapsed struct{}
)

// remote runs fn in the background with the configured timeout.
func (w *Wizard) remote(fn func(ctx context.Context)) {
	bg, timeout := w.bg, w.opts.RemoteTimeout
	go func() {
		ctx, cancel := context.WithTimeout(bg, timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (w *Wizard) sendCode() {
	if w.pending[opSend] {
		return
	}
	var err error
	wizard.Edit(w.state(), func(r *wizard.ContactRecord) {
		err = r.OTP.BeginSend(r.Email, w.now())
	})
	if w.refused(err) {
		return
	}

	provider := w.opts.OTP
	gen, contact := w.gen, w.state().Contact()
	epoch, email := contact.OTP.Epoch, contact.OTP.Email
	w.pending[opSend] = true
	w.remote(func(ctx context.Context) {
		state, err := provider.Send(ctx, email)
		w.post(codeSent{gen: gen, epoch: epoch, op: opSend, state: state, err: err})
	})
}

func (w *Wizard) resendCode() {
	if w.pending[opSend] {
		return
	}
	var err error
	wizard.Edit(w.state(), func(r *wizard.ContactRecord) {
		err = r.OTP.BeginResend(w.now())
	})
	if w.refused(err) {
		return
	}

	provider := w.opts.OTP
	gen, contact := w.gen, w.state().Contact()
	epoch, stateID := contact.OTP.Epoch, contact.OTP.StateID
	w.pending[opSend] = true
	w.remote(func(ctx context.Context) {
		state, err := provider.Resend(ctx, stateID)
		w.post(codeSent{gen: gen, epoch: epoch, op: opResend, state: state, err: err})
	})
}

// refused turns a precondition error from the verification flow into a
// hint. It reports whether the request must not go out.
func (w *Wizard) refused(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, wizard.ErrInvalidEmail):
		w.touched["email"] = true
	case errors.Is(err, wizard.ErrResendCooldown):
		left := w.state().Contact().OTP.Remaining(w.now())
		w.notice = "Please wait " + seconds(left) + " before requesting another code."
	case errors.Is(err, wizard.ErrCodeNotSent):
		w.notice = "Request a verification code first."
	}
	w.logger.Debug("verification request refused", logging.Err(err))
	return true
}

func (w *Wizard) applyCodeSent(m codeSent) {
	contact := w.state().Contact()
	if m.gen != w.gen || m.epoch != contact.OTP.Epoch {
		w.logger.Debug("dropping stale verification result", logging.String("op", m.op))
		return
	}
	delete(w.pending, opSend)
	w.opts.Metrics.VerificationCall(m.op, m.err)

	if m.err != nil {
		w.audit(audit.EventCodeFailed, audit.SeverityWarning, contact.OTP.Email, "op", m.op)
		wizard.Edit(w.state(), func(r *wizard.ContactRecord) { r.OTP.FailSend() })
		w.failure = newFailure(m.op)
		w.logger.Warn("verification code not sent", logging.String("op", m.op), logging.Err(m.err))
		return
	}

	w.audit(audit.EventCodeRequested, audit.SeverityInfo, contact.OTP.Email, "op", m.op)
	wizard.Edit(w.state(), func(r *wizard.ContactRecord) { r.OTP.CompleteSend(m.state) })
	w.failure = nil
	w.notice = "We sent a 6-digit code to " + contact.OTP.Email + "."
	w.startCooldownTimer(contact.OTP.Remaining(w.now()))
}

func (w *Wizard) verifyCode() {
	if w.pending[opVerify] {
		return
	}
	contact := w.state().Contact()
	w.touched["code"] = true
	switch {
	case contact.OTP.Verified:
		return
	case !contact.OTP.Requested:
		w.notice = "Request a verification code first."
		return
	case !forms.IsValidVerificationCode(contact.Code):
		return
	}

	provider := w.opts.OTP
	gen, epoch := w.gen, contact.OTP.Epoch
	code, stateID := contact.Code, contact.OTP.StateID
	w.pending[opVerify] = true
	w.remote(func(ctx context.Context) {
		err := provider.Verify(ctx, code, stateID)
		w.post(codeVerified{gen: gen, epoch: epoch, code: code, err: err})
	})
}

func (w *Wizard) applyCodeVerified(m codeVerified) {
	contact := w.state().Contact()
	if m.gen != w.gen || m.epoch != contact.OTP.Epoch {
		w.logger.Debug("dropping stale verification result", logging.String("op", opVerify))
		return
	}
	delete(w.pending, opVerify)
	w.opts.Metrics.VerificationCall(opVerify, m.err)

	switch {
	case errors.Is(m.err, otp.ErrCodeRejected):
		w.audit(audit.EventCodeRejected, audit.SeverityWarning, contact.OTP.Email)
		w.notice = "That code is not valid. Check your email and try again."
	case m.err != nil:
		w.audit(audit.EventVerifyFailed, audit.SeverityWarning, contact.OTP.Email)
		w.failure = newFailure(opVerify)
		w.logger.Warn("verification failed", logging.Err(m.err))
	case m.code != contact.Code:
		w.logger.Debug("code changed while verifying")
	default:
		wizard.Edit(w.state(), func(r *wizard.ContactRecord) { r.OTP.MarkVerified() })
		w.audit(audit.EventEmailVerified, audit.SeverityInfo, contact.OTP.Email)
		w.stopCooldownTimer()
		w.failure = nil
		w.notice = ""
		w.logger.Info("email verified")
	}
}

func (w *Wizard) submit() {
	if w.ctrl.Current() != wizard.StepReview || w.pending[opSubmit] || w.state().Review().Submitted {
		return
	}
	payload, err := wizard.Prepare(w.state(), w.now())
	if err != nil {
		w.failure = newFailure(opSubmit)
		w.logger.Warn("submission refused", logging.Err(err))
		return
	}
	gen, err := w.submitter.Begin()
	if err != nil {
		return
	}

	client, submitter := w.opts.Analysis, w.submitter
	w.pending[opSubmit] = true
	w.failure = nil
	w.remote(func(ctx context.Context) {
		start := time.Now()
		out := submitter.Run(ctx, gen, func(ctx context.Context) (any, error) {
			return client.Submit(ctx, payload)
		})
		w.post(submitted{outcome: out, took: time.Since(start)})
	})
}

func (w *Wizard) applySubmitted(m submitted) {
	if !w.submitter.Current(m.outcome) {
		w.logger.Debug("dropping stale analysis result")
		return
	}
	delete(w.pending, opSubmit)
	w.opts.Metrics.SubmissionFinished(m.took, m.outcome.Err)

	email := w.state().Contact().Email
	result, ok := m.outcome.Value.(*analysis.Result)
	if m.outcome.Err != nil || !ok || result == nil {
		w.audit(audit.EventSubmissionError, audit.SeverityWarning, email)
		w.failure = newFailure(opSubmit)
		w.logger.Warn("analysis submission failed", logging.Err(m.outcome.Err))
		return
	}
	w.audit(audit.EventSubmissionSent, audit.SeverityInfo, email, "took_ms", m.took.Milliseconds())
	w.result = result
	w.failure = nil
	wizard.Edit(w.state(), func(r *wizard.ReviewRecord) { r.Submitted = true })
	w.logger.Info("analysis received", logging.Duration("took", m.took))
}

// audit records an event for the prospect at email. kv holds detail
// key/value pairs.
func (w *Wizard) audit(typ, severity, email string, kv ...any) {
	e := audit.Event{
		Timestamp: w.now().UTC(),
		Type:      typ,
		Severity:  severity,
		SessionID: w.sessionID,
		Subject:   audit.Subject(email),
	}
	if len(kv) > 1 {
		e.Details = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := kv[i].(string); ok {
				e.Details[k] = kv[i+1]
			}
		}
	}
	w.opts.Audit.Log(w.bg, e)
}

func (w *Wizard) startCooldownTimer(d time.Duration) {
	w.stopCooldownTimer()
	if d <= 0 {
		return
	}
	w.cooldown = time.AfterFunc(d, func() { w.post(cooldownElapsed{}) })
}

func (w *Wizard) stopCooldownTimer() {
	if w.cooldown != nil {
		w.cooldown.Stop()
		w.cooldown = nil
	}
}
