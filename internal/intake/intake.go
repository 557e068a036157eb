// Package intake is the live component that drives the intake wizard in the
// browser. All state lives server-side; the page only relays events.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabrielmiguelok/intakewizard/internal/analysis"
	"github.com/gabrielmiguelok/intakewizard/internal/otp"
	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
	"github.com/gabrielmiguelok/intakewizard/pkg/audit"
	"github.com/gabrielmiguelok/intakewizard/pkg/core"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
	"github.com/gabrielmiguelok/intakewizard/pkg/metrics"
	"github.com/gabrielmiguelok/intakewizard/pkg/router"
	"github.com/gabrielmiguelok/intakewizard/pkg/security"
	"github.com/gabrielmiguelok/intakewizard/pkg/state"
)

// Analyzer submits a formatted payload for analysis.
type Analyzer interface {
	Submit(ctx context.Context, p wizard.Payload) (*analysis.Result, error)
}

// Options holds the collaborators shared by every wizard instance.
type Options struct {
	OTP       otp.Provider
	Analysis  Analyzer
	Snapshots *state.Sessions[wizard.Snapshot]
	Sanitizer *security.Sanitizer
	Metrics   *metrics.Metrics
	Logger    logging.Logger
	Audit     audit.Logger

	// Now defaults to time.Now.
	Now func() time.Time

	ResendCooldown time.Duration
	RemoteTimeout  time.Duration
	SupportEmail   string
	SchedulingURL  string
}

func (o *Options) withDefaults() *Options {
	c := *o
	if c.Logger == nil {
		c.Logger = logging.NopLogger{}
	}
	if c.Audit == nil {
		c.Audit = audit.NopLogger{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sanitizer == nil {
		c.Sanitizer = security.NewSanitizer(security.DefaultSanitizerConfig())
	}
	if c.ResendCooldown <= 0 {
		c.ResendCooldown = wizard.DefaultResendCooldown
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = 30 * time.Second
	}
	return &c
}

// Wizard is one prospect's wizard. The router serializes every call into
// it, so its fields need no locking; background work reports back through
// Socket().SendInfo.
type Wizard struct {
	core.BaseComponent

	opts   *Options
	logger logging.Logger

	ctrl      *wizard.Controller
	submitter *wizard.Submitter
	result    *analysis.Result
	failure   *failure
	notice    string
	pending   map[string]bool

	// touched holds input names the prospect has edited; attempted holds
	// steps where next was pressed. Either one reveals inline errors.
	touched   map[string]bool
	attempted map[wizard.StepID]bool

	// gen is bumped on reset so background results from a previous run are
	// dropped.
	gen uint64

	sessionID string
	saved     wizard.StepID

	bg       context.Context
	cancel   context.CancelFunc
	cooldown *time.Timer
}

// New returns a constructor suitable for router.Live.
func New(opts Options) func() core.Component {
	shared := opts.withDefaults()
	return func() core.Component {
		return newWizard(shared)
	}
}

func newWizard(opts *Options) *Wizard {
	return &Wizard{
		opts:      opts,
		logger:    opts.Logger.With(logging.String("component", "intake")),
		ctrl:      wizard.NewController(nil),
		submitter: &wizard.Submitter{},
		pending:   make(map[string]bool),
		touched:   make(map[string]bool),
		attempted: make(map[wizard.StepID]bool),
	}
}

// Name implements core.Component.
func (w *Wizard) Name() string { return "intake" }

// Mount restores the prospect's previous answers when the session has a
// saved snapshot.
func (w *Wizard) Mount(ctx context.Context, params core.Params, session core.Session) error {
	w.bg, w.cancel = context.WithCancel(context.Background())
	w.sessionID = session.GetString(router.SessionIDKey)
	if w.sessionID != "" {
		w.logger = w.logger.With(logging.String("session_id", w.sessionID))
	}

	st := wizard.NewState()
	wizard.Edit(st, func(r *wizard.ContactRecord) { r.OTP.SetCooldown(w.opts.ResendCooldown) })
	st.MarkClean()
	w.ctrl.Resume(st, wizard.StepWelcome)

	if w.opts.Snapshots == nil || w.sessionID == "" {
		return nil
	}
	snap, err := w.opts.Snapshots.Load(ctx, w.sessionID)
	switch {
	case errors.Is(err, state.ErrKeyNotFound):
		return nil
	case err != nil:
		w.logger.Warn("snapshot load failed", logging.Err(err))
		return nil
	}
	w.ctrl.Resume(wizard.Restore(snap, w.opts.ResendCooldown), snap.Current)
	w.saved = w.ctrl.Current()
	w.logger.Debug("wizard resumed", logging.String("step", w.ctrl.Current().String()))
	return nil
}

// HandleEvent implements core.Component.
func (w *Wizard) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	from := w.ctrl.Current()
	err := w.dispatch(ctx, event, payload)
	w.afterChange(ctx, from)
	return err
}

// HandleInfo applies the result of background work.
func (w *Wizard) HandleInfo(ctx context.Context, msg any) error {
	from := w.ctrl.Current()
	switch m := msg.(type) {
	case codeSent:
		w.applyCodeSent(m)
	case codeVerified:
		w.applyCodeVerified(m)
	case submitted:
		w.applySubmitted(m)
	case cooldownElapsed:
		// Re-render only; the resend button reads the clock.
	default:
		w.logger.Warn("unexpected info message", logging.String("type", fmt.Sprintf("%T", msg)))
	}
	w.afterChange(ctx, from)
	return nil
}

// Terminate cancels outstanding remote calls.
func (w *Wizard) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if w.cancel != nil {
		w.cancel()
	}
	w.stopCooldownTimer()
	w.logger.Debug("wizard terminated", logging.String("reason", reason.String()))
	return nil
}

func (w *Wizard) state() *wizard.State { return w.ctrl.State() }

func (w *Wizard) now() time.Time { return w.opts.Now() }

// afterChange records step metrics and persists the snapshot when
// anything moved.
func (w *Wizard) afterChange(ctx context.Context, from wizard.StepID) {
	to := w.ctrl.Current()
	if from != to {
		w.opts.Metrics.StepChanged(from.String(), to.String())
	}
	if !w.state().Dirty() && to == w.saved {
		return
	}
	w.persist(ctx)
}

func (w *Wizard) persist(ctx context.Context) {
	if w.opts.Snapshots == nil || w.sessionID == "" {
		w.state().MarkClean()
		return
	}
	snap := w.state().Snapshot(w.ctrl.Current(), w.now())
	if err := w.opts.Snapshots.Save(ctx, w.sessionID, snap); err != nil {
		w.logger.Warn("snapshot save failed", logging.Err(err))
		return
	}
	w.state().MarkClean()
	w.saved = w.ctrl.Current()
}

func (w *Wizard) forget(ctx context.Context) {
	if w.opts.Snapshots == nil || w.sessionID == "" {
		return
	}
	if err := w.opts.Snapshots.Delete(ctx, w.sessionID); err != nil {
		w.logger.Warn("snapshot delete failed", logging.Err(err))
	}
}

// post hands msg to the session loop. It is called from background
// goroutines only.
func (w *Wizard) post(msg any) {
	socket := w.Socket()
	if socket == nil {
		w.logger.Warn("dropping result without a live socket")
		return
	}
	if err := socket.SendInfo(msg); err != nil {
		w.logger.Debug("result arrived after disconnect", logging.Err(err))
	}
}

// Current returns the active step.
func (w *Wizard) Current() wizard.StepID { return w.ctrl.Current() }

// State returns the wizard state. Callers must not mutate it.
func (w *Wizard) State() *wizard.State { return w.state() }
