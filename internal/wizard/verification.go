package wizard

import (
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/gabrielmiguelok/intakewizard/pkg/forms"
)

// DefaultResendCooldown is the minimum time between two code sends.
const DefaultResendCooldown = 30 * time.Second

// Verification sub-flow errors.
var (
	ErrInvalidEmail    = errors.New("email address is not valid")
	ErrResendCooldown  = errors.New("resend cooldown has not expired")
	ErrCodeNotSent     = errors.New("no verification code was requested")
	ErrSendPending     = errors.New("verification request already in progress")
	ErrAlreadyVerified = errors.New("email already verified")
)

// Verification is the request-code, enter-code, verify sub-flow of the
// contact step. Sends are rate limited to one per cooldown. Epoch changes
// every time the flow is reset so that provider replies for an older
// address can be recognised and dropped.
type Verification struct {
	Email     string    `msgpack:"email"`
	StateID   string    `msgpack:"state_id"`
	Requested bool      `msgpack:"requested"`
	Pending   bool      `msgpack:"pending"`
	Verified  bool      `msgpack:"verified"`
	SentAt    time.Time `msgpack:"sent_at"`
	Epoch     uint64    `msgpack:"epoch"`

	cooldown time.Duration
	limiter  *rate.Limiter
}

// SetCooldown changes the resend cooldown. A zero or negative value selects
// DefaultResendCooldown.
func (v *Verification) SetCooldown(d time.Duration) {
	if d <= 0 {
		d = DefaultResendCooldown
	}
	v.cooldown = d
	v.limiter = nil
}

// Cooldown returns the configured resend cooldown.
func (v *Verification) Cooldown() time.Duration {
	if v.cooldown <= 0 {
		return DefaultResendCooldown
	}
	return v.cooldown
}

// lim lazily builds the limiter, replaying the last send so a restored
// flow keeps its cooldown.
func (v *Verification) lim() *rate.Limiter {
	if v.limiter == nil {
		v.limiter = rate.NewLimiter(rate.Every(v.Cooldown()), 1)
		if !v.SentAt.IsZero() {
			v.limiter.AllowN(v.SentAt, 1)
		}
	}
	return v.limiter
}

// BeginSend reserves a send of a code to email at now. It fails when the
// address is invalid, a send is already pending, or the cooldown since the
// last send has not elapsed. On success the caller must finish with
// CompleteSend or FailSend.
func (v *Verification) BeginSend(email string, now time.Time) error {
	if !forms.IsValidEmail(email) {
		return ErrInvalidEmail
	}
	if v.Verified {
		return ErrAlreadyVerified
	}
	if v.Pending {
		return ErrSendPending
	}
	if v.Requested && v.Email != email {
		v.Reset()
	}
	if !v.lim().AllowN(now, 1) {
		return ErrResendCooldown
	}
	v.Email = email
	v.Pending = true
	v.SentAt = now
	return nil
}

// BeginResend is BeginSend for an address that already received a code.
func (v *Verification) BeginResend(now time.Time) error {
	if !v.Requested {
		return ErrCodeNotSent
	}
	return v.BeginSend(v.Email, now)
}

// CompleteSend records the provider's state token for the sent code.
func (v *Verification) CompleteSend(stateID string) {
	v.Pending = false
	v.Requested = true
	if stateID != "" {
		v.StateID = stateID
	}
}

// FailSend releases a reservation whose send failed, so the prospect can
// retry immediately.
func (v *Verification) FailSend() {
	v.Pending = false
	v.SentAt = time.Time{}
	v.limiter = nil
	if v.StateID == "" {
		v.Requested = false
	}
}

// MarkVerified records a successful code check.
func (v *Verification) MarkVerified() {
	v.Verified = true
	v.Pending = false
}

// Reset discards the code exchange. The time of the last send survives, so
// a send to any address still waits out the cooldown.
func (v *Verification) Reset() {
	*v = Verification{
		SentAt:   v.SentAt,
		Epoch:    v.Epoch + 1,
		cooldown: v.cooldown,
		limiter:  v.limiter,
	}
}

// Remaining returns how long until a resend is allowed.
func (v *Verification) Remaining(now time.Time) time.Duration {
	if v.SentAt.IsZero() {
		return 0
	}
	left := v.Cooldown() - now.Sub(v.SentAt)
	if left < 0 {
		return 0
	}
	return left
}

func (v Verification) copy() Verification {
	v.limiter = nil
	return v
}
