// Package auth drives simulated users through the bitesbay signup, OTP,
// login and password-reset flow.
package auth

import (
	"context"
	"time"

	"kampyn-loadtest/internal/core"
	"kampyn-loadtest/internal/otpstore"
	"kampyn-loadtest/internal/ratelimit"

	log "github.com/sirupsen/logrus"
)

// Workflow runs the full auth sequence for one synthetic user: signup, OTP
// verification, login, forgot-password and reset-password, in strict order,
// short-circuiting after the first failure.
//
// A workflow buffers its step events and flushes them to the Reporter only
// when it finishes, so an interrupted run discards in-flight partial results
// instead of aggregating half a workflow. Steps after the first failure are
// flushed as unattempted failures: every completed workflow contributes
// exactly one success-or-failure count to every step.
type Workflow struct {
	Client  *Client
	Store   otpstore.Store
	Limiter *ratelimit.Limiter

	EmailDomain string
	PhonePrefix string
	UniID       string

	// OTPWait is the settle delay before reading an OTP the backend writes
	// asynchronously; the read then polls every OTPPollInterval until
	// OTPPollTimeout.
	OTPWait         time.Duration
	OTPPollInterval time.Duration
	OTPPollTimeout  time.Duration
}

var _ core.Workflow = (*Workflow)(nil)

// Run executes the workflow for one user index. It returns a nil result only
// when the context was canceled; step failures are recorded in the result,
// never returned as errors.
func (w *Workflow) Run(ctx context.Context, index int, rep core.Reporter) (*core.WorkflowResult, error) {
	if err := w.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	user := NewSyntheticUser(index, w.EmailDomain, w.PhonePrefix, w.UniID)
	result := &core.WorkflowResult{Index: index, Email: user.Email, Phone: user.Phone}
	start := time.Now()

	var events []core.Event
	record := func(step string, sr StepResult) {
		events = append(events, core.Event{
			ActorID:    index,
			Timestamp:  time.Now(),
			Step:       step,
			Duration:   sr.Duration,
			Success:    sr.OK,
			Attempted:  true,
			Error:      sr.Err,
			StatusCode: sr.StatusCode,
		})
	}
	finish := func() (*core.WorkflowResult, error) {
		result.Total = time.Since(start)
		flush(rep, index, events)
		return result, nil
	}

	// Step 1: signup.
	signup := w.Client.Signup(ctx, user)
	record(core.StepSignup, signup)
	if !signup.OK {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("Signup failed for %s: %d %s", user.Email, signup.StatusCode, signup.Err)
		return finish()
	}
	result.SignupOK = true
	log.Debugf("Signup successful for %s", user.Email)

	// Step 2: the backend persists the OTP out of band; wait for it.
	otp, err := otpstore.AwaitOTP(ctx, w.Store, user.Email, w.OTPWait, w.OTPPollInterval, w.OTPPollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("No OTP found for %s", user.Email)
		return finish()
	}

	// Step 3: OTP verification.
	verify := w.Client.VerifyOTP(ctx, user.Email, otp)
	record(core.StepOTPVerify, verify)
	if !verify.OK {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("OTP verification failed for %s: %d %s", user.Email, verify.StatusCode, verify.Err)
		return finish()
	}
	result.OTPVerifyOK = true
	log.Debugf("OTP verification successful for %s", user.Email)

	// Step 4: login.
	login := w.Client.Login(ctx, user.Email, user.Password)
	record(core.StepLogin, login)
	if !login.OK {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("Login failed for %s: %d %s", user.Email, login.StatusCode, login.Err)
		return finish()
	}
	result.LoginOK = true
	log.Debugf("Login successful for %s", user.Email)

	// Step 5: forgot password issues a fresh OTP.
	forgot := w.Client.ForgotPassword(ctx, user.Email)
	record(core.StepForgotPassword, forgot)
	if !forgot.OK {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("Forgot password failed for %s: %d %s", user.Email, forgot.StatusCode, forgot.Err)
		return finish()
	}
	result.ForgotPasswordOK = true

	// Step 6: reset password with the re-acquired OTP.
	resetOTP, err := otpstore.AwaitOTP(ctx, w.Store, user.Email, w.OTPWait, w.OTPPollInterval, w.OTPPollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("No reset OTP found for %s", user.Email)
		return finish()
	}

	reset := w.Client.ResetPassword(ctx, user.Email, resetOTP, ResetPassword(index))
	record(core.StepResetPassword, reset)
	if !reset.OK {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("Reset password failed for %s: %d %s", user.Email, reset.StatusCode, reset.Err)
		return finish()
	}
	result.ResetPasswordOK = true
	log.Debugf("Reset password successful for %s", user.Email)

	return finish()
}

// flush reports the buffered events plus one unattempted failure for every
// step the workflow never reached.
func flush(rep core.Reporter, index int, events []core.Event) {
	reached := make(map[string]bool, len(events))
	for _, e := range events {
		reached[e.Step] = true
	}
	for _, step := range core.StepOrder {
		if !reached[step] {
			events = append(events, core.Event{
				ActorID:   index,
				Timestamp: time.Now(),
				Step:      step,
				Success:   false,
				Attempted: false,
			})
		}
	}
	for _, e := range events {
		rep.Report(e)
	}
}
