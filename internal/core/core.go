// Package core defines the workflow contract and the event stream shared by
// the runner, the collector and the auth flow.
package core

import (
	"context"
	"time"
)

// Step names, in the order the auth workflow executes them.
const (
	StepSignup         = "signup"
	StepOTPVerify      = "otp_verification"
	StepLogin          = "login"
	StepForgotPassword = "forgot_password"
	StepResetPassword  = "reset_password"
)

// StepOrder lists every workflow step in execution order. Reports iterate
// this instead of map keys so output is stable.
var StepOrder = []string{
	StepSignup,
	StepOTPVerify,
	StepLogin,
	StepForgotPassword,
	StepResetPassword,
}

// Event is one step outcome emitted by a workflow. Attempted is false for
// steps that were skipped because an earlier step failed; such events count
// toward failure tallies but carry no duration sample.
type Event struct {
	ActorID    int
	Timestamp  time.Time
	Step       string
	Duration   time.Duration
	Success    bool
	Attempted  bool
	Error      string
	StatusCode int
}

// WorkflowResult summarizes one simulated user's pass through the flow.
type WorkflowResult struct {
	Index int
	Email string
	Phone string

	SignupOK         bool
	OTPVerifyOK      bool
	LoginOK          bool
	ForgotPasswordOK bool
	ResetPasswordOK  bool

	Total time.Duration
}

// Complete reports whether every step succeeded.
func (r *WorkflowResult) Complete() bool {
	return r.SignupOK && r.OTPVerifyOK && r.LoginOK && r.ForgotPasswordOK && r.ResetPasswordOK
}

// Workflow is a single user's scripted pass through the system. Run returns
// a nil result only when the context was canceled before completion.
type Workflow interface {
	Run(ctx context.Context, userIndex int, rep Reporter) (*WorkflowResult, error)
}

// Reporter receives step events. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Report(Event)
}

// NullReporter discards every event.
type NullReporter struct{}

func (NullReporter) Report(Event) {}
