package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Endpoint paths on the bitesbay backend.
const (
	PathSignup         = "/api/user/auth/signup"
	PathOTPVerify      = "/api/user/auth/otpverification"
	PathLogin          = "/api/user/auth/login"
	PathForgotPassword = "/api/user/auth/forgotpassword"
	PathResetPassword  = "/api/user/auth/resetpassword"
)

// maxBodySize limits how much of a response body is read for token
// extraction.
const maxBodySize = 1 << 20

// StepResult is the outcome of one HTTP step. Duration is wall-clock from
// just before the call to just after the response (or error), whatever the
// outcome.
type StepResult struct {
	OK         bool
	Duration   time.Duration
	Token      string
	StatusCode int
	Err        string
}

// Client issues the auth endpoints' requests. The underlying http.Client is
// shared by every workflow and safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL with a per-request
// timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Signup submits a new user. 201 Created is success; the auth token, when
// present, is captured from the response.
func (c *Client) Signup(ctx context.Context, user SyntheticUser) StepResult {
	return c.post(ctx, PathSignup, user, http.StatusCreated, true)
}

// VerifyOTP submits a one-time code for the email.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) StepResult {
	payload := map[string]string{"email": email, "otp": otp}
	return c.post(ctx, PathOTPVerify, payload, http.StatusOK, false)
}

// Login authenticates with the identifier (email or phone) and password.
func (c *Client) Login(ctx context.Context, identifier, password string) StepResult {
	payload := map[string]string{"identifier": identifier, "password": password}
	return c.post(ctx, PathLogin, payload, http.StatusOK, true)
}

// ForgotPassword triggers a reset OTP for the identifier.
func (c *Client) ForgotPassword(ctx context.Context, identifier string) StepResult {
	payload := map[string]string{"identifier": identifier}
	return c.post(ctx, PathForgotPassword, payload, http.StatusOK, false)
}

// ResetPassword sets a new password using a reset OTP.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) StepResult {
	payload := map[string]string{"email": email, "otp": otp, "newPassword": newPassword}
	return c.post(ctx, PathResetPassword, payload, http.StatusOK, false)
}

// post issues one JSON POST and converts every failure mode, transport
// error or unexpected status alike, into a failed StepResult with the
// elapsed time up to the error. It never returns an error to the caller.
func (c *Client) post(ctx context.Context, path string, payload any, wantStatus int, extractToken bool) StepResult {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return StepResult{Duration: time.Since(start), Err: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return StepResult{Duration: time.Since(start), Err: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		return StepResult{Duration: duration, Err: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection is reused

	if resp.StatusCode != wantStatus {
		return StepResult{
			Duration:   duration,
			StatusCode: resp.StatusCode,
			Err:        resp.Status,
		}
	}

	result := StepResult{OK: true, Duration: duration, StatusCode: resp.StatusCode}
	if extractToken {
		if token := gjson.GetBytes(respBody, "token"); token.Exists() {
			result.Token = token.String()
		}
	}
	return result
}
