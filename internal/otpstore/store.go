// Package otpstore reads one-time codes out of the backend's data store and
// deletes synthetic test records after a run.
package otpstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no OTP record exists for the email.
var ErrNotFound = errors.New("otp not found")

// CleanupResult reports how many synthetic records a cleanup removed.
type CleanupResult struct {
	Users int64
	OTPs  int64
}

// Store is the harness's view of the backend's user and OTP collections.
type Store interface {
	// LatestOTP returns the newest OTP code recorded for the email, or
	// ErrNotFound.
	LatestOTP(ctx context.Context, email string) (string, error)

	// PutOTP records a code for the email. The real backend writes these as
	// a side effect of signup and forgot-password; the stub server uses this
	// to mimic it.
	PutOTP(ctx context.Context, email, code string) error

	// DeleteTestData removes users and OTPs whose email matches the regex
	// pattern and reports the counts deleted.
	DeleteTestData(ctx context.Context, emailPattern string) (CleanupResult, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// AwaitOTP waits for an OTP write racing against the read: it sleeps for the
// settle delay, then polls the store every interval until the deadline
// expires. A non-positive deadline degenerates to a single read after the
// settle delay.
func AwaitOTP(ctx context.Context, s Store, email string, settle, interval, deadline time.Duration) (string, error) {
	if settle > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(settle):
		}
	}

	expiry := time.Now().Add(deadline)
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	for {
		code, err := s.LatestOTP(ctx, email)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		if deadline <= 0 || !time.Now().Before(expiry) {
			return "", ErrNotFound
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}
