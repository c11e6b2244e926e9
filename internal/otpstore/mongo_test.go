package otpstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// These tests require a live MongoDB. They are skipped unless
// LOADTEST_MONGO_TEST=1; the URI comes from LOADTEST_MONGO_URI
// (default mongodb://localhost:27017).
func mongoForTest(t *testing.T) *Mongo {
	t.Helper()
	if os.Getenv("LOADTEST_MONGO_TEST") != "1" {
		t.Skip("Mongo integration tests disabled. Set LOADTEST_MONGO_TEST=1 to enable.")
	}
	uri := os.Getenv("LOADTEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := ConnectMongo(ctx, uri, "loadtest_accounts", "users", "loadtest_users", "otps")
	if err != nil {
		t.Fatalf("connecting to mongo: %v", err)
	}
	if err := m.Ping(ctx); err != nil {
		t.Fatalf("pinging mongo: %v", err)
	}
	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Close(closeCtx)
	})
	return m
}

func TestMongo_PutAndLatestOTP(t *testing.T) {
	m := mongoForTest(t)
	ctx := context.Background()
	email := fmt.Sprintf("testuser%d@test.com", time.Now().UnixNano())

	if _, err := m.LatestOTP(ctx, email); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound before insert, got %v", err)
	}

	if err := m.PutOTP(ctx, email, "111111"); err != nil {
		t.Fatalf("inserting first otp: %v", err)
	}
	time.Sleep(5 * time.Millisecond) // createdAt must differ
	if err := m.PutOTP(ctx, email, "222222"); err != nil {
		t.Fatalf("inserting second otp: %v", err)
	}

	code, err := m.LatestOTP(ctx, email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "222222" {
		t.Errorf("expected newest code 222222, got %s", code)
	}

	result, err := m.DeleteTestData(ctx, `^testuser\d+@test\.com$`)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if result.OTPs < 2 {
		t.Errorf("expected at least 2 OTPs deleted, got %d", result.OTPs)
	}
}
