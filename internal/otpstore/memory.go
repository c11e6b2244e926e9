package otpstore

import (
	"context"
	"regexp"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and the stub server.
type Memory struct {
	mu    sync.Mutex
	otps  map[string][]memoryOTP
	users map[string]bool
}

type memoryOTP struct {
	code      string
	createdAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		otps:  make(map[string][]memoryOTP),
		users: make(map[string]bool),
	}
}

// AddUser records a user email so cleanup has something to delete.
func (m *Memory) AddUser(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[email] = true
}

// UserCount returns the number of recorded users.
func (m *Memory) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *Memory) LatestOTP(_ context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.otps[email]
	if len(records) == 0 {
		return "", ErrNotFound
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.createdAt.After(latest.createdAt) {
			latest = r
		}
	}
	return latest.code, nil
}

func (m *Memory) PutOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps[email] = append(m.otps[email], memoryOTP{code: code, createdAt: time.Now()})
	return nil
}

func (m *Memory) DeleteTestData(_ context.Context, emailPattern string) (CleanupResult, error) {
	re, err := regexp.Compile(emailPattern)
	if err != nil {
		return CleanupResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result CleanupResult
	for email := range m.users {
		if re.MatchString(email) {
			delete(m.users, email)
			result.Users++
		}
	}
	for email, records := range m.otps {
		if re.MatchString(email) {
			result.OTPs += int64(len(records))
			delete(m.otps, email)
		}
	}
	return result, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }
