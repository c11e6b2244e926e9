package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_SignupSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathSignup {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var user SyntheticUser
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if user.Email == "" {
			t.Error("expected email in payload")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"abc123"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	result := c.Signup(context.Background(), NewSyntheticUser(1, "test.com", "98765", "uni"))

	if !result.OK {
		t.Errorf("expected success, got error: %s", result.Err)
	}
	if result.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", result.StatusCode)
	}
	if result.Token != "abc123" {
		t.Errorf("expected extracted token, got %q", result.Token)
	}
	if result.Duration <= 0 {
		t.Error("expected positive duration")
	}
}

func TestClient_SignupUnexpectedStatusIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // 200 is not the signup contract; 201 is
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	result := c.Signup(context.Background(), NewSyntheticUser(1, "test.com", "98765", "uni"))

	if result.OK {
		t.Error("expected failure for non-201 status")
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("expected recorded status 200, got %d", result.StatusCode)
	}
}

func TestClient_TransportErrorIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewClient(server.URL, time.Second)
	result := c.Login(context.Background(), "user@test.com", "pw")

	if result.OK {
		t.Error("expected failure for refused connection")
	}
	if result.Err == "" {
		t.Error("expected error message")
	}
	if result.Duration <= 0 {
		t.Error("expected elapsed time up to the error to be recorded")
	}
}

func TestClient_LoginPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["identifier"] != "user@test.com" || payload["password"] != "pw" {
			t.Errorf("unexpected payload: %v", payload)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"token":"tok"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	result := c.Login(context.Background(), "user@test.com", "pw")
	if !result.OK {
		t.Errorf("expected success, got: %s", result.Err)
	}
	if result.Token != "tok" {
		t.Errorf("expected token, got %q", result.Token)
	}
}

func TestClient_ResetPasswordPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["email"] != "user@test.com" || payload["otp"] != "123456" || payload["newPassword"] != "NewPassword1!" {
			t.Errorf("unexpected payload: %v", payload)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second)
	result := c.ResetPassword(context.Background(), "user@test.com", "123456", "NewPassword1!")
	if !result.OK {
		t.Errorf("expected success, got: %s", result.Err)
	}
}
