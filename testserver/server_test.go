package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kampyn-loadtest/internal/otpstore"
)

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func signupPayload(email string) map[string]string {
	return map[string]string{
		"fullName": "Test User",
		"email":    email,
		"phone":    "9876500001",
		"password": "Password1!",
		"gender":   "female",
		"uniID":    "uni-1",
	}
}

func TestSignup(t *testing.T) {
	store := otpstore.NewMemory()
	srv := httptest.NewServer(NewServer(store).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("a@test.com"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["token"] == "" {
		t.Error("expected token in response")
	}

	// Signup issues an OTP out of band.
	if _, err := store.LatestOTP(context.Background(), "a@test.com"); err != nil {
		t.Errorf("expected OTP in store: %v", err)
	}
	if store.UserCount() != 1 {
		t.Errorf("expected user recorded in store, got %d", store.UserCount())
	}
}

func TestSignup_DuplicateRejected(t *testing.T) {
	srv := httptest.NewServer(NewServer(otpstore.NewMemory()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("dup@test.com"))
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("dup@test.com"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate signup, got %d", resp.StatusCode)
	}
}

func TestSignup_MissingFieldsRejected(t *testing.T) {
	srv := httptest.NewServer(NewServer(otpstore.NewMemory()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/user/auth/signup", map[string]string{"email": "a@test.com"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", resp.StatusCode)
	}
}

func TestOTPVerification(t *testing.T) {
	store := otpstore.NewMemory()
	srv := httptest.NewServer(NewServer(store).Handler())
	defer srv.Close()

	postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("v@test.com")).Body.Close()
	otp, err := store.LatestOTP(context.Background(), "v@test.com")
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, srv.URL+"/api/user/auth/otpverification", map[string]string{"email": "v@test.com", "otp": "000000x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for wrong OTP, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/user/auth/otpverification", map[string]string{"email": "v@test.com", "otp": otp})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for correct OTP, got %d", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(NewServer(otpstore.NewMemory()).Handler())
	defer srv.Close()

	postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("l@test.com")).Body.Close()

	// By email.
	resp := postJSON(t, srv.URL+"/api/user/auth/login", map[string]string{"identifier": "l@test.com", "password": "Password1!"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for email login, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if body["token"] == "" {
		t.Error("expected token on login")
	}

	// By phone.
	resp = postJSON(t, srv.URL+"/api/user/auth/login", map[string]string{"identifier": "9876500001", "password": "Password1!"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for phone login, got %d", resp.StatusCode)
	}

	// Wrong password.
	resp = postJSON(t, srv.URL+"/api/user/auth/login", map[string]string{"identifier": "l@test.com", "password": "nope"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad credentials, got %d", resp.StatusCode)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	store := otpstore.NewMemory()
	srv := httptest.NewServer(NewServer(store).Handler())
	defer srv.Close()

	postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("r@test.com")).Body.Close()

	resp := postJSON(t, srv.URL+"/api/user/auth/forgotpassword", map[string]string{"identifier": "unknown@test.com"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/user/auth/forgotpassword", map[string]string{"identifier": "r@test.com"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for forgot password, got %d", resp.StatusCode)
	}

	otp, err := store.LatestOTP(context.Background(), "r@test.com")
	if err != nil {
		t.Fatal(err)
	}

	resp = postJSON(t, srv.URL+"/api/user/auth/resetpassword", map[string]string{
		"email": "r@test.com", "otp": "wrong", "newPassword": "NewPassword1!",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for wrong reset OTP, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/user/auth/resetpassword", map[string]string{
		"email": "r@test.com", "otp": otp, "newPassword": "NewPassword1!",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for reset, got %d", resp.StatusCode)
	}

	// The new password works, the old one does not.
	resp = postJSON(t, srv.URL+"/api/user/auth/login", map[string]string{"identifier": "r@test.com", "password": "NewPassword1!"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected login with new password, got %d", resp.StatusCode)
	}
	resp = postJSON(t, srv.URL+"/api/user/auth/login", map[string]string{"identifier": "r@test.com", "password": "Password1!"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected old password rejected, got %d", resp.StatusCode)
	}
}

func TestFailureInjection(t *testing.T) {
	stub := NewServer(otpstore.NewMemory())
	stub.FailureRate = 1
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("f@test.com"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected injected 500, got %d", resp.StatusCode)
	}
}

func TestListEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(otpstore.NewMemory()).Handler())
	defer srv.Close()

	postJSON(t, srv.URL+"/api/user/auth/signup", signupPayload("c@test.com")).Body.Close()

	resp, err := http.Get(srv.URL + "/api/user/auth/list")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["users"] != 1 {
		t.Errorf("expected 1 user, got %d", body["users"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(NewServer(otpstore.NewMemory()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/user/auth/signup")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}
