// Package testserver provides a stub of the bitesbay auth API for exercising
// the harness without the real backend.
package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"kampyn-loadtest/internal/otpstore"
)

// Server is an in-memory implementation of the five auth endpoints. Signup
// and forgot-password write OTPs into the configured store, mirroring how
// the real backend persists them out of band.
type Server struct {
	mux   *http.ServeMux
	store otpstore.Store

	// Latency delays every response; FailureRate (0..1) fails that fraction
	// of requests with a 500.
	Latency     time.Duration
	FailureRate float64

	mu    sync.Mutex
	users map[string]*userRecord
	rng   *rand.Rand
}

type userRecord struct {
	FullName string
	Phone    string
	Password string
	Verified bool
}

// NewServer creates a stub server writing OTPs into the given store.
func NewServer(store otpstore.Store) *Server {
	s := &Server{
		mux:   http.NewServeMux(),
		store: store,
		users: make(map[string]*userRecord),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/api/user/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/user/auth/otpverification", s.handleOTPVerification)
	s.mux.HandleFunc("/api/user/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/user/auth/forgotpassword", s.handleForgotPassword)
	s.mux.HandleFunc("/api/user/auth/resetpassword", s.handleResetPassword)
	s.mux.HandleFunc("/api/user/auth/list", s.handleList)
}

// inject applies the configured latency and failure rate. Returns false when
// the request was already answered with a simulated failure.
func (s *Server) inject(w http.ResponseWriter) bool {
	if s.Latency > 0 {
		time.Sleep(s.Latency)
	}
	if s.FailureRate > 0 {
		s.mu.Lock()
		failed := s.rng.Float64() < s.FailureRate
		s.mu.Unlock()
		if failed {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return false
		}
	}
	return true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.inject(w) {
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Gender   string `json:"gender"`
		UniID    string `json:"uniID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		http.Error(w, "user already exists", http.StatusBadRequest)
		return
	}
	s.users[req.Email] = &userRecord{
		FullName: req.FullName,
		Phone:    req.Phone,
		Password: req.Password,
	}
	s.mu.Unlock()

	if m, ok := s.store.(*otpstore.Memory); ok {
		m.AddUser(req.Email)
	}
	s.issueOTP(r.Context(), req.Email)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"token": s.newToken()})
}

func (s *Server) handleOTPVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.inject(w) {
		return
	}

	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	current, err := s.store.LatestOTP(r.Context(), req.Email)
	if err != nil || current != req.OTP {
		http.Error(w, "invalid otp", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if user := s.users[req.Email]; user != nil {
		user.Verified = true
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"message":"verified"}`)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.inject(w) {
		return
	}

	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	user := s.lookup(req.Identifier)
	ok := user != nil && user.Password == req.Password
	s.mu.Unlock()
	if !ok {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"token": s.newToken()})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.inject(w) {
		return
	}

	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	user := s.lookup(req.Identifier)
	s.mu.Unlock()
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	s.issueOTP(r.Context(), req.Identifier)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"message":"otp sent"}`)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.inject(w) {
		return
	}

	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	current, err := s.store.LatestOTP(r.Context(), req.Email)
	if err != nil || current != req.OTP || req.NewPassword == "" {
		http.Error(w, "invalid otp", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	user := s.users[req.Email]
	if user != nil {
		user.Password = req.NewPassword
	}
	s.mu.Unlock()
	if user == nil {
		http.Error(w, "user not found", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"message":"password reset"}`)
}

// handleList exists because the setup wizard probes it to check
// reachability; any response counts.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := len(s.users)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"users": count})
}

// lookup finds a user by email or phone. Caller holds the lock.
func (s *Server) lookup(identifier string) *userRecord {
	if user, ok := s.users[identifier]; ok {
		return user
	}
	for _, user := range s.users {
		if user.Phone == identifier {
			return user
		}
	}
	return nil
}

func (s *Server) issueOTP(ctx context.Context, email string) {
	s.mu.Lock()
	code := fmt.Sprintf("%06d", s.rng.Intn(1000000))
	s.mu.Unlock()
	_ = s.store.PutOTP(ctx, email, code)
}

func (s *Server) newToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("token-%d-%d", s.rng.Int63(), time.Now().UnixNano())
}
