package auth

import (
	"fmt"
	"math/rand"
)

// SyntheticUser is one generated signup identity. The field names mirror the
// backend's signup payload.
type SyntheticUser struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Gender   string `json:"gender"`
	UniID    string `json:"uniID"`
}

// NewSyntheticUser generates the deterministic identity for one user index.
// Only the gender is random; everything else derives from the index so that
// cleanup can match the records afterwards.
func NewSyntheticUser(index int, emailDomain, phonePrefix, uniID string) SyntheticUser {
	gender := "male"
	if rand.Intn(2) == 1 {
		gender = "female"
	}
	return SyntheticUser{
		FullName: fmt.Sprintf("Test User %d", index),
		Email:    fmt.Sprintf("testuser%d@%s", index, emailDomain),
		Phone:    fmt.Sprintf("%s%05d", phonePrefix, index),
		Password: fmt.Sprintf("Password%d!", index),
		Gender:   gender,
		UniID:    uniID,
	}
}

// ResetPassword returns the replacement password for the reset step.
func ResetPassword(index int) string {
	return fmt.Sprintf("NewPassword%d!", index)
}
