package models

import (
	"time"
)

// User represents an account keyed by phone number. Accounts are created on
// the first successful OTP verification and never deleted.
type User struct {
	BaseModel
	PhoneNumber  string             `gorm:"uniqueIndex" json:"phone_number"`
	FullName     string             `json:"full_name"`
	Address      string             `json:"address"`
	Age          *int               `json:"age"`
	AboutMe      string             `json:"about_me"`
	IsPremium    bool               `json:"is_premium"`
	IsStaff      bool               `json:"is_staff"`
	IsSuperuser  bool               `json:"is_superuser"`
	PasswordHash string             `json:"-"`
	Assessments  []AssessmentResult `gorm:"foreignKey:UserID" json:"assessments,omitempty"`
}

// OTP holds the single pending verification code for a phone number.
// The row is upserted on each request and deleted when consumed.
type OTP struct {
	BaseModel
	PhoneNumber string    `gorm:"uniqueIndex" json:"phone_number"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expires_at"`
}
