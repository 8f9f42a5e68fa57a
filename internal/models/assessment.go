package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job is a career path that level-measurement tests can be linked to.
type Job struct {
	BaseModel
	Name        string `gorm:"uniqueIndex" json:"name"`
	Description string `json:"description"`
}

// Test is a container for an ordered question list and its AI prompt.
// Tests are authored through the admin endpoints and read-only at runtime.
type Test struct {
	BaseModel
	Name        string `json:"name"`
	Description string `json:"description"`
	// Questions stores the ordered question objects served to the client verbatim.
	Questions    datatypes.JSON `gorm:"type:jsonb" json:"questions"`
	SystemPrompt string         `json:"system_prompt"`
	RelatedJobID *uuid.UUID     `gorm:"type:uuid" json:"related_job_id"`
	RelatedJob   *Job           `json:"related_job,omitempty"`
	// IsPrimaryAssessment marks the one test all new users take first.
	IsPrimaryAssessment bool `json:"is_primary_assessment"`
	DisplayOrder        int  `gorm:"column:display_order;default:0" json:"order"`
}

// AssessmentResult links a user to a test they have taken. AIAnalysis stays
// NULL for drafts until a deferred analysis call fills it in.
type AssessmentResult struct {
	BaseModel
	UserID     uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	User       *User          `json:"user,omitempty"`
	TestID     uuid.UUID      `gorm:"type:uuid;index" json:"test_id"`
	Test       *Test          `json:"test,omitempty"`
	Answers    datatypes.JSON `gorm:"type:jsonb" json:"answers"`
	AIAnalysis datatypes.JSON `gorm:"type:jsonb" json:"ai_analysis"`
}
