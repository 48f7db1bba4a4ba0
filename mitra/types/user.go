// mitra/types/user.go
package types

import "time"

const (
	RoleCRP     = "crp"
	RoleTeacher = "teacher"
)

// Identity is the minimal user record kept beside the credential. Both are
// persisted together and cleared together on logout.
type Identity struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email" yaml:"email"`
	Role   string `json:"role" yaml:"role"`
	CRPID  string `json:"crp_id,omitempty" yaml:"crp_id,omitempty"`
}

// TeacherProfile is the per-teacher row in the CRP reporting views.
type TeacherProfile struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Grade        string     `json:"grade"`
	Subject      string     `json:"subject"`
	Location     string     `json:"location"`
	CRPID        string     `json:"crp_id"`
	TotalQueries int        `json:"total_queries"`
	LastActive   *time.Time `json:"last_active,omitempty"`
}

// CRPAnalytics is the aggregate reporting payload for a CRP.
type CRPAnalytics struct {
	CRPID                 string         `json:"crp_id"`
	TotalTeachers         int            `json:"total_teachers"`
	TotalQueries          int            `json:"total_queries"`
	TopTopics             []TopicCount   `json:"top_topics"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	LanguageDistribution  map[string]int `json:"language_distribution"`
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}
