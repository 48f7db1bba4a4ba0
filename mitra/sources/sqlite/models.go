// mitra/sources/sqlite/models.go
package sqlite

import "time"

// CachedSession mirrors one session summary from the last successful
// listing. Position preserves the server's ordering, which the client does
// not reinterpret.
type CachedSession struct {
	SessionID  string `gorm:"primaryKey;type:varchar(255)"`
	FirstQuery string `gorm:"type:text"`
	Position   int    `gorm:"not null"`
	FetchedAt  time.Time
}

func (CachedSession) TableName() string {
	return "cached_sessions"
}

// CachedMessage is one stored exchange of a cached session.
type CachedMessage struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	SessionID        string `gorm:"index;type:varchar(255);not null"`
	Position         int    `gorm:"not null"`
	QueryText        string `gorm:"type:text"`
	AnswerText       string `gorm:"type:text"`
	DetectedTopic    string `gorm:"type:varchar(255)"`
	QuerySentiment   string `gorm:"type:varchar(255)"`
	DetectedLanguage string `gorm:"type:varchar(255)"`
	SourceType       string `gorm:"type:varchar(50)"`
	Timestamp        time.Time
}

func (CachedMessage) TableName() string {
	return "cached_messages"
}
