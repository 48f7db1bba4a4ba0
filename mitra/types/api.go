// mitra/types/api.go
package types

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CRPID       string `json:"crp_id,omitempty"`
}

// HistoryTurn is one prior turn sent as conversational context with a query.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type QueryRequest struct {
	QueryText   string        `json:"query_text"`
	ChatHistory []HistoryTurn `json:"chat_history"`
	SessionID   string        `json:"session_id,omitempty"`
}

// QueryResponse is the decoded result of one exchange. SessionID is always
// set: the server assigns one when the request carried none.
type QueryResponse struct {
	AnswerText       string   `json:"answer_text"`
	DetectedTopic    string   `json:"detected_topic"`
	QuerySentiment   string   `json:"query_sentiment"`
	DetectedLanguage string   `json:"detected_language"`
	SuggestedActions []string `json:"suggested_actions"`
	SessionID        string   `json:"session_id"`
}

// StoredMessage is one persisted exchange inside a session record.
type StoredMessage struct {
	QueryText        string    `json:"query_text"`
	AnswerText       string    `json:"answer_text"`
	DetectedTopic    string    `json:"detected_topic"`
	QuerySentiment   string    `json:"query_sentiment"`
	DetectedLanguage string    `json:"detected_language"`
	SourceType       string    `json:"source_type,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// SessionRecord is a session summary as returned by GET /teacher/sessions.
// Ordering of the outer list is server-determined (most recent first).
type SessionRecord struct {
	SessionID  string          `json:"session_id"`
	FirstQuery string          `json:"first_query"`
	Messages   []StoredMessage `json:"messages"`
}
