// mitra/session/message.go
package session

import (
	"time"

	"github.com/google/uuid"

	"mitra/mitra/types"
)

// VoiceQueryLabel is the fixed placeholder shown for a voice submission; the
// spoken text is only known server-side after transcription.
const VoiceQueryLabel = "🎤 Voice query"

// Sentinel classification values carried by error surrogates so rendering
// can style them uniformly.
const (
	ErrorTopic      = "Error"
	ErrorSentiment  = "Error"
	UnknownLanguage = "Unknown"
)

// Kind tags the message variant. Keeping the error surrogate as its own kind
// (instead of an assistant message with magic fields) makes handling
// exhaustive at call sites.
type Kind int

const (
	KindUser Kind = iota
	KindAssistant
	KindAssistantError
)

// Role is the wire-level role for the kind.
func (k Kind) Role() string {
	if k == KindUser {
		return "user"
	}
	return "assistant"
}

// Meta is the classification metadata present on assistant messages.
type Meta struct {
	Topic            string
	Sentiment        string
	Language         string
	SuggestedActions []string
}

// Message is one entry in the active conversation, in insertion order.
type Message struct {
	ID        string
	Kind      Kind
	Text      string
	Voice     bool
	Meta      *Meta
	Timestamp time.Time
}

func newUserMessage(text string, voice bool) Message {
	return Message{
		ID:        uuid.New().String(),
		Kind:      KindUser,
		Text:      text,
		Voice:     voice,
		Timestamp: time.Now(),
	}
}

func newAssistantMessage(res *types.QueryResponse) Message {
	return Message{
		ID:   uuid.New().String(),
		Kind: KindAssistant,
		Text: res.AnswerText,
		Meta: &Meta{
			Topic:            res.DetectedTopic,
			Sentiment:        res.QuerySentiment,
			Language:         res.DetectedLanguage,
			SuggestedActions: res.SuggestedActions,
		},
		Timestamp: time.Now(),
	}
}

func newErrorMessage(text string) Message {
	return Message{
		ID:   uuid.New().String(),
		Kind: KindAssistantError,
		Text: text,
		Meta: &Meta{
			Topic:     ErrorTopic,
			Sentiment: ErrorSentiment,
			Language:  UnknownLanguage,
		},
		Timestamp: time.Now(),
	}
}

// flatten expands a session's stored query/answer pairs into the alternating
// user/assistant sequence, preserving original chronological order.
func flatten(stored []types.StoredMessage) []Message {
	messages := make([]Message, 0, len(stored)*2)
	for _, m := range stored {
		user := newUserMessage(m.QueryText, m.SourceType == "voice")
		user.Timestamp = m.Timestamp
		assistant := Message{
			ID:   uuid.New().String(),
			Kind: KindAssistant,
			Text: m.AnswerText,
			Meta: &Meta{
				Topic:     m.DetectedTopic,
				Sentiment: m.QuerySentiment,
				Language:  m.DetectedLanguage,
			},
			Timestamp: m.Timestamp,
		}
		messages = append(messages, user, assistant)
	}
	return messages
}
