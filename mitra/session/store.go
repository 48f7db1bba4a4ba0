// mitra/session/store.go
package session

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"mitra/mitra/types"
	"mitra/mitra/utils/logging"
)

// Caller is the slice of the request gateway the store needs.
type Caller interface {
	Call(ctx context.Context, method, endpoint string, body, out interface{}) error
}

// Cache mirrors the last good session listing so a listing failure can
// degrade to stale summaries instead of an empty sidebar. Optional.
type Cache interface {
	ReplaceSummaries(ctx context.Context, records []types.SessionRecord) error
	ListSummaries(ctx context.Context) ([]types.SessionRecord, error)
}

// Store owns the set of session summaries and the active session's ordered
// message list. The active list is mutated only through Store methods.
type Store struct {
	mu        sync.RWMutex
	gw        Caller
	cache     Cache
	activeID  string
	messages  []Message
	summaries []types.SessionRecord
}

func NewStore(gw Caller, cache Cache) *Store {
	return &Store{gw: gw, cache: cache}
}

// ActiveID is the server-assigned identifier of the active session, empty
// until the first exchange of a new conversation completes.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Messages returns a copy of the active conversation in insertion order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Summaries returns the most recently fetched session listing.
func (s *Store) Summaries() []types.SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]types.SessionRecord, len(s.summaries))
	copy(copied, s.summaries)
	return copied
}

// Adopt binds the active conversation to a server-assigned identifier. The
// first adoption wins; the identifier never changes for the conversation's
// lifetime, so a repeat call with any value is ignored.
func (s *Store) Adopt(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" && id != "" {
		s.activeID = id
	}
}

// AppendUser records the optimistic user turn. It is never retracted, even
// if the exchange later fails.
func (s *Store) AppendUser(text string, voice bool) Message {
	msg := newUserMessage(text, voice)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// AppendAssistant records the confirmed assistant turn of an exchange.
func (s *Store) AppendAssistant(res *types.QueryResponse) Message {
	msg := newAssistantMessage(res)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// AppendFailure records the error surrogate for a failed exchange so the
// turn is never silently dropped.
func (s *Store) AppendFailure(text string) Message {
	msg := newErrorMessage(text)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// ListSessions fetches all session summaries for the authenticated teacher.
// Ordering is server-determined. A failure degrades: cached summaries when a
// cache is wired and warm, an empty list otherwise. Never an error that
// blocks the caller.
func (s *Store) ListSessions(ctx context.Context) []types.SessionRecord {
	var records []types.SessionRecord
	err := s.gw.Call(ctx, http.MethodGet, "/teacher/sessions", nil, &records)
	if err != nil {
		logging.ErrorLogger.Error("session listing failed", zap.Error(err))
		if s.cache != nil {
			if cached, cerr := s.cache.ListSummaries(ctx); cerr == nil && len(cached) > 0 {
				s.setSummaries(cached)
				return cached
			}
		}
		s.setSummaries(nil)
		return []types.SessionRecord{}
	}
	if records == nil {
		records = []types.SessionRecord{}
	}
	s.setSummaries(records)
	if s.cache != nil {
		if cerr := s.cache.ReplaceSummaries(ctx, records); cerr != nil {
			logging.ErrorLogger.Error("session cache write failed", zap.Error(cerr))
		}
	}
	return records
}

func (s *Store) setSummaries(records []types.SessionRecord) {
	s.mu.Lock()
	s.summaries = records
	s.mu.Unlock()
}

// LoadSession replaces the active conversation with the stored session: the
// record's query/answer pairs flattened into alternating user/assistant
// messages, and the record's identifier adopted as active. Always a full
// replace; two session identifiers are never merged into one list.
func (s *Store) LoadSession(record types.SessionRecord) {
	msgs := flatten(record.Messages)
	s.mu.Lock()
	s.activeID = record.SessionID
	s.messages = msgs
	s.mu.Unlock()
}

// StartNew clears the active conversation and its identifier so the next
// exchange creates a fresh session server-side.
func (s *Store) StartNew() {
	s.mu.Lock()
	s.activeID = ""
	s.messages = nil
	s.mu.Unlock()
}

// HistoryTurns renders the active conversation as wire-level context turns.
func (s *Store) HistoryTurns() []types.HistoryTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]types.HistoryTurn, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Kind == KindAssistantError {
			// failed turns are conversation content for the user, not context
			// for the model
			continue
		}
		turns = append(turns, types.HistoryTurn{Role: m.Kind.Role(), Content: m.Text})
	}
	return turns
}
