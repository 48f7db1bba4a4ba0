// mitra/stub/store.go
package stub

import (
	"sort"
	"sync"
	"time"

	"mitra/mitra/types"
)

type storedSession struct {
	record    types.SessionRecord
	updatedAt time.Time
}

// memoryStore keeps per-teacher session history for the stub's lifetime.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*storedSession // teacherID -> sessionID -> session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]map[string]*storedSession)}
}

// append records one exchange, creating the session on first use.
func (m *memoryStore) append(teacherID, sessionID string, msg types.StoredMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.sessions[teacherID]
	if !ok {
		byID = make(map[string]*storedSession)
		m.sessions[teacherID] = byID
	}
	sess, ok := byID[sessionID]
	if !ok {
		sess = &storedSession{record: types.SessionRecord{
			SessionID:  sessionID,
			FirstQuery: msg.QueryText,
		}}
		byID[sessionID] = sess
	}
	sess.record.Messages = append(sess.record.Messages, msg)
	sess.updatedAt = msg.Timestamp
}

// list returns a teacher's sessions, most recently active first.
func (m *memoryStore) list(teacherID string) []types.SessionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := m.sessions[teacherID]
	sessions := make([]*storedSession, 0, len(byID))
	for _, s := range byID {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].updatedAt.After(sessions[j].updatedAt)
	})

	records := make([]types.SessionRecord, 0, len(sessions))
	for _, s := range sessions {
		rec := s.record
		rec.Messages = append([]types.StoredMessage(nil), s.record.Messages...)
		records = append(records, rec)
	}
	return records
}

// allMessages flattens every stored exchange for a set of teachers.
func (m *memoryStore) allMessages(teacherIDs []string) []types.StoredMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.StoredMessage
	for _, id := range teacherIDs {
		for _, sess := range m.sessions[id] {
			out = append(out, sess.record.Messages...)
		}
	}
	return out
}
