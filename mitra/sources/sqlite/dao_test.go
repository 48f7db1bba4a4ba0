package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mitra/mitra/types"
)

// --- Helpers ---

func newTestDAO(t *testing.T) *SessionCacheDAO {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return NewSessionCacheDAO(db.DB)
}

func sampleRecords() []types.SessionRecord {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	return []types.SessionRecord{
		{
			SessionID:  "s-recent",
			FirstQuery: "How do I teach fractions?",
			Messages: []types.StoredMessage{
				{
					QueryText:        "How do I teach fractions?",
					AnswerText:       "Start with halves and quarters.",
					DetectedTopic:    "Mathematics",
					QuerySentiment:   "Curious",
					DetectedLanguage: "English",
					SourceType:       "text",
					Timestamp:        base,
				},
				{
					QueryText:        "🎤 Voice query",
					AnswerText:       "Use paper folding next.",
					DetectedTopic:    "Mathematics",
					QuerySentiment:   "Neutral",
					DetectedLanguage: "English",
					SourceType:       "voice",
					Timestamp:        base.Add(5 * time.Minute),
				},
			},
		},
		{
			SessionID:  "s-older",
			FirstQuery: "My class is too noisy",
			Messages: []types.StoredMessage{
				{
					QueryText:        "My class is too noisy",
					AnswerText:       "Try a quiet signal routine.",
					DetectedTopic:    "Classroom Management",
					QuerySentiment:   "Frustrated",
					DetectedLanguage: "English",
					SourceType:       "text",
					Timestamp:        base.Add(-25 * time.Hour),
				},
			},
		},
	}
}

func TestReplaceAndListRoundTrip(t *testing.T) {
	dao := newTestDAO(t)
	ctx := context.Background()

	want := sampleRecords()
	if err := dao.ReplaceSummaries(ctx, want); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	got, err := dao.ListSummaries(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].SessionID != "s-recent" || got[1].SessionID != "s-older" {
		t.Errorf("listing order not preserved: %q, %q", got[0].SessionID, got[1].SessionID)
	}
	if got[0].FirstQuery != "How do I teach fractions?" {
		t.Errorf("unexpected first query %q", got[0].FirstQuery)
	}
	if len(got[0].Messages) != 2 {
		t.Fatalf("expected 2 messages on first record, got %d", len(got[0].Messages))
	}
	second := got[0].Messages[1]
	if second.SourceType != "voice" || second.AnswerText != "Use paper folding next." {
		t.Errorf("message order or fields lost: %+v", second)
	}
	if !second.Timestamp.Equal(want[0].Messages[1].Timestamp) {
		t.Errorf("timestamp not round-tripped: %v", second.Timestamp)
	}
}

func TestReplaceDiscardsPreviousListing(t *testing.T) {
	dao := newTestDAO(t)
	ctx := context.Background()

	if err := dao.ReplaceSummaries(ctx, sampleRecords()); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}

	next := []types.SessionRecord{
		{
			SessionID:  "s-new",
			FirstQuery: "What is photosynthesis?",
			Messages: []types.StoredMessage{
				{QueryText: "What is photosynthesis?", AnswerText: "Plants making food from light.", SourceType: "text"},
			},
		},
	}
	if err := dao.ReplaceSummaries(ctx, next); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	got, err := dao.ListSummaries(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "s-new" {
		t.Fatalf("previous listing survived the swap: %+v", got)
	}
	if len(got[0].Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(got[0].Messages))
	}
}

func TestReplaceWithEmptyClearsCache(t *testing.T) {
	dao := newTestDAO(t)
	ctx := context.Background()

	if err := dao.ReplaceSummaries(ctx, sampleRecords()); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := dao.ReplaceSummaries(ctx, nil); err != nil {
		t.Fatalf("empty replace failed: %v", err)
	}

	got, err := dao.ListSummaries(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty cache, got %d records", len(got))
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	ctx := context.Background()

	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := NewSessionCacheDAO(db.DB).ReplaceSummaries(ctx, sampleRecords()); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	reopened, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	got, err := NewSessionCacheDAO(reopened.DB).ListSummaries(ctx)
	if err != nil {
		t.Fatalf("list after reopen failed: %v", err)
	}
	if len(got) != 2 || got[0].SessionID != "s-recent" {
		t.Errorf("cached listing lost across reopen: %+v", got)
	}
}
