package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"mitra/mitra/capture"
	"mitra/mitra/gateway"
	"mitra/mitra/session"
	"mitra/mitra/types"
	"mitra/mitra/utils/logging"
)

// --- Helpers ---

// scriptedCaller answers /teacher/query and /teacher/query-voice from a
// script and records what the dispatcher sent. observe runs at request time,
// before the response is produced.
type scriptedCaller struct {
	mu       sync.Mutex
	response types.QueryResponse
	err      error
	requests []types.QueryRequest
	voice    []map[string]string
	observe  func()
}

func (c *scriptedCaller) Call(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if endpoint == "/teacher/sessions" {
		*(out.(*[]types.SessionRecord)) = []types.SessionRecord{}
		return nil
	}
	c.mu.Lock()
	c.requests = append(c.requests, body.(types.QueryRequest))
	c.mu.Unlock()
	if c.observe != nil {
		c.observe()
	}
	if c.err != nil {
		return c.err
	}
	*(out.(*types.QueryResponse)) = c.response
	return nil
}

func (c *scriptedCaller) CallMultipart(ctx context.Context, endpoint, fileName string, file []byte, fields map[string]string, out interface{}) error {
	c.mu.Lock()
	rec := map[string]string{"file_name": fileName, "file_len": strconv.Itoa(len(file))}
	for k, v := range fields {
		rec[k] = v
	}
	c.voice = append(c.voice, rec)
	c.mu.Unlock()
	if c.observe != nil {
		c.observe()
	}
	if c.err != nil {
		return c.err
	}
	*(out.(*types.QueryResponse)) = c.response
	return nil
}

func okResponse(sessionID string) types.QueryResponse {
	return types.QueryResponse{
		AnswerText:       "2+2 equals 4.",
		DetectedTopic:    "Mathematics",
		QuerySentiment:   "Curious",
		DetectedLanguage: "English",
		SuggestedActions: []string{"Check Activity 2.1"},
		SessionID:        sessionID,
	}
}

func newTestDispatcher(t *testing.T, caller *scriptedCaller) (*Dispatcher, *session.Store) {
	t.Helper()
	logging.InitLogger(t.TempDir())
	store := session.NewStore(caller, nil)
	return New(caller, store), store
}

func TestOptimisticAppendVisibleBeforeResolution(t *testing.T) {
	caller := &scriptedCaller{response: okResponse("s1")}
	var seenAtRequestTime []session.Message
	d, store := newTestDispatcher(t, caller)
	caller.observe = func() {
		seenAtRequestTime = store.Messages()
	}

	if _, err := d.SendText(context.Background(), "What is 2+2?"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(seenAtRequestTime) != 1 {
		t.Fatalf("expected the user message visible at request time, got %d messages", len(seenAtRequestTime))
	}
	if seenAtRequestTime[0].Kind != session.KindUser || seenAtRequestTime[0].Text != "What is 2+2?" {
		t.Errorf("unexpected optimistic message %+v", seenAtRequestTime[0])
	}
}

func TestFirstExchangeBindsSessionForever(t *testing.T) {
	caller := &scriptedCaller{response: okResponse("s1")}
	d, store := newTestDispatcher(t, caller)

	if _, err := d.SendText(context.Background(), "What is 2+2?"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if store.ActiveID() != "s1" {
		t.Fatalf("expected adopted session s1, got %q", store.ActiveID())
	}
	if caller.requests[0].SessionID != "" {
		t.Errorf("first request should carry no session id, got %q", caller.requests[0].SessionID)
	}

	// server echoing a different id must not rebind the conversation
	caller.response = okResponse("s2")
	if _, err := d.SendText(context.Background(), "And 3+3?"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if caller.requests[1].SessionID != "s1" {
		t.Errorf("second request must carry s1, got %q", caller.requests[1].SessionID)
	}
	if store.ActiveID() != "s1" {
		t.Errorf("identifier changed after adoption: %q", store.ActiveID())
	}
}

func TestHistoryContextExcludesCurrentQuery(t *testing.T) {
	caller := &scriptedCaller{response: okResponse("s1")}
	d, _ := newTestDispatcher(t, caller)

	d.SendText(context.Background(), "first question")
	d.SendText(context.Background(), "second question")

	if len(caller.requests[0].ChatHistory) != 0 {
		t.Errorf("first request should have empty context, got %+v", caller.requests[0].ChatHistory)
	}
	second := caller.requests[1].ChatHistory
	if len(second) != 2 {
		t.Fatalf("expected prior exchange as context, got %d turns", len(second))
	}
	if second[0].Content != "first question" || second[1].Role != "assistant" {
		t.Errorf("unexpected context %+v", second)
	}
	for _, turn := range second {
		if turn.Content == "second question" {
			t.Error("current query leaked into its own context")
		}
	}
}

func TestFailureBecomesConversationContent(t *testing.T) {
	caller := &scriptedCaller{err: &gateway.RequestError{Status: 500, Message: "model overloaded"}}
	d, store := newTestDispatcher(t, caller)

	ex, err := d.SendText(context.Background(), "hello?")
	if err != nil {
		t.Fatalf("send itself must not fail: %v", err)
	}
	if ex.State != Failed {
		t.Fatalf("expected Failed exchange, got %v", ex.State)
	}

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user turn + surrogate, got %d", len(msgs))
	}
	if msgs[0].Kind != session.KindUser {
		t.Error("user message was retracted on failure")
	}
	surrogate := msgs[1]
	if surrogate.Kind != session.KindAssistantError {
		t.Fatalf("expected error surrogate, got %v", surrogate.Kind)
	}
	if surrogate.Text != "Error: model overloaded" {
		t.Errorf("unexpected surrogate text %q", surrogate.Text)
	}
	if surrogate.Meta.Topic != session.ErrorTopic || surrogate.Meta.Language != session.UnknownLanguage {
		t.Errorf("expected sentinel classification, got %+v", surrogate.Meta)
	}
}

func TestUnauthorizedSkipsSurrogate(t *testing.T) {
	caller := &scriptedCaller{err: gateway.ErrUnauthorized}
	d, store := newTestDispatcher(t, caller)

	ex, err := d.SendText(context.Background(), "hello?")
	if err != nil {
		t.Fatalf("send itself must not fail: %v", err)
	}
	if ex.State != Failed || !errors.Is(ex.Err, gateway.ErrUnauthorized) {
		t.Fatalf("expected Failed with ErrUnauthorized, got %v %v", ex.State, ex.Err)
	}
	msgs := store.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected only the optimistic user turn, got %d", len(msgs))
	}
}

func TestOverlappingSendRejectedBeforeAppend(t *testing.T) {
	release := make(chan struct{})
	caller := &scriptedCaller{response: okResponse("s1")}
	d, store := newTestDispatcher(t, caller)
	caller.observe = func() { <-release }

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		d.SendText(context.Background(), "slow question")
	}()

	// wait until the first exchange is in flight
	deadline := time.Now().Add(2 * time.Second)
	for len(store.Messages()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first exchange never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := d.SendText(context.Background(), "impatient question")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(store.Messages()) != 1 {
		t.Error("rejected send must not append a turn")
	}

	close(release)
	<-firstDone
	if len(store.Messages()) != 2 {
		t.Errorf("expected completed first exchange, got %d messages", len(store.Messages()))
	}
}

func TestSendVoiceUsesPlaceholderAndMultipartFields(t *testing.T) {
	caller := &scriptedCaller{response: okResponse("s1")}
	d, store := newTestDispatcher(t, caller)

	// prior exchange so the voice query carries both context and session id
	d.SendText(context.Background(), "warmup")

	asset := capture.Asset{Data: []byte{9, 9}, Format: "pcm"}
	ex, err := d.SendVoice(context.Background(), asset)
	if err != nil {
		t.Fatalf("send voice failed: %v", err)
	}
	if ex.State != Confirmed {
		t.Fatalf("expected Confirmed, got %v", ex.State)
	}

	msgs := store.Messages()
	userTurn := msgs[2]
	if userTurn.Text != session.VoiceQueryLabel || !userTurn.Voice {
		t.Errorf("expected voice placeholder turn, got %+v", userTurn)
	}

	sent := caller.voice[0]
	if sent["file_name"] != "recording.pcm" {
		t.Errorf("unexpected file name %q", sent["file_name"])
	}
	if sent["session_id"] != "s1" {
		t.Errorf("expected session_id field s1, got %q", sent["session_id"])
	}
	var turns []types.HistoryTurn
	if err := json.Unmarshal([]byte(sent["chat_history"]), &turns); err != nil {
		t.Fatalf("chat_history is not valid JSON: %v", err)
	}
	if len(turns) != 2 {
		t.Errorf("expected serialized warmup exchange, got %d turns", len(turns))
	}
}
