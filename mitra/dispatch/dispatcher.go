// mitra/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"mitra/mitra/capture"
	"mitra/mitra/gateway"
	"mitra/mitra/session"
	"mitra/mitra/types"
	"mitra/mitra/utils/logging"
)

// ErrBusy is returned when a Send overlaps an in-flight exchange. The
// rejection happens before the optimistic append, so no turn is recorded.
var ErrBusy = errors.New("an exchange is already in flight")

type ExchangeState int

const (
	Pending ExchangeState = iota
	Confirmed
	Failed
)

// Exchange tracks one submission through Pending -> Confirmed | Failed.
// Confirmed carries the decoded result (including the resolved session
// identifier); Failed carries the error that was turned into the surrogate.
type Exchange struct {
	State  ExchangeState
	Result *types.QueryResponse
	Err    error
}

// Caller is the slice of the request gateway the dispatcher needs.
type Caller interface {
	Call(ctx context.Context, method, endpoint string, body, out interface{}) error
	CallMultipart(ctx context.Context, endpoint, fileName string, file []byte, fields map[string]string, out interface{}) error
}

// Dispatcher coordinates one exchange (text or voice) against the current
// session: optimistic append, submission, session-identity resolution, and
// reconciliation into the store.
type Dispatcher struct {
	gw    Caller
	store *session.Store
	busy  atomic.Bool
}

func New(gw Caller, store *session.Store) *Dispatcher {
	return &Dispatcher{gw: gw, store: store}
}

// SendText submits a text query. The user's message is visible in the store
// before the network call is made.
func (d *Dispatcher) SendText(ctx context.Context, text string) (*Exchange, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer d.busy.Store(false)
	defer logging.LogDuration(ctx, "Dispatcher.SendText")()

	history := d.store.HistoryTurns()
	d.store.AppendUser(text, false)

	req := types.QueryRequest{
		QueryText:   text,
		ChatHistory: history,
		SessionID:   d.store.ActiveID(),
	}
	ex := &Exchange{State: Pending}
	var res types.QueryResponse
	err := d.gw.Call(ctx, http.MethodPost, "/teacher/query", req, &res)
	d.settle(ctx, ex, &res, err)
	return ex, nil
}

// SendVoice submits a finished capture. The conversation shows the fixed
// voice placeholder as the optimistic user turn; the asset itself is used
// once and not retained.
func (d *Dispatcher) SendVoice(ctx context.Context, asset capture.Asset) (*Exchange, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer d.busy.Store(false)
	defer logging.LogDuration(ctx, "Dispatcher.SendVoice")()

	history := d.store.HistoryTurns()
	d.store.AppendUser(session.VoiceQueryLabel, true)

	fields := map[string]string{
		"chat_history": marshalHistory(history),
	}
	if id := d.store.ActiveID(); id != "" {
		fields["session_id"] = id
	}
	ex := &Exchange{State: Pending}
	var res types.QueryResponse
	err := d.gw.CallMultipart(ctx, "/teacher/query-voice", asset.FileName(), asset.Data, fields, &res)
	d.settle(ctx, ex, &res, err)
	return ex, nil
}

// settle reconciles the server outcome into the store. All failures
// terminate here as conversation content. An authentication rejection is the
// one exception: the gateway has already forced the unauthenticated state,
// so no surrogate is appended to a conversation about to disappear.
func (d *Dispatcher) settle(ctx context.Context, ex *Exchange, res *types.QueryResponse, err error) {
	if err != nil {
		ex.State = Failed
		ex.Err = err
		if !errors.Is(err, gateway.ErrUnauthorized) {
			d.store.AppendFailure("Error: " + err.Error())
		}
		return
	}
	d.store.Adopt(res.SessionID)
	d.store.AppendAssistant(res)
	// sidebar refresh; degraded results are the store's concern
	d.store.ListSessions(ctx)
	ex.State = Confirmed
	ex.Result = res
}

func marshalHistory(turns []types.HistoryTurn) string {
	data, err := json.Marshal(turns)
	if err != nil {
		return "[]"
	}
	return string(data)
}
