// mitra/capture/recorder.go
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mitra/mitra/utils/logging"
)

// ErrCaptureUnavailable means microphone access was denied or no capture
// device exists. The recorder stays Idle.
var ErrCaptureUnavailable = errors.New("capture unavailable")

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Asset is one finished capture. It is handed to exactly one voice query and
// never persisted beyond that submission.
type Asset struct {
	Data       []byte
	Format     string
	CapturedAt time.Time
}

// FileName derives the upload name for the asset.
func (a Asset) FileName() string {
	return "recording." + a.Format
}

// Result is delivered on the channel returned by Stop once finalization
// completes.
type Result struct {
	Asset Asset
	Err   error
}

// Source is a stream of raw audio chunks from some capture device. Start
// acquires the device; the returned channel closes after Stop (or on device
// error), at which point the device is released.
type Source interface {
	Start(ctx context.Context) (<-chan []byte, error)
	Stop() error
	Format() string
}

// Recorder drives the Idle -> Recording -> Idle capture lifecycle. Chunk
// finalization is not instantaneous: Stop returns immediately and the Asset
// arrives on the returned channel once the source drains.
type Recorder struct {
	mu    sync.Mutex
	state State
	src   Source
	done  chan Result
}

func NewRecorder(src Source) *Recorder {
	return &Recorder{src: src}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the capture device and begins buffering chunks. Calling
// Start while already Recording is a no-op.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Recording {
		return nil
	}
	chunks, err := r.src.Start(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	r.state = Recording
	r.done = make(chan Result, 1)
	go pump(chunks, r.src.Format(), r.done)
	return nil
}

// Stop finalizes the buffered chunks into one Asset. Valid only from
// Recording; when Idle it is a no-op and the returned channel is already
// closed. The Asset is delivered asynchronously.
func (r *Recorder) Stop() <-chan Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording {
		ch := make(chan Result)
		close(ch)
		return ch
	}
	if err := r.src.Stop(); err != nil {
		logging.ErrorLogger.Error("capture source stop", zap.Error(err))
	}
	r.state = Idle
	return r.done
}

func pump(chunks <-chan []byte, format string, done chan<- Result) {
	var buf bytes.Buffer
	for c := range chunks {
		buf.Write(c)
	}
	done <- Result{Asset: Asset{Data: buf.Bytes(), Format: format, CapturedAt: time.Now()}}
	close(done)
}
