// mitra/capture/bridge.go
package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// BridgeSource pulls audio chunks from a microphone bridge: an external
// process (typically a browser tab holding the actual microphone grant) that
// streams captured PCM as binary websocket messages. Dial failure is the
// device-absent case.
type BridgeSource struct {
	url    string
	format string

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func NewBridgeSource(url, format string) *BridgeSource {
	if format == "" {
		format = "pcm"
	}
	return &BridgeSource{url: url, format: format}
}

func (s *BridgeSource) Format() string {
	return s.format
}

func (s *BridgeSource) Start(ctx context.Context) (<-chan []byte, error) {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("mic bridge dial: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for {
			typ, data, err := conn.Read(readCtx)
			if err != nil {
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}
			select {
			case ch <- data:
			case <-readCtx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *BridgeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		err := s.conn.Close(websocket.StatusNormalClosure, "capture stopped")
		s.conn = nil
		return err
	}
	return nil
}
