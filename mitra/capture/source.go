// mitra/capture/source.go
package capture

import (
	"context"
	"errors"
	"io"
	"sync"
)

const readerChunkSize = 4096

// ReaderSource adapts any byte stream (a recorder subprocess pipe, stdin, a
// test buffer) into a capture Source. The stream ends on EOF or Stop; when
// the reader also implements io.Closer, Stop closes it to unblock a pending
// Read.
type ReaderSource struct {
	mu     sync.Mutex
	r      io.Reader
	format string
	stop   chan struct{}
}

func NewReaderSource(r io.Reader, format string) *ReaderSource {
	return &ReaderSource{r: r, format: format}
}

func (s *ReaderSource) Format() string {
	return s.format
}

func (s *ReaderSource) Start(ctx context.Context) (<-chan []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.r == nil {
		return nil, errors.New("no capture device")
	}
	s.stop = make(chan struct{})
	stop := s.stop

	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for {
			buf := make([]byte, readerChunkSize)
			n, err := s.r.Read(buf)
			if n > 0 {
				select {
				case ch <- buf[:n]:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return ch, nil
}

func (s *ReaderSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
