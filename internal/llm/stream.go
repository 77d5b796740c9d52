package llm

import (
	"context"
	"strings"
	"sync"
)

// Stream carries incremental text fragments from a provider. Next yields
// fragments in arrival order; Text returns everything consumed so far.
type Stream struct {
	ctx  context.Context
	ch   chan string
	mu   sync.Mutex
	text strings.Builder
	err  error
}

func newStream(ctx context.Context) *Stream {
	return &Stream{
		ctx: ctx,
		ch:  make(chan string, 64),
	}
}

func (s *Stream) send(delta string) {
	select {
	case s.ch <- delta:
	case <-s.ctx.Done():
	}
}

func (s *Stream) close(err error) {
	s.mu.Lock()
	if err == nil {
		err = s.ctx.Err()
	}
	s.err = err
	s.mu.Unlock()
	close(s.ch)
}

// Next returns the next fragment. ok is false once the stream is finished;
// check Err then.
func (s *Stream) Next() (delta string, ok bool) {
	select {
	case delta, ok = <-s.ch:
		if ok {
			s.mu.Lock()
			s.text.WriteString(delta)
			s.mu.Unlock()
		}
		return delta, ok
	case <-s.ctx.Done():
		return "", false
	}
}

// Text returns the accumulated text of all fragments consumed via Next.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Err returns the terminal error, nil on clean completion. Context
// cancellation surfaces here as the context's error.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return s.ctx.Err()
}
