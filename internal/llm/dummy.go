package llm

import (
	"context"
	"time"
)

const dummyDashboard = "Here's a simple dashboard to get you started:\n\n" +
	"```tsx\nexport default function Dashboard() {\n  return <div>Upload some data to begin</div>;\n}\n```\n"

// DummyProvider replays scripted fragments with a fixed delay between them.
// Used by tests and --dummy runs; no network.
type DummyProvider struct {
	Fragments []string
	Delay     time.Duration
	// FailAfter, when >= 0, aborts the stream with ErrScripted after that
	// many fragments have been sent.
	FailAfter int
}

// ErrScripted is the failure a DummyProvider injects when FailAfter fires.
var ErrScripted = errScripted{}

type errScripted struct{}

func (errScripted) Error() string { return "scripted provider failure" }

// NewDummyProvider returns a provider that streams a canned dashboard reply.
func NewDummyProvider() *DummyProvider {
	return &DummyProvider{
		Fragments: splitFragments(dummyDashboard, 24),
		Delay:     20 * time.Millisecond,
		FailAfter: -1,
	}
}

func (d *DummyProvider) Name() string {
	return "dummy"
}

func (d *DummyProvider) Stream(ctx context.Context, req Request) (*Stream, error) {
	stream := newStream(ctx)
	go func() {
		for i, frag := range d.Fragments {
			if d.FailAfter >= 0 && i >= d.FailAfter {
				stream.close(ErrScripted)
				return
			}
			select {
			case <-ctx.Done():
				stream.close(ctx.Err())
				return
			case <-time.After(d.Delay):
			}
			stream.send(frag)
		}
		if d.FailAfter >= 0 && d.FailAfter >= len(d.Fragments) {
			stream.close(ErrScripted)
			return
		}
		stream.close(nil)
	}()
	return stream, nil
}

func splitFragments(s string, size int) []string {
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
