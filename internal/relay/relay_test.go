package relay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/liamhamilton123/dashboard-builder/internal/llm"
)

const testDashboardCode = "export default function Dashboard() {\n  return <div>hi</div>;\n}\n"

// scriptedReply is a full assistant response whose tsx block qualifies for
// extraction.
const scriptedReply = "Here you go:\n\n```tsx\n" + testDashboardCode + "```\n"

func collectEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(events))
		}
	}
}

func TestSendStreamsThenCompletes(t *testing.T) {
	root := t.TempDir()
	half := len(scriptedReply) / 2
	provider := &llm.DummyProvider{
		Fragments: []string{scriptedReply[:half], scriptedReply[half:]},
		Delay:     time.Millisecond,
		FailAfter: -1,
	}
	r := New(provider, "test-model", 1000)

	events := collectEvents(t, r.Send(context.Background(), "sess1", "make a dashboard", root))

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != EventStream || events[0].Delta != scriptedReply[:half] {
		t.Errorf("event 0 = %+v, want first fragment", events[0])
	}
	if events[1].Type != EventStream || events[1].Delta != scriptedReply[half:] {
		t.Errorf("event 1 = %+v, want second fragment", events[1])
	}
	final := events[2]
	if final.Type != EventComplete {
		t.Fatalf("terminal event = %+v, want complete", final)
	}
	if final.Message != scriptedReply {
		t.Errorf("complete message = %q, want full reply", final.Message)
	}
	if final.Files[DashboardFile] != testDashboardCode {
		t.Errorf("complete files[%s] = %q, want extracted block", DashboardFile, final.Files[DashboardFile])
	}

	onDisk, err := os.ReadFile(filepath.Join(root, DashboardFile))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(onDisk) != testDashboardCode {
		t.Errorf("on-disk dashboard = %q, want extracted block", onDisk)
	}

	hist := r.History("sess1")
	if len(hist) != 2 {
		t.Fatalf("history has %d messages, want 2", len(hist))
	}
	if hist[0].Role != llm.RoleUser || hist[1].Role != llm.RoleAssistant {
		t.Errorf("history roles = %s, %s", hist[0].Role, hist[1].Role)
	}
	if hist[1].Content != scriptedReply {
		t.Errorf("assistant turn = %q, want full reply", hist[1].Content)
	}
}

func TestSendIncludesWorkspaceContext(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, DashboardFile), []byte("old code"), 0o644); err != nil {
		t.Fatal(err)
	}
	provider := &llm.DummyProvider{Fragments: []string{"no code this time"}, FailAfter: -1}
	r := New(provider, "test-model", 1000)

	collectEvents(t, r.Send(context.Background(), "sess1", "tweak it", root))

	hist := r.History("sess1")
	if len(hist) != 2 {
		t.Fatalf("history has %d messages, want 2", len(hist))
	}
	if !strings.Contains(hist[0].Content, "**Current files:**") {
		t.Errorf("user turn missing file context: %q", hist[0].Content)
	}
	if !strings.Contains(hist[0].Content, "### "+DashboardFile) || !strings.Contains(hist[0].Content, "old code") {
		t.Errorf("user turn missing %s content: %q", DashboardFile, hist[0].Content)
	}
}

func TestSendProviderFailureMidStream(t *testing.T) {
	provider := &llm.DummyProvider{
		Fragments: []string{"one", "two", "three"},
		Delay:     time.Millisecond,
		FailAfter: 1,
	}
	r := New(provider, "test-model", 1000)

	events := collectEvents(t, r.Send(context.Background(), "sess1", "hello", t.TempDir()))

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Type != EventStream || events[0].Delta != "one" {
		t.Errorf("event 0 = %+v, want first fragment", events[0])
	}
	if events[1].Type != EventError || events[1].Err == "" {
		t.Errorf("terminal event = %+v, want error with detail", events[1])
	}

	// The user turn survives the failure; no partial assistant turn is kept.
	hist := r.History("sess1")
	if len(hist) != 1 || hist[0].Role != llm.RoleUser {
		t.Errorf("history after failure = %+v, want single user turn", hist)
	}
}

func TestStopCancelsInflightTurn(t *testing.T) {
	provider := &llm.DummyProvider{
		Fragments: splitTestFragments("a long response that keeps streaming for a while", 4),
		Delay:     50 * time.Millisecond,
		FailAfter: -1,
	}
	r := New(provider, "test-model", 1000)

	ch := r.Send(context.Background(), "sess1", "hello", t.TempDir())

	// Wait for the first fragment so the turn is definitely in flight.
	first := <-ch
	if first.Type != EventStream {
		t.Fatalf("first event = %+v, want stream", first)
	}
	if !r.Stop("sess1") {
		t.Fatal("Stop returned false with a turn in flight")
	}

	events := collectEvents(t, ch)
	if len(events) == 0 {
		t.Fatal("no events after stop")
	}
	final := events[len(events)-1]
	if final.Type != EventCancelled {
		t.Errorf("terminal event = %+v, want cancelled", final)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Type != EventStream {
			t.Errorf("non-stream event before terminal: %+v", ev)
		}
	}

	hist := r.History("sess1")
	if len(hist) != 1 || hist[0].Role != llm.RoleUser {
		t.Errorf("history after cancel = %+v, want single user turn", hist)
	}
}

func TestStopWithNothingInflight(t *testing.T) {
	r := New(llm.NewDummyProvider(), "test-model", 1000)
	if r.Stop("sess1") {
		t.Error("Stop returned true for idle session")
	}
}

func TestSendSerializesPerSession(t *testing.T) {
	provider := &llm.DummyProvider{
		Fragments: []string{"reply"},
		Delay:     20 * time.Millisecond,
		FailAfter: -1,
	}
	r := New(provider, "test-model", 1000)
	root := t.TempDir()

	ch1 := r.Send(context.Background(), "sess1", "first", root)
	ch2 := r.Send(context.Background(), "sess1", "second", root)

	ev1 := collectEvents(t, ch1)
	ev2 := collectEvents(t, ch2)
	if ev1[len(ev1)-1].Type != EventComplete || ev2[len(ev2)-1].Type != EventComplete {
		t.Fatalf("both turns should complete: %+v / %+v", ev1, ev2)
	}

	// Serialized turns append in strict user/assistant alternation.
	hist := r.History("sess1")
	if len(hist) != 4 {
		t.Fatalf("history has %d messages, want 4", len(hist))
	}
	wantRoles := []string{llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant}
	for i, want := range wantRoles {
		if hist[i].Role != want {
			t.Errorf("history[%d].Role = %s, want %s", i, hist[i].Role, want)
		}
	}
}

func TestClearDropsHistory(t *testing.T) {
	r := New(&llm.DummyProvider{Fragments: []string{"ok"}, FailAfter: -1}, "test-model", 1000)
	collectEvents(t, r.Send(context.Background(), "sess1", "hello", t.TempDir()))
	if len(r.History("sess1")) == 0 {
		t.Fatal("expected history before clear")
	}
	r.Clear("sess1")
	if got := r.History("sess1"); len(got) != 0 {
		t.Errorf("history after clear = %+v, want empty", got)
	}
}

func TestComposeUserTurnSortsFiles(t *testing.T) {
	got := composeUserTurn("question", map[string]string{
		"b.tsx": "bee",
		"a.tsx": "ay",
	})
	ai := strings.Index(got, "### a.tsx")
	bi := strings.Index(got, "### b.tsx")
	if ai < 0 || bi < 0 || ai > bi {
		t.Errorf("file sections out of order: %q", got)
	}
	if !strings.HasPrefix(got, "question\n\n**Current files:**\n") {
		t.Errorf("unexpected prefix: %q", got)
	}
}

func splitTestFragments(s string, size int) []string {
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
