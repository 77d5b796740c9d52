package relay

import (
	"os"
	"path/filepath"
	"testing"
)

func readDashboard(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, DashboardFile))
	if err != nil {
		t.Fatalf("read %s: %v", DashboardFile, err)
	}
	return string(data)
}

func TestExtractDashboardWritesBlock(t *testing.T) {
	root := t.TempDir()
	text := "Here's your dashboard:\n\n```tsx\nexport default function Dashboard() {\n  return <div>ok</div>;\n}\n```\n\nLet me know if you want changes."

	if got := ExtractDashboard(text, root); got != 1 {
		t.Fatalf("wrote %d blocks, want 1", got)
	}
	want := "export default function Dashboard() {\n  return <div>ok</div>;\n}\n"
	if got := readDashboard(t, root); got != want {
		t.Errorf("dashboard content = %q, want %q", got, want)
	}
}

func TestExtractDashboardLastBlockWins(t *testing.T) {
	root := t.TempDir()
	text := "First attempt:\n```tsx\nexport default function Dashboard() { return <div>v1</div>; }\n```\n" +
		"Actually, use this instead:\n```typescript\nexport default function Dashboard() { return <div>v2</div>; }\n```\n"

	if got := ExtractDashboard(text, root); got != 2 {
		t.Fatalf("wrote %d blocks, want 2", got)
	}
	if got := readDashboard(t, root); got != "export default function Dashboard() { return <div>v2</div>; }\n" {
		t.Errorf("dashboard content = %q, want second block", got)
	}
}

func TestExtractDashboardSkipsNonComponents(t *testing.T) {
	root := t.TempDir()
	text := "Install it like this:\n```ts\nconst data = [1, 2, 3];\nconsole.log(data);\n```\n"

	if got := ExtractDashboard(text, root); got != 0 {
		t.Fatalf("wrote %d blocks, want 0", got)
	}
	if _, err := os.Stat(filepath.Join(root, DashboardFile)); !os.IsNotExist(err) {
		t.Errorf("expected no %s, stat err = %v", DashboardFile, err)
	}
}

func TestExtractDashboardIgnoresOtherLanguages(t *testing.T) {
	root := t.TempDir()
	text := "```python\nconst Dashboard = None  # not really\n```\n"

	if got := ExtractDashboard(text, root); got != 0 {
		t.Fatalf("wrote %d blocks, want 0", got)
	}
}

func TestExtractDashboardNoBlocks(t *testing.T) {
	if got := ExtractDashboard("Just prose, no code at all.", t.TempDir()); got != 0 {
		t.Fatalf("wrote %d blocks, want 0", got)
	}
}
