package relay

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
)

// DashboardFile is the well-known workspace path the relay maintains.
const DashboardFile = "Dashboard.tsx"

var codeBlockRe = regexp.MustCompile("(?s)```(?:typescript|tsx|ts)\n(.*?)```")

// ExtractDashboard scans the assistant's full response for fenced
// TypeScript/TSX blocks and writes each qualifying block to Dashboard.tsx
// under root. Blocks apply in textual order and each write replaces the
// previous one: last matching block wins, deliberately. Returns the number
// of blocks written; individual write failures are logged and skipped.
func ExtractDashboard(text, root string) int {
	wrote := 0
	for _, m := range codeBlockRe.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if !looksLikeDashboard(code) {
			continue
		}
		target := filepath.Join(root, DashboardFile)
		if err := os.WriteFile(target, []byte(code), 0o644); err != nil {
			logger.Error("failed to write extracted dashboard", "error", err)
			continue
		}
		wrote++
	}
	if wrote > 0 {
		logger.Info("updated dashboard from response", "blocks", wrote)
	}
	return wrote
}

// looksLikeDashboard reports whether a code block reads as a complete
// dashboard component rather than a snippet.
func looksLikeDashboard(code string) bool {
	return strings.Contains(code, "export default") ||
		strings.Contains(code, "function Dashboard") ||
		strings.Contains(code, "const Dashboard")
}
