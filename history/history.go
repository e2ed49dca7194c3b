// Package history implements the bounded command history FIFO, its
// navigation cursor, and disk persistence (spec §3, §4.6).
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2/maybe"
)

// DefaultCapacity is the default history size (spec §3).
const DefaultCapacity = 10000

// History is a bounded FIFO of command strings with a navigation cursor.
type History struct {
	entries  []string
	capacity int
	cursor   int // -1 == "current edit buffer"
}

// New creates an empty History with the given capacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity, cursor: -1}
}

// Add appends cmd, respecting the dedup/privacy/overflow invariants of
// spec §3: empty strings are dropped, adjacent duplicates are dropped,
// leading-space entries are dropped (privacy), and overflow evicts the
// oldest entry.
func (h *History) Add(cmd string) {
	if cmd == "" {
		return
	}
	if strings.HasPrefix(cmd, " ") {
		return
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
	h.ResetPosition()
}

// Len reports the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the stored commands, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear empties the history (`history -c`).
func (h *History) Clear() {
	h.entries = nil
	h.ResetPosition()
}

// ResetPosition returns the cursor to -1, the "current edit buffer" slot.
func (h *History) ResetPosition() { h.cursor = -1 }

// Previous moves the cursor toward older entries and returns the entry
// there, or ("", false) if already at the oldest entry.
func (h *History) Previous() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	next := h.cursor + 1
	if next >= len(h.entries) {
		return "", false
	}
	h.cursor = next
	return h.entries[len(h.entries)-1-h.cursor], true
}

// Next moves the cursor toward newer entries and returns the entry
// there, or ("", false) once the cursor has returned to -1.
func (h *History) Next() (string, bool) {
	if h.cursor <= -1 {
		return "", false
	}
	h.cursor--
	if h.cursor == -1 {
		return "", false
	}
	return h.entries[len(h.entries)-1-h.cursor], true
}

// Match is one hit from Search: its text and its 0-based index in Entries().
type Match struct {
	Index int
	Text  string
}

// Search returns every entry containing substr, oldest first.
func (h *History) Search(substr string) []Match {
	var out []Match
	for i, e := range h.entries {
		if strings.Contains(e, substr) {
			out = append(out, Match{Index: i, Text: e})
		}
	}
	return out
}

// SearchPrefix returns the most recent entry beginning with prefix.
func (h *History) SearchPrefix(prefix string) (string, bool) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if strings.HasPrefix(h.entries[i], prefix) {
			return h.entries[i], true
		}
	}
	return "", false
}

// Load reads one entry per line from path, matching the layout
// documented in spec §6. When the file holds more than capacity lines,
// only the last capacity of them (the most recent) are kept.
func (h *History) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read history %s: %w", path, err)
	}
	if len(lines) > h.capacity {
		lines = lines[len(lines)-h.capacity:]
	}
	h.entries = lines
	h.ResetPosition()
	return nil
}

// Save writes the history to path atomically (rename-into-place),
// creating the parent directory if needed, grounded in the teacher's
// use of github.com/google/renameio/v2/maybe for durable writes
// (cmd/shfmt/main.go).
func (h *History) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	var buf strings.Builder
	for _, e := range h.entries {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	if err := maybe.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("write history %s: %w", path, err)
	}
	return nil
}

// FilePath returns the per-user history file location for appName,
// matching spec §6's "<shell-name>_history under the per-user local-data
// directory" layout.
func FilePath(appName string) (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	base := filepath.Join(dir, ".local", "share", appName)
	return filepath.Join(base, appName+"_history"), nil
}
