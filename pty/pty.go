// Package pty implements the PTY session manager: it opens native PTY
// pairs, spawns a shell of the requested kind attached to the slave
// end, and streams the master's output to a host-supplied emitter in
// UTF-8- and ANSI-escape-boundary-safe chunks (spec §4.9).
package pty

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	creackpty "github.com/creack/pty"
	"github.com/google/uuid"
)

// ShellType names the kind of shell to spawn inside the PTY.
type ShellType int

const (
	PowerShell ShellType = iota
	Cmd
	Wsl
	GitBash
)

func (s ShellType) String() string {
	switch s {
	case PowerShell:
		return "powershell"
	case Cmd:
		return "cmd"
	case Wsl:
		return "wsl"
	case GitBash:
		return "gitbash"
	}
	return "unknown"
}

// Config describes a requested PTY session (spec §4.9 step 1-3).
type Config struct {
	Shell ShellType
	Rows  uint16
	Cols  uint16
	Cwd   string
}

// Emitter receives named events from a session's worker goroutine,
// mirroring the host spawn protocol of spec §6: name is either
// "pty-output" or "pty-exit".
type Emitter interface {
	Emit(name string, payload any)
}

// OutputPayload is the payload of a "pty-output" event.
type OutputPayload struct {
	PtyID string
	Data  string
}

// ExitPayload is the payload of a "pty-exit" event. ExitCode is nil
// when the child's exit status could not be determined.
type ExitPayload struct {
	PtyID    string
	ExitCode *int
}

// Info is the externally visible snapshot of a session (spec §6 PtyInfo).
type Info struct {
	ID               string
	ShellType        ShellType
	WorkingDirectory string
	IsAlive          bool
}

var ErrSessionNotFound = errors.New("pty: session not found")

type session struct {
	id      string
	shell   ShellType
	cwd     string
	master  *os.File
	cmd     *exec.Cmd
	emitter Emitter

	mu      sync.Mutex
	stopped bool
}

func (s *session) shouldStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *session) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Manager owns the set of live sessions. All accessors are guarded by
// a single mutex (spec §5 "sessions map is guarded by a mutex"); each
// session's worker goroutine holds exclusive ownership of its own
// reader and only touches the mutex for final removal.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager constructs an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*session)}
}

// Spawn opens a PTY pair, starts the requested shell attached to the
// slave end, and launches its worker goroutine (spec §4.9 steps 1-7).
func (m *Manager) Spawn(cfg Config, emitter Emitter) (string, error) {
	rows, cols := cfg.Rows, cfg.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}

	name, args := shellCommand(cfg.Shell)
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	if cfg.Cwd != "" {
		cmd.Dir = cfg.Cwd
	}

	return m.spawnCommand(cmd, cfg.Shell, cfg.Cwd, rows, cols, emitter)
}

// spawnCommand starts an already-built *exec.Cmd attached to a new PTY
// pair and registers its session; it is split out from Spawn so tests
// can exercise the worker loop against an arbitrary command instead of
// a platform shell binary.
func (m *Manager) spawnCommand(cmd *exec.Cmd, shell ShellType, cwd string, rows, cols uint16, emitter Emitter) (string, error) {
	master, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return "", fmt.Errorf("pty: spawn %s: %w", cmd.Path, err)
	}

	id := uuid.NewString()
	sess := &session{
		id:      id,
		shell:   shell,
		cwd:     cwd,
		master:  master,
		cmd:     cmd,
		emitter: emitter,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	go m.runWorker(sess)
	return id, nil
}

// SpawnDefault is the convenience entry point of spec §6
// (spawnDefault): rows=24, cols=80.
func (m *Manager) SpawnDefault(shell ShellType, cwd string, emitter Emitter) (string, error) {
	return m.Spawn(Config{Shell: shell, Rows: 24, Cols: 80, Cwd: cwd}, emitter)
}

const (
	readBufSize      = 16 * 1024
	carryoverMaxIdle = 6 // bytes below which a zero-length valid prefix is still buffered, not emitted
)

// runWorker is the dedicated worker goroutine contract of spec §4.9:
// read, UTF-8-boundary-split, ANSI-boundary-split, emit, repeat until
// stopped or EOF, then wait on the child and emit pty-exit.
func (m *Manager) runWorker(s *session) {
	buf := make([]byte, readBufSize)
	var carry []byte

	for {
		if s.shouldStop() {
			break
		}
		n, err := s.master.Read(buf)
		if n > 0 {
			combined := append(carry, buf[:n]...)
			validLen := validUTF8Prefix(combined)
			if validLen == 0 && len(combined) < carryoverMaxIdle {
				carry = combined
				continue
			}
			text := string(combined[:validLen])
			emittable, tail := splitIncompleteANSI(text)
			carry = append([]byte(nil), combined[validLen:]...)
			carry = append([]byte(tail), carry...)
			if emittable != "" {
				s.emitter.Emit("pty-output", OutputPayload{PtyID: s.id, Data: emittable})
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || isPTYClosed(err) {
				if len(carry) > 0 {
					s.emitter.Emit("pty-output", OutputPayload{PtyID: s.id, Data: string(carry)})
				}
				break
			}
			if isWouldBlock(err) {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			log.Printf("pty: session %s read error: %v", s.id, err)
			break
		}
	}

	var exitCode *int
	if err := s.cmd.Wait(); err != nil {
		if ec, ok := waitExitCode(err); ok {
			exitCode = &ec
		}
	} else {
		code := 0
		exitCode = &code
	}

	s.emitter.Emit("pty-exit", ExitPayload{PtyID: s.id, ExitCode: exitCode})

	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
}

// Write sends bytes to the session's PTY master (host "write" command).
func (m *Manager) Write(id string, data []byte) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	_, err = s.master.Write(data)
	return err
}

// Resize changes the PTY window size (host "resize" command).
func (m *Manager) Resize(id string, rows, cols uint16) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return creackpty.Setsize(s.master, &creackpty.Winsize{Rows: rows, Cols: cols})
}

// Kill sets the session's stop flag and removes it from the map so the
// worker's next iteration terminates (spec §4.9, §5 "Cancellation").
func (m *Manager) Kill(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.stop()
	_ = s.cmd.Process.Kill()
	return nil
}

// GetInfo returns a snapshot for a live session, or false when unknown.
func (m *Manager) GetInfo(id string) (Info, bool) {
	s, err := m.get(id)
	if err != nil {
		return Info{}, false
	}
	return Info{ID: s.id, ShellType: s.shell, WorkingDirectory: s.cwd, IsAlive: true}, true
}

// ListSessions returns the IDs of all currently live sessions.
func (m *Manager) ListSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// KillAll terminates every live session; the manager's destructor
// calls this (spec §4.9).
func (m *Manager) KillAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		_ = m.Kill(id)
	}
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// shellCommand resolves a ShellType into an executable name and
// argument list (spec §4.9 step 2). GitBash is resolved by probing a
// fixed sequence of install paths, then GIT_DIR, then any PATH
// directory whose name contains "git", finally falling back to a bare
// executable name.
func shellCommand(kind ShellType) (string, []string) {
	switch kind {
	case PowerShell:
		return "powershell.exe", []string{"-NoLogo"}
	case Cmd:
		return "cmd.exe", nil
	case Wsl:
		return "wsl.exe", nil
	case GitBash:
		return resolveGitBash(), []string{"--login", "-i"}
	}
	return defaultShell(), nil
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func resolveGitBash() string {
	candidates := []string{
		`C:\Program Files\Git\bin\bash.exe`,
		`C:\Program Files (x86)\Git\bin\bash.exe`,
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	if gitDir := os.Getenv("GIT_DIR"); gitDir != "" {
		candidate := filepath.Join(filepath.Dir(gitDir), "bin", "bash.exe")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if strings.Contains(strings.ToLower(dir), "git") {
			candidate := filepath.Join(dir, "bash.exe")
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return "bash.exe"
}
