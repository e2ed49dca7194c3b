// Package lineedit implements the interactive raw-mode line editor:
// buffer/cursor management, an escape-sequence finite state machine that
// decodes the raw-mode byte stream, and completion cycling (spec §4.7).
package lineedit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/yandanp/termshell/complete"
	"github.com/yandanp/termshell/environment"
	"github.com/yandanp/termshell/history"
)

// Outcome tags what ReadLine returned.
type Outcome int

const (
	Line Outcome = iota
	Interrupted
	EOF
)

// Result is ReadLine's return value.
type Result struct {
	Outcome Outcome
	Text    string
}

// Editor owns the text buffer, cursor, and terminal mode state for one
// interactive input session.
type Editor struct {
	In  *os.File
	Out io.Writer

	Env  *environment.Environment
	Hist *history.History

	prompt string
	buf    []rune
	cursor int

	hasTyped bool

	completing      bool
	completionIdx   int
	completionStart int // rune index in buf where the completed word begins
	candidates      []complete.Candidate
}

// NewEditor creates an Editor reading from in and writing prompts/redraws to out.
func NewEditor(in *os.File, out io.Writer, env *environment.Environment, hist *history.History) *Editor {
	return &Editor{In: in, Out: out, Env: env, Hist: hist}
}

// ReadLine reads one logical line. In raw mode it reads bytes one at a
// time and decodes them with the escape-sequence FSM. When In is not a
// terminal or raw mode cannot be acquired, it falls back to reading one
// cooked line: that path does no escape-sequence parsing and no per-key
// editing.
func (e *Editor) ReadLine(prompt string) Result {
	e.prompt = prompt
	e.buf = e.buf[:0]
	e.cursor = 0
	e.hasTyped = false
	e.resetCompletion()

	fd := int(e.In.Fd())
	if !term.IsTerminal(fd) {
		return e.readLineFallback()
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return e.readLineFallback()
	}
	// Raw-mode release is paired with acquisition on every exit path,
	// including panics, per spec §4.7/§5.
	defer term.Restore(fd, oldState)

	fmt.Fprint(e.Out, prompt)
	r := bufio.NewReader(e.In)
	fsm := newEscapeFSM()
	for {
		b, err := r.ReadByte()
		if err != nil {
			return Result{Outcome: EOF}
		}
		if out, done := fsm.feed(b); done {
			if res, stop := e.handleKey(out); stop {
				return res
			}
			continue
		}
	}
}

// readLineFallback reads a line without raw mode: cooked input, no
// character-at-a-time editing. Escape sequences are not meaningful on
// this path since the terminal driver already buffers/echoes lines.
func (e *Editor) readLineFallback() Result {
	fmt.Fprint(e.Out, e.prompt)
	r := bufio.NewReader(e.In)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return Result{Outcome: EOF}
	}
	return Result{Outcome: Line, Text: strings.TrimRight(line, "\r\n")}
}

// key is a single decoded input event handed to handleKey.
type key struct {
	kind keyKind
	r    rune // for kindRune
}

type keyKind int

const (
	kindRune keyKind = iota
	kindUp
	kindDown
	kindLeft
	kindRight
	kindHome
	kindEnd
	kindDelete
	kindCtrlC
	kindCtrlD
	kindTab
	kindEnter
	kindBackspace
	kindCtrlA
	kindCtrlE
	kindCtrlU
	kindCtrlK
	kindCtrlW
	kindCtrlL
)

// handleKey applies one decoded key event to the buffer, redraws, and
// reports whether ReadLine should now return.
func (e *Editor) handleKey(k key) (Result, bool) {
	if k.kind != kindTab {
		e.resetCompletion()
	}
	switch k.kind {
	case kindCtrlC:
		fmt.Fprint(e.Out, "^C\r\n")
		return Result{Outcome: Interrupted}, true
	case kindCtrlD:
		if len(e.buf) == 0 {
			return Result{Outcome: EOF}, true
		}
		e.deleteUnderCursor()
	case kindEnter:
		fmt.Fprint(e.Out, "\r\n")
		return Result{Outcome: Line, Text: string(e.buf)}, true
	case kindTab:
		e.handleTab()
	case kindBackspace:
		e.deleteLeft()
	case kindUp:
		if v, ok := e.Hist.Previous(); ok {
			e.setBuffer(v)
		}
	case kindDown:
		if v, ok := e.Hist.Next(); ok {
			e.setBuffer(v)
		} else {
			e.setBuffer("")
		}
	case kindLeft:
		if e.cursor > 0 {
			e.cursor--
		}
	case kindRight:
		if e.cursor < len(e.buf) {
			e.cursor++
		}
	case kindHome, kindCtrlA:
		e.cursor = 0
	case kindEnd, kindCtrlE:
		e.cursor = len(e.buf)
	case kindDelete:
		e.deleteUnderCursor()
	case kindCtrlU:
		e.buf = e.buf[e.cursor:]
		e.cursor = 0
	case kindCtrlK:
		e.buf = e.buf[:e.cursor]
	case kindCtrlW:
		e.deletePreviousWord()
	case kindCtrlL:
		fmt.Fprint(e.Out, "\x1b[2J\x1b[H")
	case kindRune:
		e.insertRune(k.r)
	}
	e.redraw()
	return Result{}, false
}

func (e *Editor) setBuffer(s string) {
	e.buf = []rune(s)
	e.cursor = len(e.buf)
	e.hasTyped = true
}

func (e *Editor) insertRune(r rune) {
	e.buf = append(e.buf[:e.cursor], append([]rune{r}, e.buf[e.cursor:]...)...)
	e.cursor++
	e.hasTyped = true
}

func (e *Editor) deleteLeft() {
	if e.cursor == 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
	e.hasTyped = true
}

func (e *Editor) deleteUnderCursor() {
	if e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
	e.hasTyped = true
}

// deletePreviousWord trims trailing whitespace, then deletes back to
// the previous whitespace boundary (spec §4.7, §8 scenario).
func (e *Editor) deletePreviousWord() {
	i := e.cursor
	for i > 0 && e.buf[i-1] == ' ' {
		i--
	}
	for i > 0 && e.buf[i-1] != ' ' {
		i--
	}
	e.buf = append(e.buf[:i], e.buf[e.cursor:]...)
	e.cursor = i
	e.hasTyped = true
}

// redraw implements the rendering contract of spec §4.7: carriage
// return, erase to end of line, reprint the prompt and buffer, then
// move the cursor back by chars-cursor. It always draws; the editor has
// no resize handling of its own.
func (e *Editor) redraw() {
	fmt.Fprint(e.Out, "\r\x1b[K")
	fmt.Fprint(e.Out, e.prompt)
	fmt.Fprint(e.Out, string(e.buf))
	if back := len(e.buf) - e.cursor; back > 0 {
		fmt.Fprintf(e.Out, "\x1b[%dD", back)
	}
}

// HasTyped reports whether the user has typed anything in the current
// ReadLine call. Nothing in this package calls it.
func (e *Editor) HasTyped() bool { return e.hasTyped }

func (e *Editor) resetCompletion() {
	e.completing = false
	e.candidates = nil
	e.completionIdx = 0
}

// handleTab implements completion cycling (spec §4.7): first Tab
// generates candidates; one candidate inserts directly; multiple
// candidates extend to the common prefix and enter cycling mode.
func (e *Editor) handleTab() {
	if !e.completing {
		text := string(e.buf[:e.cursor])
		if text == "" || strings.HasSuffix(text, " ") {
			return // nothing to complete (spec §8: "he " is a no-op)
		}
		start, candidates := complete.Complete(text, e.Env)
		if len(candidates) == 0 {
			fmt.Fprint(e.Out, "\x07")
			return
		}
		e.completionStart = start
		if len(candidates) == 1 {
			e.replaceWord(candidates[0].Text)
			return
		}
		prefix := complete.CommonPrefix(candidates)
		e.replaceWord(prefix)
		e.completing = true
		e.candidates = candidates
		e.completionIdx = 0
		return
	}
	if len(e.candidates) == 0 {
		return
	}
	e.completionIdx = (e.completionIdx + 1) % len(e.candidates)
	e.replaceWord(e.candidates[e.completionIdx].Text)
}

func (e *Editor) replaceWord(word string) {
	rest := e.buf[e.cursor:]
	newWord := []rune(word)
	e.buf = append(append(append([]rune{}, e.buf[:e.completionStart]...), newWord...), rest...)
	e.cursor = e.completionStart + len(newWord)
}
