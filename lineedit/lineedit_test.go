package lineedit

import (
	"bytes"
	"testing"

	"github.com/yandanp/termshell/environment"
	"github.com/yandanp/termshell/history"
)

func newTestEditor(t *testing.T) (*Editor, *bytes.Buffer) {
	t.Helper()
	env, err := environment.New()
	if err != nil {
		t.Fatalf("environment.New: %v", err)
	}
	hist := history.New(10)
	var out bytes.Buffer
	e := NewEditor(nil, &out, env, hist)
	return e, &out
}

func typeString(e *Editor, s string) {
	for _, r := range s {
		e.handleKey(key{kind: kindRune, r: r})
	}
}

func TestTypeAndMoveLeftInsert(t *testing.T) {
	e, _ := newTestEditor(t)
	typeString(e, "abc")
	e.handleKey(key{kind: kindLeft})
	e.handleKey(key{kind: kindLeft})
	e.handleKey(key{kind: kindRune, r: 'X'})
	if got := string(e.buf); got != "aXbc" {
		t.Fatalf("buffer = %q, want aXbc", got)
	}
	if e.cursor != 2 {
		t.Errorf("cursor = %d, want 2 (between X and b)", e.cursor)
	}
}

func TestCtrlUFromEnd(t *testing.T) {
	e, _ := newTestEditor(t)
	typeString(e, "foo bar")
	e.handleKey(key{kind: kindCtrlU})
	if len(e.buf) != 0 {
		t.Fatalf("buffer = %q, want empty", string(e.buf))
	}
	if e.cursor != 0 {
		t.Errorf("cursor = %d, want 0", e.cursor)
	}
}

func TestCtrlWFromEndWithTrailingSpace(t *testing.T) {
	e, _ := newTestEditor(t)
	typeString(e, "foo bar ")
	e.handleKey(key{kind: kindCtrlW})
	if got := string(e.buf); got != "foo " {
		t.Fatalf("buffer = %q, want %q", got, "foo ")
	}
	if e.cursor != 4 {
		t.Errorf("cursor = %d, want 4", e.cursor)
	}
}

func TestEnterReturnsLine(t *testing.T) {
	e, _ := newTestEditor(t)
	typeString(e, "echo hi")
	res, stop := e.handleKey(key{kind: kindEnter})
	if !stop {
		t.Fatal("handleKey(Enter): stop = false, want true")
	}
	if res.Outcome != Line || res.Text != "echo hi" {
		t.Errorf("res = %+v, want Line %q", res, "echo hi")
	}
}

func TestCtrlCInterrupts(t *testing.T) {
	e, _ := newTestEditor(t)
	typeString(e, "echo hi")
	res, stop := e.handleKey(key{kind: kindCtrlC})
	if !stop || res.Outcome != Interrupted {
		t.Errorf("res = %+v, stop = %v, want Interrupted, true", res, stop)
	}
}

func TestCtrlDOnEmptyBufferIsEOF(t *testing.T) {
	e, _ := newTestEditor(t)
	res, stop := e.handleKey(key{kind: kindCtrlD})
	if !stop || res.Outcome != EOF {
		t.Errorf("res = %+v, stop = %v, want EOF, true", res, stop)
	}
}

func TestHistoryUpDown(t *testing.T) {
	e, _ := newTestEditor(t)
	e.Hist.Add("first")
	e.Hist.Add("second")
	e.handleKey(key{kind: kindUp})
	if got := string(e.buf); got != "second" {
		t.Fatalf("buffer after Up = %q, want second", got)
	}
	e.handleKey(key{kind: kindUp})
	if got := string(e.buf); got != "first" {
		t.Fatalf("buffer after Up,Up = %q, want first", got)
	}
}

func TestFSMArrowKeys(t *testing.T) {
	fsm := newEscapeFSM()
	seq := []byte{0x1b, '[', 'A'}
	var k key
	var done bool
	for _, b := range seq {
		k, done = fsm.feed(b)
	}
	if !done || k.kind != kindUp {
		t.Fatalf("FSM decoded %+v, done=%v, want kindUp", k, done)
	}
}

func TestFSMTildeSequences(t *testing.T) {
	tests := []struct {
		seq  []byte
		want keyKind
	}{
		{[]byte{0x1b, '[', '1', '~'}, kindHome},
		{[]byte{0x1b, '[', '7', '~'}, kindHome},
		{[]byte{0x1b, '[', '4', '~'}, kindEnd},
		{[]byte{0x1b, '[', '8', '~'}, kindEnd},
		{[]byte{0x1b, '[', '3', '~'}, kindDelete},
	}
	for _, tt := range tests {
		fsm := newEscapeFSM()
		var k key
		var done bool
		for _, b := range tt.seq {
			k, done = fsm.feed(b)
		}
		if !done || k.kind != tt.want {
			t.Errorf("seq %v decoded %+v, done=%v, want %v", tt.seq, k, done, tt.want)
		}
	}
}

func TestFSMMultibyteUTF8(t *testing.T) {
	fsm := newEscapeFSM()
	// U+2714 HEAVY CHECK MARK, UTF-8: E2 9C 94
	seq := []byte{0xE2, 0x9C, 0x94}
	var k key
	var done bool
	for _, b := range seq {
		k, done = fsm.feed(b)
	}
	if !done || k.kind != kindRune || k.r != '✔' {
		t.Fatalf("FSM decoded %+v, done=%v, want rune U+2714", k, done)
	}
}

func TestTabSingleCandidateNoTrailingSpace(t *testing.T) {
	e, _ := newTestEditor(t)
	typeString(e, "hel")
	e.handleKey(key{kind: kindTab})
	if got := string(e.buf); got != "help" {
		t.Fatalf("buffer after Tab = %q, want help", got)
	}
}

func TestTabWithTrailingSpaceIsNoOp(t *testing.T) {
	e, _ := newTestEditor(t)
	typeString(e, "he ")
	e.handleKey(key{kind: kindTab})
	if got := string(e.buf); got != "he " {
		t.Fatalf("buffer after Tab = %q, want unchanged %q", got, "he ")
	}
}
