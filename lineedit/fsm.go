package lineedit

// escapeFSM decodes the bytes ReadLine reads in raw mode into key
// events: states Normal, Escape (after ESC), Csi (after ESC [ or ESC O),
// CsiParam (accumulating digits/semicolons), plus UTF8Cont for the
// continuation bytes of a multibyte character. The cooked-line fallback
// path does not use it.
type escapeFSM struct {
	state    fsmState
	params   []byte
	pending  []byte
	utf8Want int // remaining continuation bytes expected
}

type fsmState int

const (
	stateNormal fsmState = iota
	stateEscape
	stateCsi
	stateCsiParam
	stateUTF8Cont
)

func newEscapeFSM() *escapeFSM {
	return &escapeFSM{state: stateNormal}
}

// feed processes one byte and reports a decoded key event when a
// complete sequence (or ordinary character) has been recognised.
func (f *escapeFSM) feed(b byte) (key, bool) {
	switch f.state {
	case stateNormal:
		return f.feedNormal(b)
	case stateEscape:
		return f.feedEscape(b)
	case stateCsi, stateCsiParam:
		return f.feedCsi(b)
	case stateUTF8Cont:
		return f.feedUTF8Cont(b)
	}
	return key{}, false
}

func (f *escapeFSM) feedNormal(b byte) (key, bool) {
	switch b {
	case 0x1b:
		f.state = stateEscape
		return key{}, false
	case 0x03:
		return key{kind: kindCtrlC}, true
	case 0x04:
		return key{kind: kindCtrlD}, true
	case '\t':
		return key{kind: kindTab}, true
	case '\r', '\n':
		return key{kind: kindEnter}, true
	case 0x7f, 0x08:
		return key{kind: kindBackspace}, true
	case 0x01:
		return key{kind: kindCtrlA}, true
	case 0x05:
		return key{kind: kindCtrlE}, true
	case 0x15:
		return key{kind: kindCtrlU}, true
	case 0x0b:
		return key{kind: kindCtrlK}, true
	case 0x17:
		return key{kind: kindCtrlW}, true
	case 0x0c:
		return key{kind: kindCtrlL}, true
	default:
		if b >= 0xc0 {
			// Leading byte of a multibyte UTF-8 sequence: buffer and
			// wait for continuation bytes before decoding a rune.
			return f.feedUTF8Lead(b)
		}
		if b >= 0x20 && b < 0x7f {
			return key{kind: kindRune, r: rune(b)}, true
		}
		return key{}, false
	}
}

func (f *escapeFSM) feedUTF8Lead(b byte) (key, bool) {
	n := utf8SeqLen(b)
	f.pending = append(f.pending[:0], b)
	if n <= 1 {
		return key{kind: kindRune, r: rune(b)}, true
	}
	f.utf8Want = n - 1
	f.state = stateUTF8Cont
	return key{}, false
}

func (f *escapeFSM) feedUTF8Cont(b byte) (key, bool) {
	f.pending = append(f.pending, b)
	f.utf8Want--
	if f.utf8Want > 0 {
		return key{}, false
	}
	f.state = stateNormal
	r, _ := decodeRune(f.pending)
	return key{kind: kindRune, r: r}, true
}

func decodeRune(buf []byte) (rune, int) {
	for _, r := range string(buf) {
		return r, len(buf)
	}
	return 0xFFFD, len(buf)
}

func utf8SeqLen(lead byte) int {
	switch {
	case lead&0xe0 == 0xc0:
		return 2
	case lead&0xf0 == 0xe0:
		return 3
	case lead&0xf8 == 0xf0:
		return 4
	}
	return 1
}

func (f *escapeFSM) feedEscape(b byte) (key, bool) {
	switch b {
	case '[', 'O':
		f.state = stateCsi
		f.params = f.params[:0]
		return key{}, false
	default:
		f.state = stateNormal
		return key{}, false
	}
}

func (f *escapeFSM) feedCsi(b byte) (key, bool) {
	switch {
	case b >= '0' && b <= '9', b == ';':
		f.params = append(f.params, b)
		f.state = stateCsiParam
		return key{}, false
	case b == 'A':
		f.state = stateNormal
		return key{kind: kindUp}, true
	case b == 'B':
		f.state = stateNormal
		return key{kind: kindDown}, true
	case b == 'C':
		f.state = stateNormal
		return key{kind: kindRight}, true
	case b == 'D':
		f.state = stateNormal
		return key{kind: kindLeft}, true
	case b == 'H':
		f.state = stateNormal
		return key{kind: kindHome}, true
	case b == 'F':
		f.state = stateNormal
		return key{kind: kindEnd}, true
	case b == '~':
		f.state = stateNormal
		return f.finishTilde()
	default:
		f.state = stateNormal
		return key{}, false
	}
}

// finishTilde resolves `ESC [ n ~` sequences: 1/7 => home, 4/8 => end,
// 3 => delete (spec §4.7).
func (f *escapeFSM) finishTilde() (key, bool) {
	switch string(f.params) {
	case "1", "7":
		return key{kind: kindHome}, true
	case "4", "8":
		return key{kind: kindEnd}, true
	case "3":
		return key{kind: kindDelete}, true
	}
	return key{}, false
}
