package pty

import "unicode/utf8"

// validUTF8Prefix returns the byte length of the longest prefix of b
// that decodes as valid UTF-8 (spec §4.9.1). An incomplete multibyte
// sequence at the very end is excluded; an invalid byte anywhere
// inside excludes everything from that byte onward.
func validUTF8Prefix(b []byte) int {
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			if size == 0 {
				return i
			}
			// size == 1: either a genuinely invalid byte, or the
			// start of a truncated sequence at the very end of b.
			if i+size == len(b) && isIncompleteUTF8Tail(b[i:]) {
				return i
			}
			return i
		}
		i += size
	}
	return i
}

// isIncompleteUTF8Tail reports whether b (which utf8.DecodeRune judged
// invalid as a complete buffer) is instead a truncated lead byte that
// could become valid with more bytes appended.
func isIncompleteUTF8Tail(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	lead := b[0]
	if lead >= 0xc0 {
		var want int
		switch {
		case lead&0xe0 == 0xc0:
			want = 2
		case lead&0xf0 == 0xe0:
			want = 3
		case lead&0xf8 == 0xf0:
			want = 4
		default:
			return false
		}
		return len(b) < want
	}
	return false
}

// ansiTerminator reports whether c closes a CSI sequence (spec §4.9.2:
// `@`, `A..Z`, `a..z`, backtick, or `~`).
func ansiTerminator(c byte) bool {
	return c == '@' || c == '`' || c == '~' ||
		(c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// splitIncompleteANSI finds the last ESC (0x1B) in text and decides
// whether the fragment from there onward is a complete escape
// sequence (spec §4.9.2). If incomplete, it returns the text before
// the ESC as emittable and the fragment from ESC onward as carry;
// recursion handles multiple sequences within one chunk, and an
// incomplete sequence found by the recursion is carried too, ahead of
// the fragment. If complete or no ESC is present, the whole text is
// emittable and carry is empty.
func splitIncompleteANSI(text string) (emittable, carry string) {
	idx := lastIndexByte(text, 0x1b)
	if idx < 0 {
		return text, ""
	}
	fragment := text[idx:]
	if isCompleteEscape(fragment) {
		return text, ""
	}
	before, innerCarry := splitIncompleteANSI(text[:idx])
	return before, innerCarry + fragment
}

func isCompleteEscape(frag string) bool {
	if len(frag) < 2 {
		return false // bare ESC
	}
	switch frag[1] {
	case '[':
		for i := 2; i < len(frag); i++ {
			if ansiTerminator(frag[i]) {
				return true
			}
		}
		return false
	case ']':
		for i := 2; i < len(frag); i++ {
			if frag[i] == 0x07 {
				return true
			}
			if frag[i] == 0x1b && i+1 < len(frag) && frag[i+1] == '\\' {
				return true
			}
		}
		return false
	default:
		c := frag[1]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if isAlnum || c == '=' || c == '>' || c == '<' {
			return true
		}
		return false
	}
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
