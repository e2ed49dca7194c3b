package pty

import "testing"

func TestValidUTF8PrefixCompleteASCII(t *testing.T) {
	if got := validUTF8Prefix([]byte("hello")); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
}

func TestValidUTF8PrefixTruncatedMultibyte(t *testing.T) {
	// U+2714 HEAVY CHECK MARK split across two reads: only the first
	// byte (E2) of a 3-byte sequence arrives.
	b := []byte{'a', 'b', 0xE2}
	if got := validUTF8Prefix(b); got != 2 {
		t.Errorf("got %d, want 2 (exclude truncated lead byte)", got)
	}
}

func TestValidUTF8PrefixTruncatedTwoOfThree(t *testing.T) {
	b := []byte{'a', 0xE2, 0x9C}
	if got := validUTF8Prefix(b); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestValidUTF8PrefixCompleteMultibyte(t *testing.T) {
	b := []byte("a✔b") // ✔ = E2 9C 94
	if got := validUTF8Prefix(b); got != len(b) {
		t.Errorf("got %d, want %d (fully valid)", got, len(b))
	}
}

func TestValidUTF8PrefixInvalidByteInMiddle(t *testing.T) {
	b := []byte{'a', 0xFF, 'b'}
	if got := validUTF8Prefix(b); got != 1 {
		t.Errorf("got %d, want 1 (exclude from first invalid byte)", got)
	}
}

func TestUTF8SplitAcrossTwoReads(t *testing.T) {
	// Mirrors the worker contract end to end: first read delivers
	// "ab" + the lead byte of U+2714; it must be carried over, not
	// emitted lossily, then completed by the second read.
	first := []byte{'a', 'b', 0xE2}
	validLen := validUTF8Prefix(first)
	if validLen != 2 {
		t.Fatalf("first read valid prefix = %d, want 2", validLen)
	}
	carry := append([]byte(nil), first[validLen:]...)

	second := []byte{0x9C, 0x94, 'c'}
	combined := append(append([]byte(nil), carry...), second...)
	validLen2 := validUTF8Prefix(combined)
	if validLen2 != len(combined) {
		t.Fatalf("combined valid prefix = %d, want %d", validLen2, len(combined))
	}
	if got := string(combined[:validLen2]); got != "✔c" {
		t.Errorf("decoded = %q, want %q", got, "✔c")
	}
}

func TestSplitIncompleteANSINoEscape(t *testing.T) {
	em, carry := splitIncompleteANSI("hello")
	if em != "hello" || carry != "" {
		t.Errorf("got (%q, %q), want (hello, \"\")", em, carry)
	}
}

func TestSplitIncompleteANSICompleteCSI(t *testing.T) {
	em, carry := splitIncompleteANSI("before\x1b[31mtext")
	if em != "before\x1b[31mtext" || carry != "" {
		t.Errorf("got (%q, %q), want full text emitted with no carry", em, carry)
	}
}

func TestSplitIncompleteANSIIncompleteCSI(t *testing.T) {
	em, carry := splitIncompleteANSI("before\x1b[31")
	if em != "before" {
		t.Errorf("emittable = %q, want %q", em, "before")
	}
	if carry != "\x1b[31" {
		t.Errorf("carry = %q, want %q", carry, "\x1b[31")
	}
}

func TestSplitIncompleteANSIBareEsc(t *testing.T) {
	em, carry := splitIncompleteANSI("text\x1b")
	if em != "text" || carry != "\x1b" {
		t.Errorf("got (%q, %q), want (text, ESC)", em, carry)
	}
}

func TestSplitIncompleteANSIOSCComplete(t *testing.T) {
	em, carry := splitIncompleteANSI("x\x1b]0;title\x07y")
	if em != "x\x1b]0;title\x07y" || carry != "" {
		t.Errorf("got (%q, %q), want full OSC sequence emitted", em, carry)
	}
}

func TestSplitIncompleteANSIOSCIncomplete(t *testing.T) {
	em, carry := splitIncompleteANSI("x\x1b]0;title")
	if em != "x" || carry != "\x1b]0;title" {
		t.Errorf("got (%q, %q), want (x, ESC]0;title)", em, carry)
	}
}

func TestSplitIncompleteANSISingleCharEscape(t *testing.T) {
	em, carry := splitIncompleteANSI("x\x1bM")
	if em != "x\x1bM" || carry != "" {
		t.Errorf("got (%q, %q), want single-char escape treated as complete", em, carry)
	}
}
