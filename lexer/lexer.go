// Package lexer tokenizes a shell command line (spec §4.1).
//
// The lexer is a single-pass stateful scanner: it does not stream
// tokens lazily, it tokenizes the whole line up front into a slice that
// the parser then walks with one-token lookahead. Unlike the teacher's
// bash-compatible lexer (which interleaves lexing with heredoc and
// arithmetic sub-states), this grammar has no nested lexer modes:
// quoting and variable placeholders are resolved inline while a WORD or
// QUOTED_STRING token is being built.
package lexer

import (
	"fmt"

	"github.com/yandanp/termshell/token"
)

// Token is a single lexical token with its source text. For WORD and
// QUOTED_STRING, Text is the token's *value* after escape processing
// and variable-placeholder substitution, not its raw surface form.
type Token struct {
	Kind token.Token
	Text string
}

// UnterminatedStringError reports an unclosed ' or " string.
type UnterminatedStringError struct{ Quote byte }

func (e *UnterminatedStringError) Error() string {
	return fmt.Sprintf("unterminated string starting with %q", e.Quote)
}

// UnterminatedVariableError reports an unclosed ${...} expansion.
type UnterminatedVariableError struct{}

func (e *UnterminatedVariableError) Error() string { return "unterminated variable expansion" }

// UnexpectedCharError reports a byte the lexer could not classify.
type UnexpectedCharError struct{ Char byte }

func (e *UnexpectedCharError) Error() string {
	return fmt.Sprintf("unexpected character %q", e.Char)
}

// Tokenize scans src into a token slice terminated by a single token.EOF.
func Tokenize(src string) ([]Token, error) {
	l := &lexer{src: src}
	var toks []Token
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			toks = append(toks, Token{Kind: token.EOF})
			return toks, nil
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) byteAt(i int) byte {
	if i < 0 || i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

func (l *lexer) cur() byte { return l.byteAt(l.pos) }

// skipSpace skips spaces, tabs and carriage returns, but never newlines:
// newlines are tokens (spec §4.1).
func (l *lexer) skipSpace() {
	for {
		switch l.cur() {
		case ' ', '\t', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isWordBreak(b byte) bool {
	switch b {
	case 0, ' ', '\t', '\r', '\n', '|', '&', ';', '>', '<', '(', ')', '{', '}', '#':
		return true
	}
	return false
}

func (l *lexer) next() (Token, error) {
	c := l.cur()
	switch c {
	case '\n':
		l.pos++
		return Token{Kind: token.NEWLINE, Text: "\n"}, nil
	case '#':
		return l.readComment(), nil
	case '|':
		l.pos++
		if l.cur() == '|' {
			l.pos++
			return Token{Kind: token.OR, Text: "||"}, nil
		}
		return Token{Kind: token.PIPE, Text: "|"}, nil
	case '&':
		l.pos++
		switch l.cur() {
		case '&':
			l.pos++
			return Token{Kind: token.AND, Text: "&&"}, nil
		case '>':
			l.pos++
			if l.cur() == '>' {
				l.pos++
				return Token{Kind: token.APPEND_BOTH, Text: "&>>"}, nil
			}
			return Token{Kind: token.REDIRECT_BOTH, Text: "&>"}, nil
		default:
			return Token{Kind: token.BACKGROUND, Text: "&"}, nil
		}
	case ';':
		l.pos++
		return Token{Kind: token.SEMICOLON, Text: ";"}, nil
	case '>':
		l.pos++
		if l.cur() == '>' {
			l.pos++
			return Token{Kind: token.APPEND_OUT, Text: ">>"}, nil
		}
		return Token{Kind: token.REDIRECT_OUT, Text: ">"}, nil
	case '<':
		l.pos++
		return Token{Kind: token.REDIRECT_IN, Text: "<"}, nil
	case '=':
		l.pos++
		return Token{Kind: token.EQUALS, Text: "="}, nil
	case '(':
		l.pos++
		return Token{Kind: token.LPAREN, Text: "("}, nil
	case ')':
		l.pos++
		return Token{Kind: token.RPAREN, Text: ")"}, nil
	case '{':
		l.pos++
		return Token{Kind: token.LBRACE, Text: "{"}, nil
	case '}':
		l.pos++
		return Token{Kind: token.RBRACE, Text: "}"}, nil
	case '2':
		if l.byteAt(l.pos+1) == '>' {
			l.pos += 2
			if l.cur() == '>' {
				l.pos++
				return Token{Kind: token.APPEND_ERR, Text: "2>>"}, nil
			}
			return Token{Kind: token.REDIRECT_ERR, Text: "2>"}, nil
		}
		return l.readWord()
	case '\'':
		return l.readSingleQuoted()
	case '"':
		return l.readDoubleQuoted()
	case '$':
		if tok, ok, err := l.tryReadVariableToken(); err != nil {
			return Token{}, err
		} else if ok {
			return tok, nil
		}
		return l.readWord()
	default:
		return l.readWord()
	}
}

func (l *lexer) readComment() Token {
	start := l.pos
	for l.cur() != 0 && l.cur() != '\n' {
		l.pos++
	}
	return Token{Kind: token.COMMENT, Text: l.src[start:l.pos]}
}

func (l *lexer) readSingleQuoted() (Token, error) {
	l.pos++ // opening '
	start := l.pos
	for {
		switch l.cur() {
		case 0:
			return Token{}, &UnterminatedStringError{Quote: '\''}
		case '\'':
			text := l.src[start:l.pos]
			l.pos++
			return Token{Kind: token.QUOTED_STRING, Text: text}, nil
		default:
			l.pos++
		}
	}
}

// readDoubleQuoted processes escapes and captures embedded variables as
// ${NAME} placeholders for the executor to expand later (spec §4.1).
func (l *lexer) readDoubleQuoted() (Token, error) {
	l.pos++ // opening "
	var buf []byte
	for {
		c := l.cur()
		switch c {
		case 0:
			return Token{}, &UnterminatedStringError{Quote: '"'}
		case '"':
			l.pos++
			return Token{Kind: token.QUOTED_STRING, Text: string(buf)}, nil
		case '\\':
			next := l.byteAt(l.pos + 1)
			switch next {
			case 'n':
				buf = append(buf, '\n')
				l.pos += 2
			case 't':
				buf = append(buf, '\t')
				l.pos += 2
			case 'r':
				buf = append(buf, '\r')
				l.pos += 2
			case '\\':
				buf = append(buf, '\\')
				l.pos += 2
			case '"':
				buf = append(buf, '"')
				l.pos += 2
			case '$':
				buf = append(buf, '$')
				l.pos += 2
			default:
				buf = append(buf, '\\', next)
				l.pos += 2
			}
		case '$':
			placeholder, consumed, err := l.readVariablePlaceholder()
			if err != nil {
				return Token{}, err
			}
			if consumed {
				buf = append(buf, placeholder...)
			} else {
				buf = append(buf, '$')
				l.pos++
			}
		default:
			buf = append(buf, c)
			l.pos++
		}
	}
}

// tryReadVariableToken attempts to lex a top-level $... token. It
// returns ok=false (and leaves l.pos untouched) when '$' is not
// followed by a valid variable form, in which case the caller falls
// back to treating '$' as the first byte of a plain word.
func (l *lexer) tryReadVariableToken() (Token, bool, error) {
	placeholder, ok, err := l.readVariablePlaceholder()
	if err != nil || !ok {
		return Token{}, false, err
	}
	name := placeholder[2 : len(placeholder)-1] // strip "${" and "}"
	return Token{Kind: token.VARIABLE, Text: name}, true, nil
}

// readVariablePlaceholder consumes a $... form at l.pos (which must be
// '$') and returns it normalized as "${NAME}". If '$' is not followed by
// a recognised form, it returns ok=false without advancing l.pos: the
// '$' is then a literal character.
func (l *lexer) readVariablePlaceholder() (placeholder string, ok bool, err error) {
	start := l.pos
	p := l.pos + 1
	b := l.byteAt(p)
	switch {
	case b == '{':
		p++
		nameStart := p
		for l.byteAt(p) != '}' {
			if l.byteAt(p) == 0 {
				return "", false, &UnterminatedVariableError{}
			}
			p++
		}
		name := l.src[nameStart:p]
		l.pos = p + 1
		return "${" + name + "}", true, nil
	case b == '?' || b == '$':
		l.pos = p + 1
		return "${" + string(b) + "}", true, nil
	case b >= '0' && b <= '9':
		l.pos = p + 1
		return "${" + string(b) + "}", true, nil
	case isIdentHead(b):
		q := p
		for isIdentTail(l.byteAt(q)) {
			q++
		}
		name := l.src[p:q]
		l.pos = q
		return "${" + name + "}", true, nil
	default:
		_ = start
		return "", false, nil
	}
}

func isIdentHead(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentTail(b byte) bool {
	return isIdentHead(b) || (b >= '0' && b <= '9')
}

// readWord reads a WORD token: a run of non-breaking characters, with
// backslash escapes, embedded quoted strings and embedded variable
// placeholders all concatenated into one logical value (spec §4.1).
func (l *lexer) readWord() (Token, error) {
	var buf []byte
	for {
		c := l.cur()
		if c == 0 || isWordBreak(c) {
			break
		}
		switch c {
		case '\\':
			next := l.byteAt(l.pos + 1)
			if next == 0 {
				return Token{}, &UnexpectedCharError{Char: '\\'}
			}
			buf = append(buf, next)
			l.pos += 2
		case '\'':
			tok, err := l.readSingleQuoted()
			if err != nil {
				return Token{}, err
			}
			buf = append(buf, tok.Text...)
		case '"':
			tok, err := l.readDoubleQuoted()
			if err != nil {
				return Token{}, err
			}
			buf = append(buf, tok.Text...)
		case '$':
			placeholder, ok, err := l.readVariablePlaceholder()
			if err != nil {
				return Token{}, err
			}
			if ok {
				buf = append(buf, placeholder...)
			} else {
				buf = append(buf, '$')
				l.pos++
			}
		default:
			buf = append(buf, c)
			l.pos++
		}
	}
	if len(buf) == 0 {
		// Only reachable if called on a byte that isWordBreak would
		// reject; guards against infinite loops on unrecognised input.
		return Token{}, &UnexpectedCharError{Char: l.cur()}
	}
	return Token{Kind: token.WORD, Text: string(buf)}, nil
}
