package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yandanp/termshell/token"
)

func TestTokenizeSimpleWords(t *testing.T) {
	toks, err := Tokenize("echo hello world")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []Token{
		{Kind: token.WORD, Text: "echo"},
		{Kind: token.WORD, Text: "hello"},
		{Kind: token.WORD, Text: "world"},
		{Kind: token.EOF},
	}
	if diff := cmp.Diff(want, toks); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeQuotedStrings(t *testing.T) {
	toks, err := Tokenize(`"a b" 'c d'`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []Token{
		{Kind: token.QUOTED_STRING, Text: "a b"},
		{Kind: token.QUOTED_STRING, Text: "c d"},
		{Kind: token.EOF},
	}
	if diff := cmp.Diff(want, toks); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := Tokenize("a | b && c || d ; e & f")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var kinds []token.Token
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	want := []token.Token{
		token.WORD, token.PIPE, token.WORD, token.AND, token.WORD,
		token.OR, token.WORD, token.SEMICOLON, token.WORD, token.BACKGROUND,
		token.WORD, token.EOF,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kind mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeRedirects(t *testing.T) {
	tests := []struct {
		src  string
		kind token.Token
	}{
		{"cmd > out", token.REDIRECT_OUT},
		{"cmd >> out", token.APPEND_OUT},
		{"cmd < in", token.REDIRECT_IN},
		{"cmd 2> err", token.REDIRECT_ERR},
		{"cmd 2>> err", token.APPEND_ERR},
		{"cmd &> both", token.REDIRECT_BOTH},
		{"cmd &>> both", token.APPEND_BOTH},
	}
	for _, tt := range tests {
		toks, err := Tokenize(tt.src)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", tt.src, err)
		}
		if toks[1].Kind != tt.kind {
			t.Errorf("Tokenize(%q)[1].Kind = %v, want %v", tt.src, toks[1].Kind, tt.kind)
		}
	}
}

func TestTokenizeVariables(t *testing.T) {
	toks, err := Tokenize("echo $HOME ${USER} $? $$ $1")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var got []Token
	for _, tk := range toks {
		if tk.Kind == token.VARIABLE {
			got = append(got, tk)
		}
	}
	want := []Token{
		{Kind: token.VARIABLE, Text: "HOME"},
		{Kind: token.VARIABLE, Text: "USER"},
		{Kind: token.VARIABLE, Text: "?"},
		{Kind: token.VARIABLE, Text: "$"},
		{Kind: token.VARIABLE, Text: "1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variable tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeWordWithEmbeddedVariable(t *testing.T) {
	toks, err := Tokenize(`echo hello-$USER-suffix`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := Token{Kind: token.WORD, Text: "hello-${USER}-suffix"}
	if diff := cmp.Diff(want, toks[1]); diff != "" {
		t.Errorf("word mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeComment(t *testing.T) {
	toks, err := Tokenize("echo hi # a comment")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[2].Kind != token.COMMENT {
		t.Fatalf("toks[2].Kind = %v, want COMMENT", toks[2].Kind)
	}
	if toks[2].Text != "# a comment" {
		t.Errorf("toks[2].Text = %q, want %q", toks[2].Text, "# a comment")
	}
}

func TestTokenizeNewlineIsAToken(t *testing.T) {
	toks, err := Tokenize("a\nb")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []token.Token{token.WORD, token.NEWLINE, token.WORD, token.EOF}
	var got []token.Token
	for _, tk := range toks {
		got = append(got, tk.Kind)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kind mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeUnterminatedSingleQuote(t *testing.T) {
	_, err := Tokenize("echo 'unterminated")
	if err == nil {
		t.Fatal("Tokenize: want error, got nil")
	}
	var target *UnterminatedStringError
	if _, ok := err.(*UnterminatedStringError); !ok {
		t.Errorf("Tokenize error = %T, want %T", err, target)
	}
}

func TestTokenizeUnterminatedDoubleQuote(t *testing.T) {
	_, err := Tokenize(`echo "unterminated`)
	if err == nil {
		t.Fatal("Tokenize: want error, got nil")
	}
}

func TestTokenizeDoubleQuoteEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\tc\\d\"e"`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := "a\nb\tc\\d\"e"
	if toks[0].Text != want {
		t.Errorf("toks[0].Text = %q, want %q", toks[0].Text, want)
	}
}

func TestTokenizeEnvAssignment(t *testing.T) {
	toks, err := Tokenize("FOO=bar echo")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []token.Token{token.WORD, token.WORD, token.EOF}
	var got []token.Token
	for _, tk := range toks {
		got = append(got, tk.Kind)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kind mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeRoundTripWords(t *testing.T) {
	src := "ls -la /tmp"
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var words []string
	for _, tk := range toks {
		if tk.Kind == token.WORD {
			words = append(words, tk.Text)
		}
	}
	want := []string{"ls", "-la", "/tmp"}
	if diff := cmp.Diff(want, words); diff != "" {
		t.Errorf("words mismatch (-want +got):\n%s", diff)
	}
}
