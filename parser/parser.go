// Package parser turns a lexer token stream into an ast.CommandLine by
// recursive descent with one-token lookahead (spec §4.2).
package parser

import (
	"fmt"
	"strings"

	"github.com/yandanp/termshell/ast"
	"github.com/yandanp/termshell/lexer"
	"github.com/yandanp/termshell/token"
)

// UnexpectedTokenError reports a token the grammar did not expect.
type UnexpectedTokenError struct {
	Got  token.Token
	Text string
}

func (e *UnexpectedTokenError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("unexpected token %s %q", e.Got, e.Text)
	}
	return fmt.Sprintf("unexpected token %s", e.Got)
}

// UnexpectedEOFError reports running out of tokens mid-construct.
type UnexpectedEOFError struct{}

func (e *UnexpectedEOFError) Error() string { return "unexpected end of input" }

// MissingRedirectTargetError reports a redirect operator with no target word.
type MissingRedirectTargetError struct{ Op token.Token }

func (e *MissingRedirectTargetError) Error() string {
	return fmt.Sprintf("missing target for redirect %s", e.Op)
}

// EmptyPipelineError reports a pipe with no command on one side.
type EmptyPipelineError struct{}

func (e *EmptyPipelineError) Error() string { return "empty pipeline" }

// InvalidSyntaxError carries a free-form diagnostic for cases not
// covered by the more specific error types above.
type InvalidSyntaxError struct{ Message string }

func (e *InvalidSyntaxError) Error() string { return e.Message }

// Parse lexes and parses src into a CommandLine.
func Parse(src string) (*ast.CommandLine, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}
	p := &parser{toks: filterComments(toks)}
	return p.parseCommandLine()
}

// filterComments drops COMMENT tokens: they never participate in the
// grammar (spec §4.2's grammar has no Comment production).
func filterComments(toks []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != token.COMMENT {
			out = append(out, t)
		}
	}
	return out
}

type parser struct {
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) parseCommandLine() (*ast.CommandLine, error) {
	cl := &ast.CommandLine{}
	pipeline, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	cl.Pipelines = append(cl.Pipelines, pipeline)
	for {
		switch p.cur().Kind {
		case token.AND:
			p.advance()
			cl.Operators = append(cl.Operators, ast.And)
		case token.OR:
			p.advance()
			cl.Operators = append(cl.Operators, ast.Or)
		case token.SEMICOLON:
			p.advance()
			if p.cur().Kind == token.NEWLINE || p.cur().Kind == token.EOF {
				return cl, nil
			}
			cl.Operators = append(cl.Operators, ast.Sequence)
		case token.NEWLINE, token.EOF:
			return cl, nil
		default:
			return nil, &UnexpectedTokenError{Got: p.cur().Kind, Text: p.cur().Text}
		}
		next, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		cl.Pipelines = append(cl.Pipelines, next)
	}
}

func (p *parser) parsePipeline() (*ast.Pipeline, error) {
	pipeline := &ast.Pipeline{}
	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	pipeline.Commands = append(pipeline.Commands, cmd)

	for p.cur().Kind == token.PIPE {
		p.advance()
		if isCommandTerminator(p.cur().Kind) {
			return nil, &EmptyPipelineError{}
		}
		next, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipeline.Commands = append(pipeline.Commands, next)
	}

	if p.cur().Kind == token.BACKGROUND {
		p.advance()
		pipeline.Background = true
	}

	if err := attachRedirects(pipeline); err != nil {
		return nil, err
	}
	return pipeline, nil
}

func isCommandTerminator(k token.Token) bool {
	switch k {
	case token.AND, token.OR, token.SEMICOLON, token.NEWLINE, token.EOF, token.PIPE, token.BACKGROUND:
		return true
	}
	return false
}

// attachRedirects distributes each command's collected redirects per the
// pipeline policy in spec §4.2: stdin only valid on the first command,
// stdout/stderr redirects on the pipeline apply to the last command.
func attachRedirects(pipeline *ast.Pipeline) error {
	for i, cmd := range pipeline.Commands {
		for _, r := range cmd.Redirects {
			if r.Kind == ast.StdinRead {
				if i != 0 {
					return &InvalidSyntaxError{Message: "stdin redirect only valid on the first command of a pipeline"}
				}
				stdin := r
				pipeline.StdinRedirect = &stdin
				continue
			}
			if i != len(pipeline.Commands)-1 {
				return &InvalidSyntaxError{Message: "stdout/stderr redirect only valid on the last command of a pipeline"}
			}
			pipeline.StdoutRedirects = append(pipeline.StdoutRedirects, r)
		}
	}
	return nil
}

func (p *parser) parseCommand() (*ast.Command, error) {
	cmd := &ast.Command{}

	// Leading Assignments: NAME=VALUE words before a command name is set.
	for {
		t := p.cur()
		if t.Kind != token.WORD {
			break
		}
		name, value, ok := splitAssignment(t.Text)
		if !ok {
			break
		}
		p.advance()
		cmd.EnvAssignments = append(cmd.EnvAssignments, ast.EnvAssignment{Name: name, Value: value})
	}

	// Command name: first non-assignment Word/QuotedString/Variable.
	switch p.cur().Kind {
	case token.WORD, token.QUOTED_STRING, token.VARIABLE:
		t := p.advance()
		cmd.Name = tokenText(t)
	case token.PIPE, token.AND, token.OR, token.SEMICOLON, token.NEWLINE, token.EOF, token.BACKGROUND:
		if len(cmd.EnvAssignments) == 0 {
			return nil, &EmptyPipelineError{}
		}
		// Only assignments with no command name: synthesise `export`.
		cmd.Name = "export"
		for _, a := range cmd.EnvAssignments {
			cmd.Args = append(cmd.Args, a.Name+"="+a.Value)
		}
		cmd.EnvAssignments = nil
		return cmd, nil
	default:
		return nil, &UnexpectedTokenError{Got: p.cur().Kind, Text: p.cur().Text}
	}

	// Remaining args and redirects.
	for {
		t := p.cur()
		switch {
		case t.Kind.IsRedirect():
			p.advance()
			target, err := p.parseRedirectTarget(t.Kind)
			if err != nil {
				return nil, err
			}
			cmd.Redirects = append(cmd.Redirects, *target)
		case t.Kind == token.WORD || t.Kind == token.QUOTED_STRING || t.Kind == token.VARIABLE:
			p.advance()
			cmd.Args = append(cmd.Args, tokenText(t))
		default:
			return cmd, nil
		}
	}
}

func (p *parser) parseRedirectTarget(op token.Token) (*ast.Redirect, error) {
	t := p.cur()
	if t.Kind != token.WORD && t.Kind != token.QUOTED_STRING && t.Kind != token.VARIABLE {
		return nil, &MissingRedirectTargetError{Op: op}
	}
	p.advance()
	kind, err := redirectKind(op)
	if err != nil {
		return nil, err
	}
	return &ast.Redirect{Kind: kind, Target: tokenText(t)}, nil
}

// tokenText returns a token's value normalized for the expansion pass:
// VARIABLE tokens carry a bare name (spec's lexer strips the sigil), so
// they are rewrapped as "${NAME}" to match the placeholder form that
// Environment.ExpandVariables expects from WORD/QUOTED_STRING tokens.
func tokenText(t lexer.Token) string {
	if t.Kind == token.VARIABLE {
		return "${" + t.Text + "}"
	}
	return t.Text
}

func redirectKind(op token.Token) (ast.RedirectKind, error) {
	switch op {
	case token.REDIRECT_OUT:
		return ast.StdoutOverwrite, nil
	case token.APPEND_OUT:
		return ast.StdoutAppend, nil
	case token.REDIRECT_IN:
		return ast.StdinRead, nil
	case token.REDIRECT_ERR:
		return ast.StderrOverwrite, nil
	case token.APPEND_ERR:
		return ast.StderrAppend, nil
	case token.REDIRECT_BOTH:
		return ast.BothOverwrite, nil
	case token.APPEND_BOTH:
		return ast.BothAppend, nil
	}
	return 0, &InvalidSyntaxError{Message: fmt.Sprintf("unknown redirect operator %s", op)}
}

// splitAssignment reports whether text is a NAME=VALUE assignment: an
// identifier, an '=', then anything (possibly empty).
func splitAssignment(text string) (name, value string, ok bool) {
	i := strings.IndexByte(text, '=')
	if i <= 0 {
		return "", "", false
	}
	name = text[:i]
	if !isIdentifier(name) {
		return "", "", false
	}
	return name, text[i+1:], true
}

func isIdentifier(s string) bool {
	for i, c := range s {
		isHead := c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		isTail := isHead || (c >= '0' && c <= '9')
		if i == 0 && !isHead {
			return false
		}
		if i > 0 && !isTail {
			return false
		}
	}
	return true
}
