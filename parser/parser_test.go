package parser

import (
	"testing"

	"github.com/yandanp/termshell/ast"
)

func TestParseSimpleCommand(t *testing.T) {
	cl, err := Parse("echo hello world")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cl.Pipelines) != 1 {
		t.Fatalf("len(Pipelines) = %d, want 1", len(cl.Pipelines))
	}
	p := cl.Pipelines[0]
	if len(p.Commands) != 1 {
		t.Fatalf("len(Commands) = %d, want 1", len(p.Commands))
	}
	cmd := p.Commands[0]
	if cmd.Name != "echo" {
		t.Errorf("Name = %q, want echo", cmd.Name)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "hello" || cmd.Args[1] != "world" {
		t.Errorf("Args = %v, want [hello world]", cmd.Args)
	}
}

func TestParseOperatorsCount(t *testing.T) {
	cl, err := Parse("echo a && echo b || echo c ; echo d")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cl.Operators) != len(cl.Pipelines)-1 {
		t.Fatalf("len(Operators)=%d, len(Pipelines)=%d", len(cl.Operators), len(cl.Pipelines))
	}
	want := []ast.LogicalOp{ast.And, ast.Or, ast.Sequence}
	for i, op := range want {
		if cl.Operators[i] != op {
			t.Errorf("Operators[%d] = %v, want %v", i, cl.Operators[i], op)
		}
	}
}

func TestParseRedirect(t *testing.T) {
	cl, err := Parse("echo x > f")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := cl.Pipelines[0]
	if len(p.StdoutRedirects) != 1 {
		t.Fatalf("len(StdoutRedirects) = %d, want 1", len(p.StdoutRedirects))
	}
	r := p.StdoutRedirects[0]
	if r.Kind != ast.StdoutOverwrite || r.Target != "f" {
		t.Errorf("redirect = %+v, want {StdoutOverwrite f}", r)
	}
}

func TestParseBackground(t *testing.T) {
	cl, err := Parse("sleep 10 &")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cl.Pipelines[0].Background {
		t.Error("Background = false, want true")
	}
}

func TestParsePipeline(t *testing.T) {
	cl, err := Parse("echo hello | cat")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := cl.Pipelines[0]
	if len(p.Commands) != 2 {
		t.Fatalf("len(Commands) = %d, want 2", len(p.Commands))
	}
	if p.Commands[0].Name != "echo" || p.Commands[1].Name != "cat" {
		t.Errorf("Commands = %+v", p.Commands)
	}
}

func TestParseLeadingAssignmentsWithCommand(t *testing.T) {
	cl, err := Parse("FOO=bar echo hi")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmd := cl.Pipelines[0].Commands[0]
	if cmd.Name != "echo" {
		t.Errorf("Name = %q, want echo", cmd.Name)
	}
	if len(cmd.EnvAssignments) != 1 || cmd.EnvAssignments[0].Name != "FOO" || cmd.EnvAssignments[0].Value != "bar" {
		t.Errorf("EnvAssignments = %+v", cmd.EnvAssignments)
	}
}

func TestParseBareAssignmentSynthesizesExport(t *testing.T) {
	cl, err := Parse("FOO=bar")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmd := cl.Pipelines[0].Commands[0]
	if cmd.Name != "export" {
		t.Errorf("Name = %q, want export", cmd.Name)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "FOO=bar" {
		t.Errorf("Args = %v, want [FOO=bar]", cmd.Args)
	}
}

func TestParseStdinRedirectOnlyOnFirstCommand(t *testing.T) {
	_, err := Parse("echo a | cat < file")
	if err == nil {
		t.Fatal("Parse: want error for stdin redirect on non-first command")
	}
}

func TestParseEmptyPipelineAfterPipe(t *testing.T) {
	_, err := Parse("echo a |")
	if err == nil {
		t.Fatal("Parse: want error for trailing pipe with no command")
	}
}

func TestParseMissingRedirectTarget(t *testing.T) {
	_, err := Parse("echo a >")
	if err == nil {
		t.Fatal("Parse: want error for missing redirect target")
	}
}

func TestParseSemicolonThenEOF(t *testing.T) {
	cl, err := Parse("echo a ;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cl.Pipelines) != 1 {
		t.Errorf("len(Pipelines) = %d, want 1", len(cl.Pipelines))
	}
}
