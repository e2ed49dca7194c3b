package environment

import "testing"

func TestGetValueSpecials(t *testing.T) {
	e := newTestEnv(t)
	e.SetLastExitCode(42)
	if v, ok := e.GetValue("?"); !ok || v != "42" {
		t.Errorf("GetValue(?) = %q, %v, want 42, true", v, ok)
	}
	if v, ok := e.GetValue("$"); !ok || v == "" {
		t.Errorf("GetValue($) = %q, %v, want non-empty pid", v, ok)
	}
	if v, ok := e.GetValue("PWD"); !ok || v != e.Cwd() {
		t.Errorf("GetValue(PWD) = %q, %v, want %q", v, ok, e.Cwd())
	}
}

func TestSetAndExport(t *testing.T) {
	e := newTestEnv(t)
	e.Set("FOO", "local-value")
	if v, ok := e.GetValue("FOO"); !ok || v != "local-value" {
		t.Fatalf("GetValue(FOO) = %q, %v", v, ok)
	}
	e.Export("FOO", nil)
	if _, ok := e.locals["FOO"]; ok {
		t.Error("FOO still present in locals after export")
	}
	if v, ok := e.exports["FOO"]; !ok || v != "local-value" {
		t.Errorf("exports[FOO] = %q, %v, want local-value, true", v, ok)
	}
}

func TestUnset(t *testing.T) {
	e := newTestEnv(t)
	e.Set("FOO", "bar")
	e.Unset("FOO")
	if _, ok := e.GetValue("FOO"); ok {
		t.Error("FOO still resolves after Unset")
	}
}

func TestExpandVariablesBraceAndBare(t *testing.T) {
	e := newTestEnv(t)
	e.Set("NAME", "world")
	got := e.ExpandVariables("hello ${NAME} and $NAME!")
	want := "hello world and world!"
	if got != want {
		t.Errorf("ExpandVariables = %q, want %q", got, want)
	}
}

func TestExpandVariablesMissingIsEmpty(t *testing.T) {
	e := newTestEnv(t)
	got := e.ExpandVariables("[${NOPE}]")
	if got != "[]" {
		t.Errorf("ExpandVariables = %q, want []", got)
	}
}

func TestExpandVariablesTilde(t *testing.T) {
	e := newTestEnv(t)
	e.Set("HOME", "/home/tester")
	got := e.ExpandVariables("~/docs")
	want := "/home/tester/docs"
	if got != want {
		t.Errorf("ExpandVariables = %q, want %q", got, want)
	}
}

func TestExpandVariablesTildeOnlyAtStart(t *testing.T) {
	e := newTestEnv(t)
	e.Set("HOME", "/home/tester")
	got := e.ExpandVariables("a~b")
	if got != "a~b" {
		t.Errorf("ExpandVariables = %q, want a~b (no substitution mid-token)", got)
	}
}

func TestAliasExpansion(t *testing.T) {
	e := newTestEnv(t)
	e.SetAlias("ll", "ls -la")
	v, ok := e.ExpandAlias("ll")
	if !ok || v != "ls -la" {
		t.Errorf("ExpandAlias(ll) = %q, %v, want ls -la, true", v, ok)
	}
	if !e.UnsetAlias("ll") {
		t.Error("UnsetAlias(ll) = false, want true")
	}
	if _, ok := e.ExpandAlias("ll"); ok {
		t.Error("alias still present after UnsetAlias")
	}
}

func newTestEnv(t *testing.T) *Environment {
	t.Helper()
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}
