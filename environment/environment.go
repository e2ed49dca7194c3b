// Package environment implements the shell's variable store, alias
// table and working directory, and the two expansion functions that
// read from them (spec §3, §4.3).
package environment

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Environment holds the shell's locals/exports/aliases/cwd state. It is
// not safe for concurrent use from multiple goroutines: the executor is
// single-threaded (spec §5).
type Environment struct {
	locals  map[string]string
	exports map[string]string
	aliases map[string]string

	cwd          string
	lastExitCode int32
	shellPID     int
}

// New builds an Environment seeded from the current process environment
// and working directory, matching the teacher's convention of inheriting
// the OS environment wholesale into the interpreter (interp.Runner's Env
// option defaults to os.Environ()).
func New() (*Environment, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	e := &Environment{
		locals:   make(map[string]string),
		exports:  make(map[string]string),
		aliases:  make(map[string]string),
		cwd:      cwd,
		shellPID: os.Getpid(),
	}
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		e.exports[kv[:i]] = kv[i+1:]
	}
	e.exports["PWD"] = cwd
	return e, nil
}

// GetValue resolves name in the order special names, locals, exports
// (spec §4.3). Returns ("", false) if unset.
func (e *Environment) GetValue(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.FormatInt(int64(e.lastExitCode), 10), true
	case "$":
		return strconv.Itoa(e.shellPID), true
	case "PWD":
		return e.cwd, true
	}
	if v, ok := e.locals[name]; ok {
		return v, true
	}
	if v, ok := e.exports[name]; ok {
		return v, true
	}
	return "", false
}

// Set writes name into the locals table.
func (e *Environment) Set(name, value string) {
	e.locals[name] = value
}

// Export moves or creates name in the exports table and syncs the
// process environment, keeping the OS env and the shell's exports table
// in lockstep as spec §3's invariant requires. If value is nil, the
// variable's existing value (local, exported, or empty) is kept.
func (e *Environment) Export(name string, value *string) {
	var v string
	if value != nil {
		v = *value
	} else if existing, ok := e.GetValue(name); ok {
		v = existing
	}
	delete(e.locals, name)
	e.exports[name] = v
	os.Setenv(name, v)
}

// Unset removes name from locals, exports, and the process environment.
func (e *Environment) Unset(name string) {
	delete(e.locals, name)
	delete(e.exports, name)
	os.Unsetenv(name)
}

// Cwd returns the current working directory.
func (e *Environment) Cwd() string { return e.cwd }

// SetCwd changes the shell's cwd, the process's cwd, and PWD/OLDPWD,
// per spec §3's Environment invariant.
func (e *Environment) SetCwd(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.Chdir(abs); err != nil {
		return err
	}
	old := e.cwd
	e.cwd = abs
	e.exports["OLDPWD"] = old
	e.exports["PWD"] = abs
	os.Setenv("OLDPWD", old)
	os.Setenv("PWD", abs)
	return nil
}

// LastExitCode returns $?.
func (e *Environment) LastExitCode() int32 { return e.lastExitCode }

// SetLastExitCode records the most recently completed command's status.
func (e *Environment) SetLastExitCode(code int32) { e.lastExitCode = code }

// ShellPID returns $$.
func (e *Environment) ShellPID() int { return e.shellPID }

// ProcessEnviron returns the exported variables rendered as NAME=VALUE
// strings, suitable for os/exec.Cmd.Env.
func (e *Environment) ProcessEnviron() []string {
	out := make([]string, 0, len(e.exports))
	for k, v := range e.exports {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Exports returns a copy of the exported variables, for `env`.
func (e *Environment) Exports() map[string]string {
	return copyMap(e.exports)
}

// All returns a copy of locals and exports merged, for `set`.
func (e *Environment) All() map[string]string {
	m := copyMap(e.exports)
	for k, v := range e.locals {
		m[k] = v
	}
	return m
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SetAlias records name=value in the alias table.
func (e *Environment) SetAlias(name, value string) { e.aliases[name] = value }

// UnsetAlias removes name, reporting whether it existed.
func (e *Environment) UnsetAlias(name string) bool {
	_, ok := e.aliases[name]
	delete(e.aliases, name)
	return ok
}

// UnsetAllAliases clears the alias table (`unalias -a`).
func (e *Environment) UnsetAllAliases() { e.aliases = make(map[string]string) }

// Aliases returns a copy of the alias table, for `alias` with no args.
func (e *Environment) Aliases() map[string]string { return copyMap(e.aliases) }

// ExpandAlias returns the alias value for name, if any (spec §4.3).
func (e *Environment) ExpandAlias(name string) (string, bool) {
	v, ok := e.aliases[name]
	return v, ok
}

func isIdentHead(c byte) bool {
	return c == '_' || c == '?' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentTail(c byte) bool {
	return isIdentHead(c) || (c >= '0' && c <= '9')
}

// ExpandVariables performs the left-to-right scan of spec §4.3:
// ${NAME}, $NAME, and a leading ~ substituted against HOME.
func (e *Environment) ExpandVariables(input string) string {
	var out strings.Builder
	producedAny := false
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == '~' && !producedAny:
			if v, ok := e.GetValue("HOME"); ok {
				out.WriteString(v)
			}
			i++
			producedAny = true
		case c == '$' && i+1 < len(input) && input[i+1] == '{':
			j := i + 2
			for j < len(input) && input[j] != '}' {
				j++
			}
			name := input[i+2 : j]
			if v, ok := e.GetValue(name); ok {
				out.WriteString(v)
			}
			if j < len(input) {
				j++ // skip '}'
			}
			i = j
			producedAny = true
		case c == '$' && i+1 < len(input) && isIdentHead(input[i+1]):
			j := i + 1
			if input[j] == '?' {
				j++
			} else {
				for j < len(input) && isIdentTail(input[j]) {
					j++
				}
			}
			name := input[i+1 : j]
			if v, ok := e.GetValue(name); ok {
				out.WriteString(v)
			}
			i = j
			producedAny = true
		default:
			out.WriteByte(c)
			i++
			producedAny = true
		}
	}
	return out.String()
}
