// Package builtin implements the shell's built-in commands by contract
// (spec §4.5): each one is pure with respect to its Environment and
// History inputs and never touches the raw terminal directly.
package builtin

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yandanp/termshell/environment"
	"github.com/yandanp/termshell/history"
)

// Result is a built-in's outcome (spec §4.4 "Built-in output capture").
type Result struct {
	Status     int32
	Output     string
	Err        string
	ShouldExit bool
	ExitCode   int32
}

func ok(output string) Result { return Result{Status: 0, Output: output} }

func failure(code int32, message string) Result {
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	return Result{Status: code, Err: message}
}

// Func is the signature every built-in implements.
type Func func(args []string, env *environment.Environment, hist *history.History) Result

// Table maps built-in names to their implementations; also doubles as
// the set of recognised built-in names for completion and `which`.
var Table = map[string]Func{
	"cd":      Cd,
	"pwd":     Pwd,
	"echo":    Echo,
	"exit":    Exit,
	"clear":   Clear,
	"cls":     Clear,
	"ls":      Ls,
	"dir":     Ls,
	"cat":     Cat,
	"type":    Cat,
	"env":     Env,
	"set":     Set,
	"export":  Export,
	"unset":   Unset,
	"alias":   Alias,
	"unalias": Unalias,
	"history": History,
	"which":   Which,
	"where":   Which,
	"help":    Help,
	"true":    True,
	"false":   False,
}

// Lookup returns the built-in for name, if any.
func Lookup(name string) (Func, bool) {
	f, ok := Table[name]
	return f, ok
}

// Names returns the sorted set of built-in names.
func Names() []string {
	names := make([]string, 0, len(Table))
	for n := range Table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Cd implements `cd [dir]` (spec §4.5).
func Cd(args []string, env *environment.Environment, _ *history.History) Result {
	var target string
	switch {
	case len(args) == 0:
		home, ok := env.GetValue("HOME")
		if !ok {
			return failure(1, "cd: HOME not set")
		}
		target = home
	case args[0] == "-":
		old, ok := env.GetValue("OLDPWD")
		if !ok {
			return failure(1, "cd: OLDPWD not set")
		}
		target = old
	default:
		target = expandTilde(args[0], env)
	}

	info, err := os.Stat(target)
	if err != nil {
		return failure(1, fmt.Sprintf("cd: %s: %v", target, err))
	}
	if !info.IsDir() {
		return failure(1, fmt.Sprintf("cd: %s: not a directory", target))
	}
	if err := env.SetCwd(target); err != nil {
		return failure(1, fmt.Sprintf("cd: %s: %v", target, err))
	}
	return ok("")
}

func expandTilde(path string, env *environment.Environment) string {
	if path == "~" {
		if home, ok := env.GetValue("HOME"); ok {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, ok := env.GetValue("HOME"); ok {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Pwd implements `pwd`.
func Pwd(_ []string, env *environment.Environment, _ *history.History) Result {
	return ok(env.Cwd() + "\n")
}

// Echo implements `echo [-n|-e|-E] ...` (spec §4.5).
func Echo(args []string, _ *environment.Environment, _ *history.History) Result {
	newline := true
	interpret := false
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-n":
			newline = false
		case "-e":
			interpret = true
		case "-E":
			interpret = false
		default:
			goto wordsDone
		}
		i++
	}
wordsDone:
	words := args[i:]
	text := strings.Join(words, " ")
	if interpret {
		var stop bool
		text, stop = interpretEscapes(text)
		if stop {
			newline = false
		}
	}
	if newline {
		text += "\n"
	}
	return ok(text)
}

// interpretEscapes implements `echo -e`'s backslash processing (spec
// §4.5): \n \t \r \\, \0NNN octal, \xNN hex, \a \b \f \v, and \c which
// stops all further output (including the trailing newline).
func interpretEscapes(s string) (string, bool) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '\\' || i+1 >= len(s) {
			out.WriteByte(s[i])
			i++
			continue
		}
		c := s[i+1]
		switch c {
		case 'n':
			out.WriteByte('\n')
			i += 2
		case 't':
			out.WriteByte('\t')
			i += 2
		case 'r':
			out.WriteByte('\r')
			i += 2
		case '\\':
			out.WriteByte('\\')
			i += 2
		case 'a':
			out.WriteByte('\a')
			i += 2
		case 'b':
			out.WriteByte('\b')
			i += 2
		case 'f':
			out.WriteByte('\f')
			i += 2
		case 'v':
			out.WriteByte('\v')
			i += 2
		case 'c':
			return out.String(), true
		case '0':
			j := i + 2
			for j < len(s) && j < i+5 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			if n, err := strconv.ParseUint(s[i+2:j], 8, 8); err == nil {
				out.WriteByte(byte(n))
			}
			i = j
		case 'x':
			j := i + 2
			for j < len(s) && j < i+4 && isHexDigit(s[j]) {
				j++
			}
			if n, err := strconv.ParseUint(s[i+2:j], 16, 8); err == nil {
				out.WriteByte(byte(n))
			}
			i = j
		default:
			out.WriteByte('\\')
			out.WriteByte(c)
			i += 2
		}
	}
	return out.String(), false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Exit implements `exit [n]`.
func Exit(args []string, _ *environment.Environment, _ *history.History) Result {
	code := int32(0)
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return failure(1, fmt.Sprintf("exit: %s: numeric argument required", args[0]))
		}
		code = int32(n)
	}
	return Result{Status: code, ShouldExit: true, ExitCode: code}
}

// Clear implements `clear`/`cls`.
func Clear(_ []string, _ *environment.Environment, _ *history.History) Result {
	return ok("\x1b[2J\x1b[H")
}

// True/False implement the trivial status built-ins.
func True(_ []string, _ *environment.Environment, _ *history.History) Result  { return ok("") }
func False(_ []string, _ *environment.Environment, _ *history.History) Result { return Result{Status: 1} }

// Env implements `env`: print exports sorted lexicographically.
func Env(_ []string, env *environment.Environment, _ *history.History) Result {
	return ok(formatSortedKV(env.Exports()))
}

// Set implements `set`: print all variables (locals+exports) sorted.
func Set(_ []string, env *environment.Environment, _ *history.History) Result {
	return ok(formatSortedKV(env.All()))
}

func formatSortedKV(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
		b.WriteByte('\n')
	}
	return b.String()
}

// Export implements `export NAME[=VALUE]...`.
func Export(args []string, env *environment.Environment, _ *history.History) Result {
	if len(args) == 0 {
		return ok(formatSortedKV(env.Exports()))
	}
	for _, a := range args {
		if i := strings.IndexByte(a, '='); i >= 0 {
			name, value := a[:i], a[i+1:]
			env.Export(name, &value)
		} else {
			env.Export(a, nil)
		}
	}
	return ok("")
}

// Unset implements `unset NAME...`.
func Unset(args []string, env *environment.Environment, _ *history.History) Result {
	for _, a := range args {
		env.Unset(a)
	}
	return ok("")
}

// Alias implements `alias [name[=value]]...`.
func Alias(args []string, env *environment.Environment, _ *history.History) Result {
	if len(args) == 0 {
		aliases := env.Aliases()
		keys := make([]string, 0, len(aliases))
		for k := range aliases {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "alias %s='%s'\n", k, aliases[k])
		}
		return ok(b.String())
	}
	for _, a := range args {
		i := strings.IndexByte(a, '=')
		if i < 0 {
			continue
		}
		env.SetAlias(a[:i], a[i+1:])
	}
	return ok("")
}

// Unalias implements `unalias name|-a`.
func Unalias(args []string, env *environment.Environment, _ *history.History) Result {
	if len(args) == 0 {
		return failure(1, "unalias: usage: unalias [-a] name [name ...]")
	}
	if args[0] == "-a" {
		env.UnsetAllAliases()
		return ok("")
	}
	for _, a := range args {
		if !env.UnsetAlias(a) {
			return failure(1, fmt.Sprintf("unalias: %s: not found", a))
		}
	}
	return ok("")
}

// History implements `history [n|-c]`.
func History(args []string, _ *environment.Environment, hist *history.History) Result {
	if len(args) > 0 && args[0] == "-c" {
		hist.Clear()
		return ok("")
	}
	entries := hist.Entries()
	n := len(entries)
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil && parsed >= 0 && parsed < n {
			n = parsed
		}
	}
	start := len(entries) - n
	var b strings.Builder
	for i := start; i < len(entries); i++ {
		fmt.Fprintf(&b, "%5d  %s\n", i+1, entries[i])
	}
	return ok(b.String())
}

// pathListSeparator is the host's PATH entry separator.
func pathListSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

// execExtensions lists the suffixes `which` tries on the host, per spec
// §4.5 ("searching "", .exe, .bat, .cmd, .ps1, .com suffixes").
func execExtensions() []string {
	if runtime.GOOS == "windows" {
		return []string{"", ".exe", ".bat", ".cmd", ".ps1", ".com"}
	}
	return []string{""}
}

// Which implements `which name`.
func Which(args []string, env *environment.Environment, _ *history.History) Result {
	if len(args) == 0 {
		return failure(1, "which: missing operand")
	}
	name := args[0]
	if _, isBuiltin := Lookup(name); isBuiltin {
		return ok(name + ": shell built-in\n")
	}
	if v, isAlias := env.ExpandAlias(name); isAlias {
		return ok(fmt.Sprintf("%s: aliased to %s\n", name, v))
	}
	path, ok2 := env.GetValue("PATH")
	if !ok2 {
		return failure(1, fmt.Sprintf("which: %s: not found", name))
	}
	for _, dir := range strings.Split(path, pathListSeparator()) {
		for _, ext := range execExtensions() {
			candidate := filepath.Join(dir, name+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return ok(candidate + "\n")
			}
		}
	}
	return failure(1, fmt.Sprintf("which: %s: not found", name))
}

const helpText = `Built-in commands:
  cd [dir]          change the current directory
  pwd               print the current directory
  echo [-n|-e] ...  print arguments
  exit [n]          exit the shell
  clear, cls        clear the screen
  ls [-als1] ...    list directory entries
  cat [-nE] files   concatenate files
  env, set          print variables
  export, unset     manage exported variables
  alias, unalias    manage aliases
  history [n|-c]    show or clear history
  which name        resolve a command name
  help [name]       show this text
  true, false       succeed or fail
`

// Help implements `help [name]`.
func Help(args []string, _ *environment.Environment, _ *history.History) Result {
	if len(args) == 0 {
		return ok(helpText)
	}
	name := args[0]
	for _, line := range strings.Split(helpText, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), name+" ") || strings.TrimSpace(line) == name {
			return ok(line + "\n")
		}
	}
	return failure(1, fmt.Sprintf("help: no help topics match %q", name))
}

// entry is one directory listing row, sorted per spec §4.5: directories
// before files, then case-insensitive lexicographic.
type entry struct {
	name  string
	path  string
	isDir bool
	info  fs.FileInfo
}

// Ls implements `ls [-a -l -s -1] [paths...]`.
func Ls(args []string, env *environment.Environment, _ *history.History) Result {
	var showAll, long, showSize, oneLine bool
	var paths []string
	for _, a := range args {
		switch {
		case a == "-a":
			showAll = true
		case a == "-l":
			long = true
		case a == "-s":
			showSize = true
		case a == "-1":
			oneLine = true
		case strings.HasPrefix(a, "-") && len(a) > 1:
			for _, c := range a[1:] {
				switch c {
				case 'a':
					showAll = true
				case 'l':
					long = true
				case 's':
					showSize = true
				case '1':
					oneLine = true
				}
			}
		default:
			paths = append(paths, a)
		}
	}
	if len(paths) == 0 {
		paths = []string{env.Cwd()}
	}

	var out, errs strings.Builder
	status := int32(0)
	for _, p := range paths {
		target := expandTilde(p, env)
		entries, err := readEntries(target, showAll)
		if err != nil {
			fmt.Fprintf(&errs, "ls: cannot access '%s': %v\n", p, err)
			status = 1
			continue
		}
		out.WriteString(renderEntries(entries, long, showSize, oneLine))
	}
	return Result{Status: status, Output: out.String(), Err: errs.String()}
}

func readEntries(dir string, showAll bool) ([]entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var entries []entry
	for _, de := range dirEntries {
		if !showAll && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{name: de.Name(), path: filepath.Join(dir, de.Name()), isDir: de.IsDir(), info: info})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})
	return entries, nil
}

func renderEntries(entries []entry, long, showSize, oneLine bool) string {
	var b strings.Builder
	if long {
		for _, e := range entries {
			fmt.Fprintf(&b, "%s %8d %s %s\n",
				permString(e.path, e.info), e.info.Size(),
				e.info.ModTime().Format(time.Stamp), e.name)
		}
		return b.String()
	}
	if oneLine || showSize {
		for _, e := range entries {
			if showSize {
				fmt.Fprintf(&b, "%8d %s\n", e.info.Size(), e.name)
			} else {
				b.WriteString(e.name)
				b.WriteByte('\n')
			}
		}
		return b.String()
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	b.WriteString(strings.Join(names, "  "))
	if len(names) > 0 {
		b.WriteByte('\n')
	}
	return b.String()
}

// Cat implements `cat [-n -E] files...`.
func Cat(args []string, _ *environment.Environment, _ *history.History) Result {
	var numberLines, showEnds bool
	var files []string
	for _, a := range args {
		switch a {
		case "-n":
			numberLines = true
		case "-E":
			showEnds = true
		default:
			files = append(files, a)
		}
	}
	var out, errs strings.Builder
	status := int32(0)
	lineNo := 1
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			fmt.Fprintf(&errs, "cat: %s: %v\n", f, err)
			status = 1
			continue
		}
		lines := strings.Split(string(data), "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			if numberLines {
				fmt.Fprintf(&out, "%6d\t", lineNo)
				lineNo++
			}
			out.WriteString(line)
			if showEnds {
				out.WriteByte('$')
			}
			out.WriteByte('\n')
		}
	}
	return Result{Status: status, Output: out.String(), Err: errs.String()}
}
