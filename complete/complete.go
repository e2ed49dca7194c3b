// Package complete generates completion candidates for command names
// and filesystem paths (spec §4.8).
package complete

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yandanp/termshell/builtin"
	"github.com/yandanp/termshell/environment"
)

// Candidate is one completion result.
type Candidate struct {
	Text  string
	IsDir bool
}

// Complete decides, from the full input typed so far, whether to
// complete a command name or a filesystem path, and returns the rune
// offset into input where the replacement should begin along with the
// ordered candidate list (spec §4.8). An empty trailing word (input
// ends in a space, or is empty) yields no candidates: there is nothing
// to complete.
func Complete(input string, env *environment.Environment) (start int, candidates []Candidate) {
	lastSpace := strings.LastIndexByte(input, ' ')
	wordStartByte := 0
	if lastSpace >= 0 {
		wordStartByte = lastSpace + 1
	}
	word := input[wordStartByte:]
	if word == "" {
		return 0, nil
	}

	if wordStartByte == 0 {
		return 0, completeCommandName(word, env)
	}
	return completePath(input, wordStartByte, word, env)
}

func completeCommandName(prefix string, env *environment.Environment) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			out = append(out, Candidate{Text: name})
		}
	}
	for _, name := range builtin.Names() {
		add(name)
	}
	for name := range env.Aliases() {
		add(name)
	}
	if path, ok := env.GetValue("PATH"); ok {
		for _, dir := range strings.Split(path, pathListSeparator()) {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, de := range entries {
				if de.IsDir() {
					continue
				}
				add(stripExecExtension(de.Name()))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// completePath implements the filesystem-path branch: the last word is
// split on the last path separator into (directory, prefix); entries of
// that directory are matched against prefix case-insensitively.
func completePath(input string, wordStartByte int, word string, env *environment.Environment) (int, []Candidate) {
	expandedWord := expandTilde(word, env)
	dirPart, prefix := splitPath(expandedWord)

	entries, err := os.ReadDir(dirOrDot(dirPart))
	if err != nil {
		return 0, nil
	}

	prefixLower := strings.ToLower(prefix)
	var out []Candidate
	for _, de := range entries {
		if !strings.HasPrefix(strings.ToLower(de.Name()), prefixLower) {
			continue
		}
		out = append(out, Candidate{Text: de.Name(), IsDir: de.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Text < out[j].Text
	})
	for i, c := range out {
		if c.IsDir {
			out[i].Text = c.Text + "/"
		}
	}

	// start is the rune offset where the *basename* portion begins,
	// so only the filename part of the word is rewritten (spec §4.7).
	_, origPrefix := splitPath(word)
	basenameByteOffset := len(word) - len(origPrefix)
	start := utf8.RuneCountInString(input[:wordStartByte+basenameByteOffset])
	return start, out
}

func splitPath(s string) (dir, base string) {
	sep := lastSeparatorIndex(s)
	if sep < 0 {
		return "", s
	}
	return s[:sep+1], s[sep+1:]
}

func lastSeparatorIndex(s string) int {
	idx := strings.LastIndexByte(s, '/')
	if runtime.GOOS == "windows" {
		if bs := strings.LastIndexByte(s, '\\'); bs > idx {
			idx = bs
		}
	}
	return idx
}

func dirOrDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

func expandTilde(word string, env *environment.Environment) string {
	if strings.HasPrefix(word, "~/") {
		if home, ok := env.GetValue("HOME"); ok {
			return filepath.Join(home, word[2:]) + stringIf(strings.HasSuffix(word, "/"), "/")
		}
	}
	return word
}

func stringIf(cond bool, s string) string {
	if cond {
		return s
	}
	return ""
}

func pathListSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

func stripExecExtension(name string) string {
	if runtime.GOOS != "windows" {
		return name
	}
	for _, ext := range []string{".exe", ".bat", ".cmd", ".ps1", ".com"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// CommonPrefix computes the longest case-insensitive common prefix of
// the candidates' Text fields (spec §4.8).
func CommonPrefix(candidates []Candidate) string {
	if len(candidates) == 0 {
		return ""
	}
	prefix := candidates[0].Text
	for _, c := range candidates[1:] {
		prefix = commonPrefixTwo(prefix, c.Text)
		if prefix == "" {
			break
		}
	}
	return prefix
}

func commonPrefixTwo(a, b string) string {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && al[i] == bl[i] {
		i++
	}
	return a[:i]
}
