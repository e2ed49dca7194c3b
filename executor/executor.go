// Package executor walks a parsed ast.CommandLine: pipeline sequencing,
// logical short-circuiting, built-in dispatch, external process spawn
// with pipe and redirect wiring (spec §4.4).
package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yandanp/termshell/ast"
	"github.com/yandanp/termshell/builtin"
	"github.com/yandanp/termshell/environment"
	"github.com/yandanp/termshell/history"
)

// Executor ties an Environment and History to the tree-walk evaluation
// of parsed command lines.
type Executor struct {
	Env     *environment.Environment
	History *history.History

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// bg tracks background pipelines so the shell can wait for them
	// (see Wait); grounded in the teacher's
	// interp.Runner.bgShells errgroup.Group field (interp/interp.go).
	bg errgroup.Group
}

// New builds an Executor wired to the process's real stdio.
func New(env *environment.Environment, hist *history.History) *Executor {
	return &Executor{
		Env:     env,
		History: hist,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Wait blocks until every background pipeline launched so far has
// finished.
func (x *Executor) Wait() error { return x.bg.Wait() }

// ShouldExit is returned by Run when the command line invoked `exit`.
type ShouldExit struct{ Code int32 }

func (e *ShouldExit) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// Run executes a full parsed command line and returns the exit status
// of the last pipeline actually run (spec §4.4). If the line's first
// pipeline's first command is textually "exit", Run returns *ShouldExit
// before evaluating anything else (spec §6 resolved Open Question 3).
func (x *Executor) Run(cl *ast.CommandLine) (int32, error) {
	if isExitLine(cl) {
		args := cl.Pipelines[0].Commands[0].Args
		code := int32(0)
		if len(args) > 0 {
			if n, err := parseExitCode(args[0]); err == nil {
				code = n
			}
		}
		return code, &ShouldExit{Code: code}
	}

	var last int32
	for i, pipeline := range cl.Pipelines {
		if i > 0 {
			op := cl.Operators[i-1]
			skip := (op == ast.And && last != 0) || (op == ast.Or && last == 0)
			if skip {
				continue
			}
		}
		status, err := x.runPipeline(pipeline)
		if err != nil {
			return last, err
		}
		if !pipeline.Background {
			last = status
			x.Env.SetLastExitCode(last)
		}
	}
	return last, nil
}

// isExitLine implements the documented textual-detection edge case: it
// checks only the very first command of the very first pipeline.
func isExitLine(cl *ast.CommandLine) bool {
	if len(cl.Pipelines) == 0 || len(cl.Pipelines[0].Commands) == 0 {
		return false
	}
	return cl.Pipelines[0].Commands[0].Name == "exit"
}

func parseExitCode(s string) (int32, error) {
	var n int32
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func (x *Executor) runPipeline(p *ast.Pipeline) (int32, error) {
	if len(p.Commands) == 0 {
		return 0, errors.New("empty pipeline")
	}
	if p.Background {
		cmds := p
		x.bg.Go(func() error {
			_, _ = x.execPipelineSync(cmds)
			return nil
		})
		return 0, nil
	}
	return x.execPipelineSync(p)
}

func (x *Executor) execPipelineSync(p *ast.Pipeline) (int32, error) {
	if len(p.Commands) == 1 {
		return x.runSingleCommand(p.Commands[0], p.StdinRedirect, p.StdoutRedirects)
	}
	return x.runMultiCommandPipeline(p)
}

func (x *Executor) runSingleCommand(cmd *ast.Command, stdinRedirect *ast.Redirect, stdoutRedirects []ast.Redirect) (int32, error) {
	expanded := x.expandCommand(cmd)
	expanded = x.expandAlias(expanded)

	for _, a := range expanded.EnvAssignments {
		x.Env.Set(a.Name, a.Value)
	}

	if fn, isBuiltin := builtin.Lookup(expanded.Name); isBuiltin {
		return x.runBuiltin(fn, expanded, stdinRedirect, stdoutRedirects)
	}
	return x.runExternal(expanded, stdinRedirect, stdoutRedirects, nil, nil)
}

// expandCommand applies expand_variables to the command name and every
// argument (spec §4.4).
func (x *Executor) expandCommand(cmd *ast.Command) *ast.Command {
	out := &ast.Command{
		Name:           x.Env.ExpandVariables(cmd.Name),
		EnvAssignments: cmd.EnvAssignments,
		Redirects:      cmd.Redirects,
	}
	for _, a := range cmd.Args {
		out.Args = append(out.Args, x.Env.ExpandVariables(a))
	}
	for i, a := range out.EnvAssignments {
		out.EnvAssignments[i] = ast.EnvAssignment{Name: a.Name, Value: x.Env.ExpandVariables(a.Value)}
	}
	return out
}

// expandAlias splices an alias's whitespace-split tokens onto the front
// of the command's argument list, the first token becoming the new
// command name (spec §4.3). Applied once, non-recursively.
func (x *Executor) expandAlias(cmd *ast.Command) *ast.Command {
	value, ok := x.Env.ExpandAlias(cmd.Name)
	if !ok {
		return cmd
	}
	tokens := strings.Fields(value)
	if len(tokens) == 0 {
		return cmd
	}
	out := &ast.Command{
		Name:           tokens[0],
		EnvAssignments: cmd.EnvAssignments,
		Redirects:      cmd.Redirects,
	}
	out.Args = append(out.Args, tokens[1:]...)
	out.Args = append(out.Args, cmd.Args...)
	return out
}

func (x *Executor) runBuiltin(fn builtin.Func, cmd *ast.Command, stdinRedirect *ast.Redirect, stdoutRedirects []ast.Redirect) (int32, error) {
	result := fn(cmd.Args, x.Env, x.History)

	stdout, stderr, closeFn, err := x.openRedirectSinks(stdoutRedirects)
	if err != nil {
		fmt.Fprintln(x.Stderr, err)
		return 1, nil
	}
	defer closeFn()

	if result.Output != "" {
		fmt.Fprint(stdout, result.Output)
	}
	if result.Err != "" {
		fmt.Fprint(stderr, result.Err)
	}
	if result.ShouldExit {
		return result.ExitCode, &ShouldExit{Code: result.ExitCode}
	}
	return result.Status, nil
}

// openRedirectSinks resolves the stdout/stderr destinations for a
// built-in's captured output, honouring any redirects attached to the
// pipeline (spec §4.4 "Built-in output capture").
func (x *Executor) openRedirectSinks(redirects []ast.Redirect) (stdout, stderr io.Writer, closeFn func(), err error) {
	stdout, stderr = x.Stdout, x.Stderr
	var files []*os.File
	closeFn = func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, r := range redirects {
		f, openErr := openRedirectFile(r)
		if openErr != nil {
			closeFn()
			return nil, nil, func() {}, openErr
		}
		files = append(files, f)
		switch r.Kind {
		case ast.StdoutOverwrite, ast.StdoutAppend:
			stdout = f
		case ast.StderrOverwrite, ast.StderrAppend:
			stderr = f
		case ast.BothOverwrite, ast.BothAppend:
			stdout, stderr = f, f
		}
	}
	return stdout, stderr, closeFn, nil
}

func openRedirectFile(r ast.Redirect) (*os.File, error) {
	switch r.Kind {
	case ast.StdoutOverwrite, ast.StderrOverwrite, ast.BothOverwrite:
		return os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	case ast.StdoutAppend, ast.StderrAppend, ast.BothAppend:
		return os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	case ast.StdinRead:
		return os.Open(r.Target)
	}
	return nil, fmt.Errorf("unknown redirect kind %v", r.Kind)
}

// runExternal spawns an external process for cmd. On Windows it runs
// through the OS command interpreter with a /c prefix (spec §4.4, §6
// resolved Open Question 1); elsewhere it execs the resolved binary
// directly.
func (x *Executor) runExternal(cmd *ast.Command, stdinRedirect *ast.Redirect, stdoutRedirects []ast.Redirect, stdin io.Reader, stdout io.Writer) (int32, error) {
	name, args := resolveCommandLine(cmd)
	c := exec.Command(name, args...)
	c.Dir = x.Env.Cwd()
	c.Env = x.Env.ProcessEnviron()

	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	if stdin != nil {
		c.Stdin = stdin
	} else if stdinRedirect != nil {
		f, err := openRedirectFile(*stdinRedirect)
		if err != nil {
			fmt.Fprintf(x.Stderr, "%s: %v\n", cmd.Name, err)
			return 1, nil
		}
		files = append(files, f)
		c.Stdin = f
	} else {
		c.Stdin = x.Stdin
	}

	if stdout != nil {
		c.Stdout = stdout
	} else {
		c.Stdout = x.Stdout
	}
	c.Stderr = x.Stderr
	for _, r := range stdoutRedirects {
		f, err := openRedirectFile(r)
		if err != nil {
			fmt.Fprintf(x.Stderr, "%s: %v\n", cmd.Name, err)
			return 1, nil
		}
		files = append(files, f)
		switch r.Kind {
		case ast.StdoutOverwrite, ast.StdoutAppend:
			c.Stdout = f
		case ast.StderrOverwrite, ast.StderrAppend:
			c.Stderr = f
		case ast.BothOverwrite, ast.BothAppend:
			c.Stdout, c.Stderr = f, f
		}
	}

	if err := c.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			fmt.Fprintf(x.Stderr, "%s: command not found\n", cmd.Name)
			return 127, nil
		}
		fmt.Fprintf(x.Stderr, "%s: %v\n", cmd.Name, err)
		return 127, nil
	}
	return waitForExit(c)
}

// resolveCommandLine builds the argv the OS should exec, applying the
// Windows command-interpreter prefix documented in spec §4.4/§6.
func resolveCommandLine(cmd *ast.Command) (string, []string) {
	if runtime.GOOS == "windows" {
		full := append([]string{cmd.Name}, cmd.Args...)
		return "cmd", []string{"/c", strings.Join(full, " ")}
	}
	return cmd.Name, cmd.Args
}

// runMultiCommandPipeline wires each command's stdin to the previous
// command's stdout via in-memory io.Pipe pairs, runs every child in its
// own goroutine, then waits for all of them; the pipeline's exit status
// is the status of the last command.
func (x *Executor) runMultiCommandPipeline(p *ast.Pipeline) (int32, error) {
	n := len(p.Commands)
	readers := make([]*io.PipeReader, n-1)
	writers := make([]*io.PipeWriter, n-1)
	for i := range readers {
		readers[i], writers[i] = io.Pipe()
	}

	statuses := make([]int32, n)
	var group errgroup.Group

	for i, cmd := range p.Commands {
		i, cmd := i, cmd
		var stdin io.Reader
		var stdout io.Writer
		var stdinRedirect *ast.Redirect
		var stdoutRedirects []ast.Redirect

		if i == 0 {
			stdinRedirect = p.StdinRedirect
		} else {
			stdin = readers[i-1]
		}
		if i == n-1 {
			stdoutRedirects = p.StdoutRedirects
		} else {
			stdout = writers[i]
		}

		expanded := x.expandAlias(x.expandCommand(cmd))
		for _, a := range expanded.EnvAssignments {
			x.Env.Set(a.Name, a.Value)
		}

		group.Go(func() error {
			// Every member of a multi-command pipe chain is spawned as
			// a real external process, never builtin-dispatched: a Go
			// builtin has no stdin reader to honour a piped-in prior
			// command's output (original_source/src-tauri/src/csh/executor.rs
			// execute_pipe_chain never checks is_builtin here either —
			// only execute_single_command's one-command path does).
			status, _ := x.runExternal(expanded, stdinRedirect, stdoutRedirects, stdin, stdout)
			statuses[i] = status
			if i > 0 {
				if r, ok := stdin.(*io.PipeReader); ok {
					r.Close()
				}
			}
			if i < n-1 {
				writers[i].Close()
			}
			return nil
		})
	}
	group.Wait()
	return statuses[n-1], nil
}
