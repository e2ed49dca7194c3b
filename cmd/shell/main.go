// Command shell is the standalone interactive/non-interactive front
// end over the lexer/parser/environment/executor/lineedit stack
// (spec §6).
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yandanp/termshell/environment"
	"github.com/yandanp/termshell/executor"
	"github.com/yandanp/termshell/history"
	"github.com/yandanp/termshell/lineedit"
	"github.com/yandanp/termshell/parser"
)

const version = "0.1.0"

var (
	commandFlag string
	historyCap  int
	appName     = "termshell"
)

func main() {
	root := &cobra.Command{
		Use:           "shell [script]",
		Short:         "a small POSIX-flavoured shell",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().StringVarP(&commandFlag, "command", "c", "", "execute a command string and exit")
	root.Flags().IntVar(&historyCap, "history-capacity", history.DefaultCapacity, "maximum number of history entries kept")
	root.Flags().BoolP("version", "V", false, "print the version and exit")
	root.SetVersionTemplate("shell version {{.Version}}\n")

	if err := root.Execute(); err != nil {
		var se *executor.ShouldExit
		if errors.As(err, &se) {
			os.Exit(int(se.Code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	env, err := environment.New()
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}

	hist := history.New(historyCap)
	histPath, pathErr := history.FilePath(appName)
	if pathErr == nil {
		if err := hist.Load(histPath); err != nil {
			log.Printf("shell: loading history: %v", err)
		}
	}

	x := executor.New(env, hist)

	var runErr error
	switch {
	case commandFlag != "":
		runErr = runString(x, commandFlag)
	case len(args) == 1:
		runErr = runScript(x, args[0])
	default:
		runErr = runInteractiveOn(x, os.Stdin)
	}

	if pathErr == nil {
		if err := hist.Save(histPath); err != nil {
			log.Printf("shell: saving history: %v", err)
		}
	}
	return runErr
}

// runString executes a single command-string line (spec §6 `shell -c`).
func runString(x *executor.Executor, src string) error {
	status, err := runLine(x, src)
	x.Env.SetLastExitCode(status)
	var se *executor.ShouldExit
	if errors.As(err, &se) {
		return se
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if status != 0 {
		return &executor.ShouldExit{Code: status}
	}
	return nil
}

// runScript executes a script file (spec §6): `#`-comments and blank
// lines are skipped, a trailing `\` continues the logical line, and a
// parse error halts execution citing its 1-based line number.
func runScript(x *executor.Executor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	var pending strings.Builder
	pendingStart := 0

	flush := func(logical string, startLine int) error {
		if strings.TrimSpace(logical) == "" {
			return nil
		}
		cl, err := parser.Parse(logical)
		if err != nil {
			x.Env.SetLastExitCode(1)
			return fmt.Errorf("%s:%d: %w", path, startLine, err)
		}
		status, err := x.Run(cl)
		x.Env.SetLastExitCode(status)
		var se *executor.ShouldExit
		if errors.As(err, &se) {
			return se
		}
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, startLine, err)
		}
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if pending.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			pendingStart = lineNo
		}
		if strings.HasSuffix(line, "\\") {
			if pending.Len() > 0 {
				pending.WriteByte(' ')
			}
			pending.WriteString(strings.TrimSuffix(line, "\\"))
			continue
		}
		if pending.Len() > 0 {
			pending.WriteByte(' ')
		}
		pending.WriteString(line)
		logical := pending.String()
		pending.Reset()
		if err := flush(logical, pendingStart); err != nil {
			return err
		}
	}
	if pending.Len() > 0 {
		if err := flush(pending.String(), pendingStart); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// runInteractiveOn drives the raw-mode line editor in a read-eval loop
// until EOF, Ctrl-D on an empty line, or `exit`. in is a parameter
// (rather than a hardcoded os.Stdin) so tests can drive the loop over
// a pipe.
func runInteractiveOn(x *executor.Executor, in *os.File) error {
	ed := lineedit.NewEditor(in, x.Stdout, x.Env, x.History)
	for {
		res := ed.ReadLine(prompt(x))
		switch res.Outcome {
		case lineedit.EOF:
			return nil
		case lineedit.Interrupted:
			continue
		}
		line := strings.TrimSpace(res.Text)
		if line == "" {
			continue
		}
		x.History.Add(res.Text)

		status, err := runLine(x, line)
		var se *executor.ShouldExit
		if errors.As(err, &se) {
			return se
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
		}
		x.Env.SetLastExitCode(status)
	}
}

func runLine(x *executor.Executor, src string) (int32, error) {
	cl, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1, nil
	}
	return x.Run(cl)
}

func prompt(x *executor.Executor) string {
	if x.Env.LastExitCode() != 0 {
		return "! $ "
	}
	return "$ "
}
