package bash

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// threadSafeBuffer collects output written by commands that may run in
// background goroutines of the interpreter, such as pipeline stages.
type threadSafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *threadSafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *threadSafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func RunBashScriptFromReader(ctx context.Context, runner *interp.Runner, reader io.Reader, name string) error {
	prog, err := syntax.NewParser().Parse(reader, name)
	if err != nil {
		return err
	}
	return runner.Run(ctx, prog)
}

func RunBashScriptFromFile(ctx context.Context, runner *interp.Runner, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return RunBashScriptFromReader(ctx, runner, f, filePath)
}

// RunCommand runs command on runner and returns what it wrote to stdout and
// stderr. State changes such as cd or variable assignments persist on
// runner. The output is returned even when the command fails; a non-zero
// exit is reported as an error that interp.IsExitStatus recognizes.
//
// Statements run one at a time so that runner.Exited only reports an
// explicit exit, never the end of the input.
func RunCommand(ctx context.Context, runner *interp.Runner, command string) (string, string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return "", "", err
	}

	outBuf := &threadSafeBuffer{}
	errBuf := &threadSafeBuffer{}
	_ = interp.StdIO(nil, outBuf, errBuf)(runner)
	defer func() {
		_ = interp.StdIO(os.Stdin, os.Stdout, os.Stderr)(runner)
	}()

	err = runStatements(ctx, runner, prog.Stmts)
	return outBuf.String(), errBuf.String(), err
}

// runStatements runs stmts in order and returns the result of the last one
// that ran. A failing exit status does not stop the list; exit, a fatal
// error or cancellation does.
func runStatements(ctx context.Context, runner *interp.Runner, stmts []*syntax.Stmt) error {
	var err error
	for _, stmt := range stmts {
		err = runner.Run(ctx, stmt)
		if runner.Exited() {
			return err
		}
		if _, ok := interp.IsExitStatus(err); err != nil && !ok {
			return err
		}
	}
	return err
}

// ExitCode maps an error returned by RunCommand to a shell exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := interp.IsExitStatus(err); ok {
		return int(code)
	}
	return 1
}
