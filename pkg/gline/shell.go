package gline

import (
	"context"
	"os/exec"
	"time"
)

// Request is a line handed to the shell for execution.
type Request struct {
	Line string
	// Quiet requests are neither echoed nor recorded in history.
	Quiet bool
}

// Snapshot is the part of the shell state shown around the input line.
type Snapshot struct {
	Prompt           string
	WorkingDirectory string
	// History holds earlier lines, most recent first.
	History []string
}

// Result describes a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	// Exited is set when the command asked the shell to exit.
	Exited bool
	// Err is set when the command could not run at all, such as on a
	// syntax error, as opposed to running and failing.
	Err error

	Snapshot Snapshot
}

// Shell runs the lines entered in the editor. Execute and FinishEdit are
// called off the UI goroutine.
type Shell interface {
	Snapshot() Snapshot
	Execute(ctx context.Context, req Request) Result
	// EditCommand returns the editor process for an edit request, or nil
	// when line is an ordinary command.
	EditCommand(line string) *exec.Cmd
	// FinishEdit records an edit request once the editor has exited.
	FinishEdit(line string, err error) Result
}
