package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robottwo/manette/internal/bash"
	"github.com/robottwo/manette/internal/completion"
	"github.com/robottwo/manette/internal/environment"
	"github.com/robottwo/manette/internal/history"
	"github.com/robottwo/manette/pkg/gline"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// exit codes reported for lines that never ran to completion
	syntaxErrorExitCode = 2
	interruptedExitCode = 130

	// LastStderr keeps at most this many bytes
	maxCapturedStderr = 64 * 1024

	editCommandName = "edit"
)

// ShellSession runs lines entered in the editor against one interpreter and
// records them in history. The interpreter is not safe for concurrent use,
// so every access to it goes through mu.
type ShellSession struct {
	Runner         *interp.Runner
	HistoryManager *history.HistoryManager
	SessionID      string
	Logger         *zap.Logger
	State          ShellState

	mu sync.RWMutex
}

func NewShellSession(runner *interp.Runner, historyManager *history.HistoryManager, sessionID string, logger *zap.Logger) *ShellSession {
	return &ShellSession{
		Runner:         runner,
		HistoryManager: historyManager,
		SessionID:      sessionID,
		Logger:         logger,
	}
}

func (s *ShellSession) Snapshot() gline.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ShellSession) snapshotLocked() gline.Snapshot {
	prompt := environment.GetPrompt(s.Runner, s.Logger)
	s.Logger.Debug("prompt updated", zap.String("prompt", prompt))

	commands, err := s.HistoryManager.RecentCommands(environment.GetHistoryLimit(s.Runner, s.Logger))
	if err != nil {
		s.Logger.Warn("error getting recent history entries", zap.Error(err))
		commands = []string{}
	}

	return gline.Snapshot{
		Prompt:           prompt,
		WorkingDirectory: s.workingDirectory(),
		History:          commands,
	}
}

func (s *ShellSession) Execute(ctx context.Context, req gline.Request) gline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := syntax.NewParser().Parse(strings.NewReader(req.Line), ""); err != nil {
		s.Logger.Debug("error parsing command", zap.String("command", req.Line), zap.Error(err))
		s.updateState(req.Line, syntaxErrorExitCode, "", 0)
		return gline.Result{
			ExitCode: syntaxErrorExitCode,
			Err:      err,
			Snapshot: s.snapshotLocked(),
		}
	}

	var entry *history.HistoryEntry
	if !req.Quiet {
		var err error
		entry, err = s.HistoryManager.StartCommand(req.Line, s.workingDirectory(), s.SessionID)
		if err != nil {
			s.Logger.Warn("error recording command", zap.Error(err))
		}
	}

	startTime := time.Now()
	stdout, stderr, err := bash.RunCommand(ctx, s.Runner, req.Line)
	duration := time.Since(startTime)
	exited := s.Runner.Exited()

	result := gline.Result{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: bash.ExitCode(err),
		Duration: duration,
		Exited:   exited,
	}
	if _, ok := interp.IsExitStatus(err); err != nil && !ok {
		if ctx.Err() != nil {
			result.ExitCode = interruptedExitCode
		} else {
			result.Err = err
		}
	}

	s.Logger.Debug(
		"command finished",
		zap.String("command", req.Line),
		zap.Int("exitCode", result.ExitCode),
		zap.Duration("duration", duration),
		zap.Bool("exited", exited),
	)

	if entry != nil {
		if _, err := s.HistoryManager.FinishCommand(entry, result.ExitCode); err != nil {
			s.Logger.Warn("error finishing history entry", zap.Error(err))
		}
	}

	s.updateState(req.Line, result.ExitCode, stderr, duration)
	if !exited {
		s.publishStatus(result.ExitCode, duration)
	}
	environment.SyncVariablesToEnv(s.Runner)

	result.Snapshot = s.snapshotLocked()
	return result
}

// EditCommand builds the $EDITOR process for "edit [file...]".
func (s *ShellSession) EditCommand(line string) *exec.Cmd {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != editCommandName {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	editor := strings.Fields(environment.GetEditor(s.Runner))
	args := append(editor[1:], fields[1:]...)

	cmd := exec.Command(editor[0], args...)
	cmd.Dir = s.workingDirectory()
	cmd.Env = s.exportedEnv()

	s.Logger.Debug("edit command", zap.String("editor", editor[0]), zap.Strings("args", args))
	return cmd
}

func (s *ShellSession) workingDirectory() string {
	return environment.RunnerEnvironment{Runner: s.Runner}.WorkingDirectory()
}

// exportedEnv lists the exported interpreter variables as KEY=value pairs.
func (s *ShellSession) exportedEnv() []string {
	if len(s.Runner.Vars) == 0 {
		return os.Environ()
	}

	env := make([]string, 0, len(s.Runner.Vars))
	for name, vr := range s.Runner.Vars {
		if vr.Exported && vr.IsSet() {
			env = append(env, name+"="+vr.String())
		}
	}
	sort.Strings(env)
	return env
}

// FinishEdit records an edit line once the editor has exited.
func (s *ShellSession) FinishEdit(line string, err error) gline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := gline.Result{}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = 1
		result.Err = err
	}

	entry, recordErr := s.HistoryManager.StartCommand(line, s.workingDirectory(), s.SessionID)
	if recordErr != nil {
		s.Logger.Warn("error recording command", zap.Error(recordErr))
	} else if _, recordErr = s.HistoryManager.FinishCommand(entry, result.ExitCode); recordErr != nil {
		s.Logger.Warn("error finishing history entry", zap.Error(recordErr))
	}

	s.updateState(line, result.ExitCode, "", 0)
	s.publishStatus(result.ExitCode, 0)

	result.Snapshot = s.snapshotLocked()
	return result
}

// CompletionEnvironment returns the interpreter's search path and working
// directory for completion queries. Reads wait for any running command.
func (s *ShellSession) CompletionEnvironment() completion.Environment {
	return guardedEnvironment{
		mu:  &s.mu,
		env: environment.RunnerEnvironment{Runner: s.Runner},
	}
}

func (s *ShellSession) updateState(command string, exitCode int, stderr string, duration time.Duration) {
	if len(stderr) > maxCapturedStderr {
		stderr = stderr[:maxCapturedStderr]
	}
	s.State = ShellState{
		LastCommand:  command,
		LastExitCode: exitCode,
		LastStderr:   stderr,
		LastDuration: duration,
	}
}

// publishStatus exposes the last exit code and duration to the shell. The
// trailing subshell keeps $? pointing at the user's command.
func (s *ShellSession) publishStatus(exitCode int, duration time.Duration) {
	status := fmt.Sprintf(
		"MANETTE_LAST_COMMAND_EXIT_CODE=%d; MANETTE_LAST_COMMAND_DURATION_MS=%d; (exit %d)",
		exitCode, duration.Milliseconds(), exitCode,
	)
	if _, _, err := bash.RunCommand(context.Background(), s.Runner, status); err != nil {
		if _, ok := interp.IsExitStatus(err); !ok {
			s.Logger.Warn("error publishing command status", zap.Error(err))
		}
	}
}

type guardedEnvironment struct {
	mu  *sync.RWMutex
	env completion.Environment
}

func (g guardedEnvironment) SearchPath() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.env.SearchPath()
}

func (g guardedEnvironment) WorkingDirectory() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.env.WorkingDirectory()
}

func RunInteractiveShell(
	ctx context.Context,
	runner *interp.Runner,
	historyManager *history.HistoryManager,
	sessionID string,
	logger *zap.Logger,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := NewShellSession(runner, historyManager, sessionID, logger)

	options := gline.NewOptions()
	options.PopupHeight = environment.GetPopupHeight(runner, logger)
	options.PopupPageSize = environment.GetPopupPageSize(runner, logger)
	options.HomeDirectory = environment.GetHomeDir(runner)
	options.CompletionProvider = completion.NewShellCompletionProvider(session.CompletionEnvironment(), logger)

	chanSIGINT := make(chan os.Signal, 1)
	signal.Notify(chanSIGINT, os.Interrupt)
	defer signal.Stop(chanSIGINT)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			// ignore SIGINT
			case <-chanSIGINT:
			}
		}
	}()

	if err := gline.Run(session, logger, options); err != nil {
		logger.Error("error running interactive shell", zap.Error(err))
		return err
	}

	logger.Debug("exiting...")
	return nil
}
