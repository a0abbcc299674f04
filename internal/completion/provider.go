package completion

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/robottwo/manette/internal/filesystem"
	"github.com/robottwo/manette/pkg/shellinput"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	ErrNoSearchPath       = errors.New("no search path configured")
	ErrNoWorkingDirectory = errors.New("no working directory")
)

// Environment exposes the parts of the shell state that completion reads.
type Environment interface {
	// SearchPath returns the directories executables are looked up in.
	SearchPath() []string
	// WorkingDirectory returns the directory relative paths resolve against.
	WorkingDirectory() string
}

// ShellCompletionProvider implements shellinput.CompletionProvider by
// choosing between executable and path completion for each line.
type ShellCompletionProvider struct {
	Env    Environment
	FS     filesystem.FileSystem
	Logger *zap.Logger
}

// NewShellCompletionProvider creates a provider that reads the real disk.
func NewShellCompletionProvider(env Environment, logger *zap.Logger) *ShellCompletionProvider {
	return &ShellCompletionProvider{
		Env:    env,
		FS:     filesystem.DefaultFileSystem{},
		Logger: logger,
	}
}

// Autocomplete returns the choices for line sorted by label with duplicate
// labels removed.
func (p *ShellCompletionProvider) Autocomplete(line string) ([]shellinput.CompletionChoice, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	commandLine := ParseCommandLine(line)
	mode := SelectMode(commandLine)

	var choices []shellinput.CompletionChoice
	switch mode {
	case ModeExecutable:
		searchPath := lo.Filter(p.Env.SearchPath(), func(dir string, _ int) bool { return dir != "" })
		if len(searchPath) == 0 {
			return nil, ErrNoSearchPath
		}
		choices = CompleteExecutables(p.FS, commandLine.Command, searchPath, logger)

	case ModePath:
		workingDirectory := p.Env.WorkingDirectory()
		if workingDirectory == "" {
			return nil, ErrNoWorkingDirectory
		}
		var err error
		choices, err = CompletePath(p.FS, commandLine, workingDirectory)
		if err != nil {
			return nil, fmt.Errorf("path completion failed: %w", err)
		}
	}

	choices = SortAndDedup(choices)
	logger.Debug("completion query",
		zap.String("line", line),
		zap.Stringer("mode", mode),
		zap.Int("choices", len(choices)),
	)
	return choices, nil
}

// SortAndDedup sorts choices by label and keeps one choice per label.
func SortAndDedup(choices []shellinput.CompletionChoice) []shellinput.CompletionChoice {
	sorted := slices.Clone(choices)
	slices.SortStableFunc(sorted, func(a, b shellinput.CompletionChoice) int {
		return strings.Compare(a.Label, b.Label)
	})
	return lo.UniqBy(sorted, func(choice shellinput.CompletionChoice) string {
		return choice.Label
	})
}
