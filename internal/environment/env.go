package environment

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/interp"
)

const (
	DEFAULT_PROMPT          = "manette> "
	DEFAULT_EDITOR          = "vi"
	DEFAULT_POPUP_HEIGHT    = 8
	DEFAULT_POPUP_PAGE_SIZE = 5
	DEFAULT_HISTORY_LIMIT   = 1024
)

func GetLogLevel(runner *interp.Runner) zap.AtomicLevel {
	logLevel, err := zap.ParseAtomicLevel(runner.Vars["MANETTE_LOG_LEVEL"].String())
	if err != nil {
		logLevel = zap.NewAtomicLevel()
	}
	return logLevel
}

func ShouldCleanLogFile(runner *interp.Runner) bool {
	cleanLogFile := strings.ToLower(runner.Vars["MANETTE_CLEAN_LOG_FILE"].String())
	return cleanLogFile == "1" || cleanLogFile == "true"
}

func GetPwd(runner *interp.Runner) string {
	return runner.Vars["PWD"].String()
}

func GetHomeDir(runner *interp.Runner) string {
	return runner.Vars["HOME"].String()
}

// GetPath splits PATH on the list separator. Empty elements are kept so
// callers can decide how to treat them.
func GetPath(runner *interp.Runner) []string {
	path := runner.Vars["PATH"].String()
	if path == "" {
		return []string{}
	}
	return filepath.SplitList(path)
}

func GetEditor(runner *interp.Runner) string {
	editor := strings.TrimSpace(runner.Vars["EDITOR"].String())
	if editor == "" {
		return DEFAULT_EDITOR
	}
	return editor
}

func GetPrompt(runner *interp.Runner, logger *zap.Logger) string {
	promptUpdater := runner.Funcs["MANETTE_UPDATE_PROMPT"]
	if promptUpdater != nil {
		err := runner.Run(context.Background(), promptUpdater)
		if err != nil {
			logger.Warn("error updating prompt", zap.Error(err))
		}
	}

	buildVersion := runner.Vars["MANETTE_BUILD_VERSION"].String()
	if buildVersion == "dev" {
		buildVersion = "[dev] "
	} else {
		buildVersion = ""
	}

	prompt := buildVersion + runner.Vars["MANETTE_PROMPT"].String()
	if prompt != "" {
		return prompt
	}
	return DEFAULT_PROMPT
}

func getPositiveInt(runner *interp.Runner, logger *zap.Logger, name string, fallback int) int {
	value, err := strconv.ParseInt(runner.Vars[name].String(), 10, 32)
	if err != nil {
		logger.Debug("error parsing "+name, zap.Error(err))
		return fallback
	}
	if value <= 0 {
		logger.Debug("ignoring non-positive "+name, zap.Int64("value", value))
		return fallback
	}
	return int(value)
}

func GetPopupHeight(runner *interp.Runner, logger *zap.Logger) int {
	return getPositiveInt(runner, logger, "MANETTE_POPUP_HEIGHT", DEFAULT_POPUP_HEIGHT)
}

func GetPopupPageSize(runner *interp.Runner, logger *zap.Logger) int {
	return getPositiveInt(runner, logger, "MANETTE_POPUP_PAGE_SIZE", DEFAULT_POPUP_PAGE_SIZE)
}

func GetHistoryLimit(runner *interp.Runner, logger *zap.Logger) int {
	return getPositiveInt(runner, logger, "MANETTE_HISTORY_LIMIT", DEFAULT_HISTORY_LIMIT)
}

// RunnerEnvironment exposes the interpreter's PATH and working directory to
// the completion engine. Reads happen on every query so cd and PATH changes
// made by commands are picked up.
type RunnerEnvironment struct {
	Runner *interp.Runner
}

func (e RunnerEnvironment) SearchPath() []string {
	return lo.Filter(GetPath(e.Runner), func(dir string, _ int) bool {
		return strings.TrimSpace(dir) != ""
	})
}

func (e RunnerEnvironment) WorkingDirectory() string {
	if pwd := GetPwd(e.Runner); pwd != "" {
		return pwd
	}
	return e.Runner.Dir
}
