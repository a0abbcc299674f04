package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/robottwo/manette/internal/bash"
	"github.com/robottwo/manette/internal/core"
	"github.com/robottwo/manette/internal/environment"
	"github.com/robottwo/manette/internal/history"
	"go.uber.org/zap"
	"golang.org/x/term"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

var BUILD_VERSION = "dev"

//go:embed .manetterc.default
var DEFAULT_VARS []byte

var command = flag.String("c", "", "run a command")
var loginShell = flag.Bool("l", false, "run as a login shell")
var rcFile = flag.String("rcfile", "", "use a custom rc file instead of ~/.manetterc")
var strictConfig = flag.Bool("strict-config", false, "fail fast if configuration files contain errors (like bash 'set -e')")
var debugFlag = flag.Bool("debug", false, "write debug logs")

var helpFlag = flag.Bool("h", false, "display help information")
var versionFlag = flag.Bool("ver", false, "display build version")

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	if *helpFlag {
		fmt.Println("Usage of manette:")
		flag.PrintDefaults()
		return
	}

	// Initialize the history manager
	historyManager, err := history.NewHistoryManager(core.HistoryFile())
	if err != nil {
		panic("failed to initialize history manager")
	}
	defer func() {
		_ = historyManager.Close()
	}()

	sessionID := uuid.NewString()

	// Initialize the shell interpreter
	runner, err := initializeRunner(historyManager, sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialize the logger
	logger, err := initializeLogger(runner)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flush any buffered log entries
	}()

	logger.Info("-------- new manette session --------", zap.Any("args", os.Args), zap.String("session", sessionID))

	// Start running
	err = run(runner, historyManager, sessionID, logger)

	// Handle exit status
	if code, ok := interp.IsExitStatus(err); ok {
		os.Exit(int(code))
	}

	if err != nil {
		logger.Error("unhandled error", zap.Error(err))
		os.Exit(1)
	}
}

func run(
	runner *interp.Runner,
	historyManager *history.HistoryManager,
	sessionID string,
	logger *zap.Logger,
) error {
	ctx := context.Background()

	// manette -c "echo hello"
	if *command != "" {
		return bash.RunBashScriptFromReader(ctx, runner, strings.NewReader(*command), "manette")
	}

	// manette
	if flag.NArg() == 0 {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return core.RunInteractiveShell(ctx, runner, historyManager, sessionID, logger)
		}

		return bash.RunBashScriptFromReader(ctx, runner, os.Stdin, "manette")
	}

	// manette script.sh
	for _, filePath := range flag.Args() {
		if err := bash.RunBashScriptFromFile(ctx, runner, filePath); err != nil {
			return err
		}
	}

	return nil
}

func initializeLogger(runner *interp.Runner) (*zap.Logger, error) {
	logLevel := environment.GetLogLevel(runner)
	if BUILD_VERSION == "dev" || *debugFlag {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	if environment.ShouldCleanLogFile(runner) {
		_ = os.Remove(core.LogFile())
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// initializeRunner loads the shell configuration files and sets up the interpreter.
func initializeRunner(historyManager *history.HistoryManager, sessionID string) (*interp.Runner, error) {
	shellPath, err := os.Executable()
	if err != nil {
		panic(err)
	}
	dynamicEnv := environment.NewDynamicEnviron()
	dynamicEnv.UpdateSystemEnv()
	dynamicEnv.UpdateManetteVar("SHELL", shellPath)
	dynamicEnv.UpdateManetteVar("MANETTE_BUILD_VERSION", BUILD_VERSION)
	dynamicEnv.UpdateManetteVar("MANETTE_SESSION_ID", sessionID)

	runner, err := interp.New(
		interp.Interactive(true),
		interp.Env(expand.Environ(dynamicEnv)),
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
		interp.ExecHandlers(
			history.NewHistoryCommandHandler(historyManager, sessionID),
		),
	)
	if err != nil {
		return nil, err
	}

	// load default vars
	if err := bash.RunBashScriptFromReader(
		context.Background(),
		runner,
		bytes.NewReader(DEFAULT_VARS),
		"manette",
	); err != nil {
		panic(err)
	}

	files := configFiles(core.HomeDir(), *rcFile, *loginShell || strings.HasPrefix(os.Args[0], "-"))
	if err := loadConfigFiles(context.Background(), runner, files, *strictConfig, os.Stderr); err != nil {
		return nil, err
	}

	// Sync manette variables to system environment so they're visible to 'env' command
	environment.SyncVariablesToEnv(runner)

	return runner, nil
}

// configFiles lists the rc files to load, in order. A custom rc file
// replaces the defaults.
func configFiles(homeDir string, customRcFile string, login bool) []string {
	if customRcFile != "" {
		return []string{customRcFile}
	}

	files := []string{
		filepath.Join(homeDir, ".manetterc"),
		filepath.Join(homeDir, ".manetteenv"),
	}
	if login {
		files = append(
			[]string{
				"/etc/profile",
				filepath.Join(homeDir, ".manette_profile"),
			},
			files...,
		)
	}
	return files
}

// loadConfigFiles runs each non-empty file that exists. Errors are reported
// on stderr and skipped unless strict is set.
func loadConfigFiles(ctx context.Context, runner *interp.Runner, files []string, strict bool, stderr io.Writer) error {
	for _, configFile := range files {
		stat, err := os.Stat(configFile)
		if err != nil || stat.Size() == 0 {
			continue
		}

		if err := bash.RunBashScriptFromFile(ctx, runner, configFile); err != nil {
			fmt.Fprintf(stderr, "Configuration file %s contains errors: %v\n", configFile, err)

			if strict {
				return fmt.Errorf("aborting due to configuration error in %s: %w", configFile, err)
			}
		}
	}
	return nil
}
