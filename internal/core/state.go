package core

import "time"

// ShellState holds the outcome of the last command the session ran
type ShellState struct {
	LastCommand  string
	LastExitCode int
	LastStderr   string
	LastDuration time.Duration
}
