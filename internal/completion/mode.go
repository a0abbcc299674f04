package completion

// Mode is the kind of completion a line calls for.
type Mode int

const (
	// ModeExecutable completes the command name from the search path.
	ModeExecutable Mode = iota
	// ModePath completes the last argument as a filesystem path.
	ModePath
)

func (m Mode) String() string {
	switch m {
	case ModePath:
		return "path"
	default:
		return "executable"
	}
}

// SelectMode picks executable completion while no argument has been started
// and path completion afterwards. A line gets its first argument as soon as
// it contains a space.
func SelectMode(line CommandLine) Mode {
	if len(line.Arguments) == 0 {
		return ModeExecutable
	}
	return ModePath
}
