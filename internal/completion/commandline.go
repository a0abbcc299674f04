package completion

import "strings"

// CommandLine is a line of input split into a command and its arguments.
// Tokens are separated by exactly one space, so consecutive or trailing
// spaces produce empty arguments.
type CommandLine struct {
	Command   string
	Arguments []string
}

// ParseCommandLine splits raw on the space character. The first token is
// the command, even when it is empty.
func ParseCommandLine(raw string) CommandLine {
	tokens := strings.Split(raw, " ")
	return CommandLine{
		Command:   tokens[0],
		Arguments: tokens[1:],
	}
}

// String joins the command and arguments with single spaces.
func (c CommandLine) String() string {
	return strings.Join(append([]string{c.Command}, c.Arguments...), " ")
}

// CurrentArgument returns the last argument, or "" when there is none.
func (c CommandLine) CurrentArgument() string {
	if len(c.Arguments) == 0 {
		return ""
	}
	return c.Arguments[len(c.Arguments)-1]
}

// WithCurrentArgument returns a copy of the line whose last argument is
// replaced by arg. A line without arguments gains arg as its only one.
func (c CommandLine) WithCurrentArgument(arg string) CommandLine {
	arguments := make([]string, 0, len(c.Arguments)+1)
	if len(c.Arguments) > 0 {
		arguments = append(arguments, c.Arguments[:len(c.Arguments)-1]...)
	}
	arguments = append(arguments, arg)
	return CommandLine{Command: c.Command, Arguments: arguments}
}
