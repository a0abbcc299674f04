package history

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"mvdan.cc/sh/v3/interp"
)

const (
	defaultListLimit   = 20
	defaultSearchLimit = 10
)

const historyHelp = `Usage: history [option] [n]
Display or manipulate the history list.

Options:
  -c, --clear    clear the history list
  -d, --delete   delete history entry at offset
  -s, --session  display only entries from this session
  -h, --help     display this help message

  search QUERY   fuzzy search the history list

If n is given, display only the last n entries.
If no options are given, display the history list with line numbers.
`

// NewHistoryCommandHandler creates an ExecHandler middleware serving the
// history builtin. sessionID identifies the current session for --session.
func NewHistoryCommandHandler(historyManager *HistoryManager, sessionID string) func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) == 0 || args[0] != "history" {
				return next(ctx, args)
			}

			hc := interp.HandlerCtx(ctx)
			if err := runHistoryCommand(hc.Stdout, historyManager, sessionID, args[1:]); err != nil {
				fmt.Fprintf(hc.Stderr, "history: %v\n", err)
				return interp.NewExitStatus(1)
			}
			return nil
		}
	}
}

func runHistoryCommand(out io.Writer, historyManager *HistoryManager, sessionID string, args []string) error {
	if len(args) == 0 {
		return printEntries(out, historyManager, defaultListLimit)
	}

	switch args[0] {
	case "-h", "--help":
		_, err := io.WriteString(out, historyHelp)
		return err

	case "-c", "--clear":
		return historyManager.ResetHistory()

	case "-d", "--delete":
		if len(args) < 2 {
			return fmt.Errorf("%s: option requires an argument", args[0])
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%s: history position out of range", args[1])
		}
		return historyManager.DeleteEntry(uint(id))

	case "-s", "--session":
		entries, err := historyManager.GetSessionEntries(sessionID, limitArg(args[1:], defaultListLimit))
		if err != nil {
			return err
		}
		return writeEntries(out, entries)

	case "search":
		query := strings.TrimSpace(strings.Join(args[1:], " "))
		if query == "" {
			return fmt.Errorf("search: query required")
		}
		return printSearch(out, historyManager, query, defaultSearchLimit)
	}

	if strings.HasPrefix(args[0], "-") && !isNumber(args[0]) {
		return fmt.Errorf("%s: invalid option", args[0])
	}
	return printEntries(out, historyManager, limitArg(args, defaultListLimit))
}

// limitArg reads an optional positive count, falling back when it is
// missing or not positive.
func limitArg(args []string, fallback int) int {
	if len(args) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func printEntries(out io.Writer, historyManager *HistoryManager, limit int) error {
	entries, err := historyManager.GetRecentEntries("", limit)
	if err != nil {
		return err
	}
	return writeEntries(out, entries)
}

func writeEntries(out io.Writer, entries []HistoryEntry) error {
	for _, entry := range entries {
		if _, err := fmt.Fprintf(out, "%d %s\n", entry.ID, entry.Command); err != nil {
			return err
		}
	}
	return nil
}

// printSearch ranks distinct commands against query, best match first, and
// shows when each was last run.
func printSearch(out io.Writer, historyManager *HistoryManager, query string, limit int) error {
	entries, err := historyManager.GetAllEntries()
	if err != nil {
		return err
	}

	latest := lo.UniqBy(entries, func(entry HistoryEntry) string {
		return entry.Command
	})
	commands := lo.Map(latest, func(entry HistoryEntry, _ int) string {
		return entry.Command
	})

	matches := fuzzy.Find(query, commands)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	for _, match := range matches {
		entry := latest[match.Index]
		if _, err := fmt.Fprintf(out, "%d %s  (%s)\n", entry.ID, entry.Command, humanize.Time(entry.CreatedAt)); err != nil {
			return err
		}
	}
	return nil
}
