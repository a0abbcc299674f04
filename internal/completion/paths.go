package completion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/robottwo/manette/internal/filesystem"
	"github.com/robottwo/manette/pkg/shellinput"
)

// CompletePath completes the last argument of line as a path. Relative
// arguments are resolved against baseDir; an argument that starts with a
// slash is resolved from the root. Directories are offered with a trailing
// slash so they can be completed one level deeper.
func CompletePath(fs filesystem.FileSystem, line CommandLine, baseDir string) ([]shellinput.CompletionChoice, error) {
	current := line.CurrentArgument()

	dirPrefix := ""
	if i := strings.LastIndex(current, "/"); i >= 0 {
		dirPrefix = current[:i+1]
	}

	dir := baseDir
	switch {
	case filepath.IsAbs(dirPrefix):
		dir = dirPrefix
	case dirPrefix != "":
		dir = filepath.Join(baseDir, dirPrefix)
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", dir, err)
	}

	var choices []shellinput.CompletionChoice
	for _, entry := range entries {
		name := entry.Name()
		if !utf8.ValidString(name) {
			continue
		}

		display := name
		if isDirectory(fs, dir, entry) {
			display += "/"
		}

		path := dirPrefix + display
		if !strings.HasPrefix(path, current) {
			continue
		}

		choices = append(choices, shellinput.CompletionChoice{
			Label:      path,
			Completion: line.WithCurrentArgument(path).String(),
		})
	}

	return choices, nil
}

// isDirectory reports whether entry is a directory, following a symbolic
// link to find out.
func isDirectory(fs filesystem.FileSystem, dir string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.IsDir()
}
