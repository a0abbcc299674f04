package completion

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/robottwo/manette/internal/filesystem"
	"github.com/robottwo/manette/pkg/shellinput"
	"go.uber.org/zap"
)

// executableBits is any of the owner, group or other execute permissions.
const executableBits = 0o111

// CompleteExecutables lists the entries of searchDirs whose names start
// with prefix and that carry an execute permission bit. Directories are
// scanned in order and the result is neither sorted nor deduplicated.
// Directories or entries that cannot be read are logged and skipped.
func CompleteExecutables(fs filesystem.FileSystem, prefix string, searchDirs []string, logger *zap.Logger) []shellinput.CompletionChoice {
	var choices []shellinput.CompletionChoice

	for _, dir := range searchDirs {
		entries, err := fs.ReadDir(dir)
		if err != nil {
			logger.Debug("cannot list search path directory", zap.String("dir", dir), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if !utf8.ValidString(name) {
				logger.Debug("skipping entry with non utf-8 name", zap.String("dir", dir))
				continue
			}
			if !strings.HasPrefix(name, prefix) {
				continue
			}

			info, err := fs.Stat(filepath.Join(dir, name))
			if err != nil {
				logger.Warn("cannot read metadata", zap.String("dir", dir), zap.String("name", name), zap.Error(err))
				continue
			}
			if info.Mode().Perm()&executableBits == 0 {
				continue
			}

			choices = append(choices, shellinput.CompletionChoice{Label: name, Completion: name})
		}
	}

	return choices
}
