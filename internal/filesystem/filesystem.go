package filesystem

import "os"

// FileSystem is the read-only view of the disk that completion needs.
type FileSystem interface {
	ReadDir(name string) ([]os.DirEntry, error)
	Stat(name string) (os.FileInfo, error)
}

type DefaultFileSystem struct{}

func (fs DefaultFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

// Stat follows symbolic links.
func (fs DefaultFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
