//go:build windows

package blob

import (
	"os"
)

// openFileNoFollow opens a file for writing.
// On Windows, O_NOFOLLOW is not available; File.Put still refuses a
// symlinked destination before renaming.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a file for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	return os.Open(path)
}
