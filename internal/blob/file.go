package blob

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File stores each key as dir/<key>.json. Writes go to a temp file in the
// same directory and are renamed into place, so readers see either the old
// or the new value.
type File struct {
	dir string
}

// NewFile creates dir (0700) if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// path maps a key to a file name, replacing anything outside [A-Za-z0-9._-].
func (f *File) path(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, key)
	return filepath.Join(f.dir, name+".json")
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	file, err := openFileNoFollowRead(f.path(key))
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (f *File) Put(_ context.Context, key string, value []byte) (err error) {
	target := f.path(key)
	tempPath := fmt.Sprintf("%s.tmp-%d-%d", target, os.Getpid(), time.Now().UnixNano())

	file, err := openFileNoFollow(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err = file.Write(value); err != nil {
		file.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err = file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync blob: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close blob: %w", err)
	}

	// os.Rename would follow a symlink planted at the destination
	if info, lerr := os.Lstat(target); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
		err = fmt.Errorf("blob path is a symlink: %s", target)
		return err
	}

	if err = os.Rename(tempPath, target); err != nil {
		return fmt.Errorf("failed to finalize blob: %w", err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
