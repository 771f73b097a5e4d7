package editor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
)

// FileIO reads and writes whole files for the tab manager.
type FileIO interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// OSFileIO is the FileIO backed by the local filesystem. WriteFile never
// leaves a partially written destination: content goes to a temporary file
// in the same directory which is synced and renamed over the target.
type OSFileIO struct{}

// ReadFile reads path.
func (OSFileIO) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile atomically replaces path with data, keeping the permissions of
// an existing file.
func (OSFileIO) WriteFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// sniffLen is how much of a file is inspected for binary content.
const sniffLen = 8192

// checkText returns ErrBinaryFile when data looks like a binary format or
// contains NUL bytes.
func checkText(path string, data []byte) error {
	head := data[:min(len(data), sniffLen)]
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		return fmt.Errorf("%s (%s): %w", path, kind.MIME.Value, ErrBinaryFile)
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return fmt.Errorf("%s: %w", path, ErrBinaryFile)
	}
	return nil
}
