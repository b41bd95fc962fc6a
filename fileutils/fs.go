package fileutils

import (
	"errors"
	"os"
	"path/filepath"
)

// Exists returns true if the path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Filesystem abstracts the mutating filesystem operations of the mirror
// directory so dry runs and tests can intercept them. Reads go through os
// directly.
type Filesystem interface {
	MkdirAll(path string) error
	// Symlink links newname to target. Replacing an identical existing link
	// is a no-op.
	Symlink(target, newname string) error
	// Remove deletes a file. A missing file is not an error.
	Remove(path string) error
	RemoveAll(path string) error
}

type osFilesystem struct{}

// OSFilesystem returns the real filesystem.
func OSFilesystem() Filesystem { return osFilesystem{} }

func (osFilesystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (osFilesystem) Symlink(target, newname string) error {
	if existing, err := os.Readlink(newname); err == nil {
		if existing == target {
			return nil
		}
		if err := os.Remove(newname); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(newname), 0o755); err != nil {
		return err
	}
	return os.Symlink(target, newname)
}

func (osFilesystem) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (osFilesystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

type dryRunFilesystem struct{}

// DryRunFilesystem returns a filesystem that accepts every mutation without
// touching disk.
func DryRunFilesystem() Filesystem { return dryRunFilesystem{} }

func (dryRunFilesystem) MkdirAll(string) error        { return nil }
func (dryRunFilesystem) Symlink(string, string) error { return nil }
func (dryRunFilesystem) Remove(string) error          { return nil }
func (dryRunFilesystem) RemoveAll(string) error       { return nil }
