package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const TempSuffix = ".foldersync.tmp"

// AtomicWrite streams r into a uniquely named temp file next to dst and
// renames it into place, replacing any existing dst.
func AtomicWrite(fs afero.Fs, dst string, r io.Reader, perm os.FileMode) (int64, error) {
	f, err := afero.TempFile(fs, filepath.Dir(dst), "."+filepath.Base(dst)+".*"+TempSuffix)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()

	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return 0, fmt.Errorf("failed to write: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := fs.Chmod(tmp, perm); err != nil {
		_ = fs.Remove(tmp)
		return 0, fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := fs.Rename(tmp, dst); err != nil {
		_ = fs.Remove(tmp)
		return 0, fmt.Errorf("failed to rename: %w", err)
	}

	return n, nil
}

// CopyFile copies src over dst through AtomicWrite, keeping the source
// permission bits.
func CopyFile(fs afero.Fs, src, dst string) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open src: %w", err)
	}

	defer func(f afero.File) {
		_ = f.Close()
	}(in)

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat src: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("non-regular source file %s (%q)", filepath.Base(src), info.Mode().String())
	}

	return AtomicWrite(fs, dst, in, info.Mode().Perm())
}

func RemoveIfExists(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

// ListFiles returns the names of the files directly inside dir, sorted by
// name. A symlink is listed when it resolves to a regular file.
func ListFiles(fs afero.Fs, dir string) ([]string, error) {
	return listEntries(fs, dir, func(target os.FileInfo, err error) bool {
		return err == nil && target.Mode().IsRegular()
	})
}

// ListRemovable returns the names of the entries directly inside dir that
// a mirror may delete: regular files and every symlink that does not
// resolve to a directory, dangling ones included.
func ListRemovable(fs afero.Fs, dir string) ([]string, error) {
	return listEntries(fs, dir, func(target os.FileInfo, err error) bool {
		return err != nil || !target.IsDir()
	})
}

func listEntries(fs afero.Fs, dir string, keepLink func(target os.FileInfo, err error) bool) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		switch {
		case info.Mode().IsRegular():
			names = append(names, info.Name())
		case info.Mode()&os.ModeSymlink != 0:
			if keepLink(fs.Stat(filepath.Join(dir, info.Name()))) {
				names = append(names, info.Name())
			}
		}
	}

	return names, nil
}

// IsFile reports whether path exists and is, or links to, a regular file.
func IsFile(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return info.Mode().IsRegular(), nil
}
