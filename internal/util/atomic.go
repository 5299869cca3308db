// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// dirPerm is used for parent directories created by AtomicWriteFile. The
// ochat directory holds input history, so it is private to the user.
const dirPerm = 0o700

// AtomicWriteFile replaces path with data. The bytes go to a synced temp
// file in the same directory, which is then renamed over path, so readers
// see either the previous file or the new one. Missing parent directories
// are created.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("atomic write %s: create directory: %w", path, err)
	}

	tmp, err := writeTemp(dir, filepath.Base(target), data, perm)
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("atomic write %s: rename: %w", path, err)
	}
	return nil
}

// writeTemp stores data in a new hidden file next to name and returns its
// path. The file is synced, closed and has perm set. On error nothing is
// left behind.
func writeTemp(dir, name string, data []byte, perm os.FileMode) (_ string, err error) {
	f, err := os.CreateTemp(dir, "."+name+".tmp-")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return "", err
	}
	if err = f.Sync(); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	if err = os.Chmod(tmp, perm); err != nil {
		return "", err
	}
	return tmp, nil
}
