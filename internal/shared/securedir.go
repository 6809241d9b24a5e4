package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureSecureDir creates dir with 0700 permissions, refusing symlinks and tightening looser permissions.
//
// Telegram session files grant full account access, so they live only in directories private to the user.
func EnsureSecureDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("%w: empty directory", ErrInvalidArgument)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	fi, err := os.Lstat(abs)
	if err != nil {
		return "", err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("refusing symlink path: %s", abs)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}

	if perm := fi.Mode().Perm(); perm != 0o700 {
		if err := os.Chmod(abs, 0o700); err != nil {
			return "", fmt.Errorf("directory has insecure perms (%#o) and chmod failed: %w", perm, err)
		}
	}

	return abs, nil
}
