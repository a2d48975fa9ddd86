// Package lock provides a file-based lock used to serialize account syncs:
// only one push may be in flight per host, even across processes.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileLock is a simple cross-process lock backed by exclusive file creation.
type FileLock struct {
	logger *slog.Logger
}

func NewFileLock(logger *slog.Logger) *FileLock {
	return &FileLock{logger: logger}
}

// TryLock attempts to acquire the lock for key, retrying until timeout. It
// returns false without error when the timeout elapses while another holder
// keeps the lock. A lock file older than twice the timeout is treated as
// stale and removed.
func (fl *FileLock) TryLock(ctx context.Context, key string, timeout time.Duration) (bool, error) {
	lockFile := fl.lockFilePath(key)

	if err := os.MkdirAll(filepath.Dir(lockFile), 0o750); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		// #nosec G304 - lockFile comes from lockFilePath, not user input
		file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			if os.IsExist(err) {
				if fl.isStale(lockFile, timeout*2) {
					fl.logger.Warn("removing stale lock file", slog.String("file", lockFile))
					if err := os.Remove(lockFile); err != nil {
						fl.logger.Error("failed to remove stale lock file", slog.String("file", lockFile), slog.Any("error", err))
					}
					continue
				}
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(100 * time.Millisecond):
					continue
				}
			}
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}

		_, werr := fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid())
		cerr := file.Close()
		if werr != nil || cerr != nil {
			return false, fmt.Errorf("failed to write lock file: %w", errorsFirst(werr, cerr))
		}

		fl.logger.Debug("acquired lock", slog.String("key", key))
		return true, nil
	}

	return false, nil
}

// Unlock releases the lock for key. Releasing an unheld lock is a no-op.
func (fl *FileLock) Unlock(ctx context.Context, key string) error {
	lockFile := fl.lockFilePath(key)
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	fl.logger.Debug("released lock", slog.String("key", key))
	return nil
}

func (fl *FileLock) lockFilePath(key string) string {
	lockDir := filepath.Join(os.TempDir(), "mediadex-locks")
	return filepath.Clean(filepath.Join(lockDir, key+".lock"))
}

func (fl *FileLock) isStale(lockFile string, staleAfter time.Duration) bool {
	info, err := os.Stat(lockFile)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > staleAfter
}

func errorsFirst(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
