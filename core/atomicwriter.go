package core

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLock is a lock file held while a project file is rewritten
type FileLock struct {
	file   *os.File
	path   string
	locked bool
	mu     sync.Mutex
}

// AtomicWriteConfig controls how migrated files are written back
type AtomicWriteConfig struct {
	UseFsync       bool          // Force fsync before the rename
	LockTimeout    time.Duration // Max time to wait for a file lock
	TempSuffix     string        // Suffix for temporary files
	BackupOriginal bool          // Keep a timestamped copy of the original
}

// DefaultAtomicConfig returns the write settings used when none are configured
func DefaultAtomicConfig() AtomicWriteConfig {
	return AtomicWriteConfig{
		UseFsync:       false,
		LockTimeout:    5 * time.Second,
		TempSuffix:     ".quarkmig.tmp",
		BackupOriginal: false,
	}
}

// AtomicWriter replaces files through a temporary file and a rename, so a
// crash never leaves a half written source behind
type AtomicWriter struct {
	config AtomicWriteConfig
	locks  map[string]*FileLock
	mu     sync.RWMutex
	now    func() time.Time
}

// NewAtomicWriter creates a new atomic writer
func NewAtomicWriter(config AtomicWriteConfig) *AtomicWriter {
	if config.TempSuffix == "" {
		config.TempSuffix = DefaultAtomicConfig().TempSuffix
	}
	return &AtomicWriter{
		config: config,
		locks:  make(map[string]*FileLock),
		now:    time.Now,
	}
}

// WriteFile atomically replaces path with content. It returns the backup
// path when a backup was made.
func (aw *AtomicWriter) WriteFile(path, content string) (string, error) {
	if err := aw.acquireLock(path); err != nil {
		return "", fmt.Errorf("failed to acquire lock for %s: %w", path, err)
	}
	defer aw.releaseLock(path)

	originalInfo, statErr := os.Stat(path)
	var fileMode os.FileMode = 0o644
	if statErr == nil {
		fileMode = originalInfo.Mode().Perm()
	}

	var backupPath string
	if aw.config.BackupOriginal && statErr == nil {
		var err error
		if backupPath, err = aw.createBackup(path, fileMode); err != nil {
			return "", fmt.Errorf("failed to create backup: %w", err)
		}
	}

	tempPath := path + aw.config.TempSuffix
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tempFile.WriteString(content); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to write content: %w", err)
	}

	if aw.config.UseFsync {
		if err := tempFile.Sync(); err != nil {
			tempFile.Close()
			os.Remove(tempPath)
			return "", fmt.Errorf("failed to sync: %w", err)
		}
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to atomic rename: %w", err)
	}

	return backupPath, nil
}

// acquireLock gets an exclusive lock file next to path
func (aw *AtomicWriter) acquireLock(path string) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if _, exists := aw.locks[path]; exists {
		return nil
	}

	lockPath := path + ".lock"

	deadline := time.Now().Add(aw.config.LockTimeout)
	for {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			aw.locks[path] = &FileLock{
				file:   lockFile,
				path:   lockPath,
				locked: true,
			}
			// PID lets another run detect a stale lock
			fmt.Fprintf(lockFile, "%d\n", os.Getpid())
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		if aw.isLockStale(lockPath) {
			os.Remove(lockPath)
			continue
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("timeout waiting for lock on %s", path)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// releaseLock releases the lock on path
func (aw *AtomicWriter) releaseLock(path string) {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	aw.release(path)
}

func (aw *AtomicWriter) release(path string) {
	lock, exists := aw.locks[path]
	if !exists {
		return
	}

	lock.mu.Lock()
	defer lock.mu.Unlock()

	if lock.locked {
		lock.file.Close()
		os.Remove(lock.path)
		lock.locked = false
	}
	delete(aw.locks, path)
}

// isLockStale checks whether a lock file belongs to a dead process
func (aw *AtomicWriter) isLockStale(lockPath string) bool {
	content, err := os.ReadFile(lockPath)
	if err != nil {
		return true
	}

	var pid int
	if _, err := fmt.Sscanf(string(content), "%d", &pid); err != nil {
		return true
	}

	return !isProcessAlive(pid)
}

// createBackup copies the original next to it with a timestamp suffix
func (aw *AtomicWriter) createBackup(originalPath string, mode os.FileMode) (string, error) {
	content, err := os.ReadFile(originalPath)
	if err != nil {
		return "", err
	}
	backupPath := fmt.Sprintf("%s.bak.%s", originalPath, aw.now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, content, mode); err != nil {
		return "", err
	}
	return backupPath, nil
}

// Cleanup removes all locks still held
func (aw *AtomicWriter) Cleanup() {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	for path := range aw.locks {
		aw.release(path)
	}
}
