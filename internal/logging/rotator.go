package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// backupTimeFormat is appended to the log file name on rotation.
const backupTimeFormat = "20060102-150405.000"

// FileRotator is an io.Writer that rotates its file once it exceeds
// MaxSize megabytes or a new day starts.
type FileRotator struct {
	config *Config
	mu     sync.Mutex
	file   *os.File
	size   int64
	opened time.Time
	now    func() time.Time
}

// NewFileRotator opens cfg.FilePath for appending, creating its directory.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	r := &FileRotator{
		config: cfg,
		now:    time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	if err := r.openFile(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	r.file = file
	r.size = info.Size()
	r.opened = r.now()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	if r.shouldRotate(int64(len(p))) {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *FileRotator) shouldRotate(writeSize int64) bool {
	if r.size == 0 {
		return false
	}
	if r.config.MaxSize > 0 && r.size+writeSize > r.config.MaxSize*1024*1024 {
		return true
	}
	y1, m1, d1 := r.opened.Date()
	y2, m2, d2 := r.now().Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// rotate renames the current file to a timestamped backup and opens a
// fresh one. Must be called with r.mu held.
func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	backup := r.config.FilePath + "." + r.now().Format(backupTimeFormat)
	if err := os.Rename(r.config.FilePath, backup); err != nil && !os.IsNotExist(err) {
		return err
	}

	if err := r.openFile(); err != nil {
		return err
	}

	r.prune()
	return nil
}

// prune removes the oldest backups beyond MaxBackups.
func (r *FileRotator) prune() {
	if r.config.MaxBackups <= 0 {
		return
	}

	backups, err := r.backups()
	if err != nil || len(backups) <= r.config.MaxBackups {
		return
	}

	for _, path := range backups[:len(backups)-r.config.MaxBackups] {
		os.Remove(path)
	}
}

// backups returns the rotated files, oldest first.
func (r *FileRotator) backups() ([]string, error) {
	matches, err := filepath.Glob(r.config.FilePath + ".*")
	if err != nil {
		return nil, err
	}
	prefix := r.config.FilePath + "."
	matches = slices.DeleteFunc(matches, func(path string) bool {
		_, err := time.Parse(backupTimeFormat, strings.TrimPrefix(path, prefix))
		return err != nil
	})
	// the timestamp format sorts lexically
	slices.Sort(matches)
	return matches, nil
}

// LogFiles returns the current log file followed by its backups, newest first.
func (r *FileRotator) LogFiles() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	backups, err := r.backups()
	if err != nil {
		return nil, err
	}
	slices.Reverse(backups)
	return append([]string{r.config.FilePath}, backups...), nil
}

// Close closes the current file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Sync commits the current file to stable storage.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}
