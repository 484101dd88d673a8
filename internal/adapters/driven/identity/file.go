package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/logger"
)

// Ensure FileStore implements the interfaces.
var (
	_ driven.IdentityFeed       = (*FileStore)(nil)
	_ driven.AccountNumberStore = (*FileStore)(nil)
)

// FileStore keeps the account number in a file and publishes changes made
// through it or, while Watch runs, by other processes.
type FileStore struct {
	*Notifier
	path string
}

// NewFileStore creates a store backed by path and loads its current value.
func NewFileStore(path string) (*FileStore, error) {
	accountNumber, err := readAccountFile(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		Notifier: NewNotifier(accountNumber),
		path:     path,
	}, nil
}

// Path returns the account file path.
func (s *FileStore) Path() string {
	return s.path
}

// SetAccountNumber writes the account number and notifies subscribers.
// An empty account number removes the file.
func (s *FileStore) SetAccountNumber(accountNumber string) error {
	if accountNumber == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing account file: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
			return fmt.Errorf("creating account directory: %w", err)
		}
		if err := os.WriteFile(s.path, []byte(accountNumber+"\n"), 0600); err != nil {
			return fmt.Errorf("writing account file: %w", err)
		}
	}

	s.Publish(accountNumber)
	return nil
}

// Watch republishes the file contents whenever the file changes, until ctx
// is done.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating account directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) || event.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("identity: %s changed (%s)", s.path, event.Op)
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("identity: watcher error: %v", err)
		}
	}
}

func (s *FileStore) reload() {
	accountNumber, err := readAccountFile(s.path)
	if err != nil {
		log.Printf("identity: failed to read account file: %v", err)
		return
	}
	s.Publish(accountNumber)
}

func readAccountFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading account file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
