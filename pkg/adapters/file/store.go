// Package file stores sessions as one file per contact on the local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/persistence/codec"
	"github.com/aretw0/funil/pkg/ports"
)

const ext = ".session"

var _ ports.SessionStore = (*Store)(nil)

// Store implements ports.SessionStore on a directory. Writes are atomic:
// a crash never leaves a half-written session behind.
type Store struct {
	dir   string
	codec codec.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithCodec sets the session codec. Defaults to codec.JSON.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// New creates a Store rooted at dir. The directory is created on first write.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, codec: codec.JSON{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(contactID string) (string, error) {
	if contactID == "" || strings.ContainsAny(contactID, `/\`) || contactID == "." || contactID == ".." {
		return "", fmt.Errorf("invalid contact id %q", contactID)
	}
	return filepath.Join(s.dir, contactID+ext), nil
}

// Set writes to a temporary file in the same directory, syncs it and renames
// it over the previous session.
func (s *Store) Set(_ context.Context, contactID string, session *domain.Session) error {
	dest, err := s.path(contactID)
	if err != nil {
		return err
	}
	data, err := s.codec.Marshal(session)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "tmp-"+contactID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace session: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename session file: %w", err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, contactID string) (*domain.Session, error) {
	p, err := s.path(contactID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return s.codec.Unmarshal(data)
}

func (s *Store) Delete(_ context.Context, contactID string) error {
	p, err := s.path(contactID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	return ids, nil
}
