package middleware_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
)

var errDown = fmt.Errorf("failed to get from redis: %w", &net.OpError{
	Op:  "dial",
	Net: "tcp",
	Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
})

// BrokenStore fails every operation like an unreachable Redis.
type BrokenStore struct {
	calls int
}

func (s *BrokenStore) Set(ctx context.Context, contactID string, session *domain.Session) error {
	s.calls++
	return errDown
}

func (s *BrokenStore) Get(ctx context.Context, contactID string) (*domain.Session, error) {
	s.calls++
	return nil, errDown
}

func (s *BrokenStore) Delete(ctx context.Context, contactID string) error {
	s.calls++
	return errDown
}

func (s *BrokenStore) List(ctx context.Context) ([]string, error) {
	s.calls++
	return nil, errDown
}

var _ ports.SessionStore = (*BrokenStore)(nil)
