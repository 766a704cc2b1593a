package service

import (
	"context"
	"sync"
)

// AudioHandle is one playing audio item.
type AudioHandle interface {
	Stop(ctx context.Context) error
}

// AudioSlot keeps at most one audio item alive. Starting a new item stops
// the previous one first, whoever owns it.
type AudioSlot struct {
	mu      sync.Mutex
	owner   string
	current AudioHandle
}

func NewAudioSlot() *AudioSlot {
	return &AudioSlot{}
}

// Play stops whatever is playing, then starts a new item for owner.
func (s *AudioSlot) Play(ctx context.Context, owner string, start func(context.Context) (AudioHandle, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopErr := s.stopLocked(ctx)
	handle, err := start(ctx)
	if err != nil {
		return err
	}
	s.owner, s.current = owner, handle
	return stopErr
}

// Stop stops the current item, if any.
func (s *AudioSlot) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

// StopOwner stops the current item only if owner started it.
func (s *AudioSlot) StopOwner(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.owner != owner {
		return nil
	}
	return s.stopLocked(ctx)
}

// Owner reports who holds the slot.
func (s *AudioSlot) Owner() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, s.current != nil
}

func (s *AudioSlot) stopLocked(ctx context.Context) error {
	if s.current == nil {
		return nil
	}
	err := s.current.Stop(ctx)
	s.owner, s.current = "", nil
	return err
}
