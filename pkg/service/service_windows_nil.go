package service

import (
	"context"

	"github.com/pkg/errors"
)

// WindowsNil stands in on windows, where the bot runs in the foreground
// rather than under a service manager.
type WindowsNil struct{}

func NewWindows() *WindowsNil {
	return &WindowsNil{}
}

func (s *WindowsNil) Start(_ context.Context, _ string) error {
	return errors.New("unsupported")
}

func (s *WindowsNil) Stop(_ context.Context, _ string) error {
	return errors.New("unsupported")
}

func (s *WindowsNil) Restart(_ context.Context, _ string) error {
	return errors.New("unsupported")
}

func (s *WindowsNil) Status(_ context.Context, _ string) error {
	return errors.New("unsupported")
}

func (s *WindowsNil) DaemonReload(_ context.Context) error {
	return errors.New("unsupported")
}

func (s *WindowsNil) Enable(_ context.Context, _ string) error {
	return errors.New("unsupported")
}
