//go:build windows

package server

import (
	"context"
	"net"

	"github.com/pkg/errors"
)

func (s *Server) listenUnix() (net.Listener, error) {
	return nil, errors.New("unix sockets are not supported on windows, set listen_addr instead")
}

func (s *Server) afterStart(_ context.Context) {}

func (s *Server) cleanupSocket() error {
	return nil
}
