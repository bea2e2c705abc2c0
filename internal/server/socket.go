//go:build !windows

package server

import (
	"context"
	"log"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/gopherclass/go-shellquote"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// The socket is created group-inaccessible and opened up by afterStart once
// the server is ready, so clients never race a half-initialized bot.
const createUmask = 0117

func (s *Server) listenUnix() (net.Listener, error) {
	err := removeStaleSocket(s.cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	oldMask := unix.Umask(createUmask)
	listener, err := net.Listen("unix", s.cfg.SocketPath)
	unix.Umask(oldMask)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to listen on %s", s.cfg.SocketPath)
	}

	log.Println("listening on unix socket", s.cfg.SocketPath)

	return listener, nil
}

// removeStaleSocket clears a leftover socket from an unclean shutdown. A
// socket something still answers on is left alone.
func removeStaleSocket(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.WithMessagef(err, "failed to stat %s", path)
	}
	if info.Mode().Type() != os.ModeSocket {
		return errors.Errorf("%s exists and is not a socket", path)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err == nil {
		_ = conn.Close()

		return errors.Errorf("%s is already in use", path)
	}

	return errors.WithMessagef(os.Remove(path), "failed to remove stale socket %s", path)
}

// afterStart opens up the socket permissions and runs the optional hook once
// the configured delay has passed. The delay mirrors the service unit, which
// waits a moment before the socket is handed to the proxy group.
func (s *Server) afterStart(ctx context.Context) {
	if s.cfg.ListenAddr != "" {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.cfg.PostStartDelay):
	}

	mode, err := s.cfg.Mode()
	if err != nil {
		log.Println(err)

		return
	}

	err = os.Chmod(s.cfg.SocketPath, mode)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to set socket permissions"))

		return
	}
	log.Printf("socket %s opened with mode %#o\n", s.cfg.SocketPath, mode)

	if s.cfg.PostStartHook != "" {
		s.runPostStartHook(ctx)
	}
}

func (s *Server) runPostStartHook(ctx context.Context) {
	words, err := shellquote.Split(s.cfg.PostStartHook)
	if err != nil {
		log.Println(errors.WithMessage(err, "invalid post start hook"))

		return
	}
	// A hook of only whitespace splits to nothing.
	if len(words) == 0 {
		return
	}

	//nolint:gosec
	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Println(errors.WithMessagef(err, "post start hook failed: %s", string(out)))

		return
	}

	log.Println("post start hook finished")
}

func (s *Server) cleanupSocket() error {
	if s.cfg.ListenAddr != "" {
		return nil
	}

	err := os.Remove(s.cfg.SocketPath)
	if err != nil && !os.IsNotExist(err) {
		return errors.WithMessagef(err, "failed to remove socket %s", s.cfg.SocketPath)
	}

	return nil
}
