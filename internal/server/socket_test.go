//go:build !windows

package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spauka/secretsanta/internal/config"
)

func Test_ListenUnix_PermissionsOpenedAfterDelay(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bot.sock")
	s := &Server{cfg: config.Server{
		SocketPath:     socketPath,
		SocketMode:     "0770",
		PostStartDelay: 10 * time.Millisecond,
	}}

	listener, err := s.listenUnix()
	require.NoError(t, err)
	defer func() {
		_ = listener.Close()
	}()

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0660), info.Mode().Perm())

	s.afterStart(context.Background())

	info, err = os.Stat(socketPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0770), info.Mode().Perm())
}

func Test_ListenUnix_RemovesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bot.sock")

	stale, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	// Close without unlinking, as a crashed process would leave it.
	require.NoError(t, stale.Close())
	if _, statErr := os.Stat(socketPath); os.IsNotExist(statErr) {
		// Go removes the socket on Close, recreate the stale file.
		require.NoError(t, os.WriteFile(socketPath, nil, 0600))
		s := &Server{cfg: config.Server{SocketPath: socketPath}}
		_, err = s.listenUnix()
		assert.ErrorContains(t, err, "not a socket")

		return
	}

	s := &Server{cfg: config.Server{SocketPath: socketPath}}
	listener, err := s.listenUnix()
	require.NoError(t, err)
	_ = listener.Close()
}

func Test_ListenUnix_RefusesLiveSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bot.sock")

	live, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer func() {
		_ = live.Close()
	}()
	go func() {
		for {
			conn, acceptErr := live.Accept()
			if acceptErr != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	s := &Server{cfg: config.Server{SocketPath: socketPath}}
	_, err = s.listenUnix()
	assert.ErrorContains(t, err, "already in use")
}

func Test_RunPostStartHook_WhitespaceOnly(t *testing.T) {
	s := &Server{cfg: config.Server{PostStartHook: "   "}}

	assert.NotPanics(t, func() {
		s.runPostStartHook(context.Background())
	})
}

func Test_CleanupSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "bot.sock")
	s := &Server{cfg: config.Server{SocketPath: socketPath}}

	listener, err := s.listenUnix()
	require.NoError(t, err)
	_ = listener.Close()

	require.NoError(t, s.cleanupSocket())
	_, err = os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err))

	// Idempotent.
	require.NoError(t, s.cleanupSocket())
}
