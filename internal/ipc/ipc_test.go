package ipc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	// unix socket paths are limited to ~100 bytes, t.TempDir can be longer
	dir, err := os.MkdirTemp("", "sagar")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

func TestSendCommand_ReachesHandler(t *testing.T) {
	path := socketPath(t)
	got := make(chan ControlMessage, 1)

	srv, err := StartServer(path, func(m ControlMessage) { got <- m })
	require.NoError(t, err)
	defer srv.Close()

	require.NoError(t, SendCommand(path, CmdStop))

	select {
	case m := <-got:
		assert.Equal(t, CmdStop, m.Cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestStartServer_ReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := StartServer(path, func(ControlMessage) {})
	require.NoError(t, err)
	require.NoError(t, srv.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSendCommand_NoServer(t *testing.T) {
	assert.Error(t, SendCommand(socketPath(t), CmdStop))
}
