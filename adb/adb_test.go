package adb

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReapCollectsExitStatus(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())

	reap(cmd)

	require.NotNil(t, cmd.ProcessState, "exit status must be collected, not left to init")
	require.False(t, cmd.ProcessState.Success())
}

func TestServerStopNilSafe(t *testing.T) {
	var s *Server
	s.Stop()

	s = &Server{}
	s.Stop()
}

func TestServerStopIdempotent(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())

	s := &Server{cmd: cmd}
	s.Stop()
	s.Stop()

	require.NotNil(t, cmd.ProcessState)
}

func TestFreePort(t *testing.T) {
	port, err := FreePort()
	require.NoError(t, err)
	require.Greater(t, port, 0)
}
