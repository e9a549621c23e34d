// Package adb shells out to the adb binary for the device-side plumbing the
// stream pipeline needs: port forwarding, scrcpy server launch and raw
// screenshots.
package adb

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/fanap-infra/log"
)

const serverDevicePath = "/data/local/tmp/scrcpy-server.jar"

// Server options: forward tunnel, video only. The control and audio sockets
// stay disabled so the device opens a single stream socket.
const serverArgs = "3.1 tunnel_forward=true video=true audio=false control=false max_size=800 max_fps=60"

const serverStartTimeout = 10 * time.Second

// Bridge runs adb commands against one device.
type Bridge struct {
	Serial string
}

func NewBridge(serial string) *Bridge {
	return &Bridge{Serial: serial}
}

func (b *Bridge) command(ctx context.Context, args ...string) *exec.Cmd {
	if b.Serial != "" {
		args = append([]string{"-s", b.Serial}, args...)
	}
	return exec.CommandContext(ctx, "adb", args...)
}

// FreePort asks the kernel for an unused local TCP port.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("adb: free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Forward maps a local TCP port to the device's abstract stream socket.
func (b *Bridge) Forward(ctx context.Context, port int, socketName string) error {
	out, err := b.command(ctx, "forward", fmt.Sprintf("tcp:%d", port), "localabstract:"+socketName).CombinedOutput()
	if err != nil {
		return fmt.Errorf("adb: forward tcp:%d: %v: %s", port, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// RemoveForward tears the mapping down. Failures are logged rather than
// returned: teardown runs on paths that are already failing.
func (b *Bridge) RemoveForward(port int) {
	out, err := b.command(context.Background(), "forward", "--remove", fmt.Sprintf("tcp:%d", port)).CombinedOutput()
	if err != nil {
		log.Debugv("ADB Remove Forward", "port", port, "error", err, "output", strings.TrimSpace(string(out)))
	}
}

// PushServer uploads the scrcpy server jar to the device.
func (b *Bridge) PushServer(ctx context.Context, localPath string) error {
	out, err := b.command(ctx, "push", localPath, serverDevicePath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("adb: push server: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Server is the device-side scrcpy process, kept alive for the lifetime of
// one streaming session.
type Server struct {
	cmd *exec.Cmd
}

// StartServer launches the scrcpy server on the device via app_process and
// waits until it reports readiness on stdout, or fails. The returned Server
// keeps streaming until Stop.
func (b *Bridge) StartServer(ctx context.Context) (*Server, error) {
	cmd := b.command(ctx, "shell",
		"CLASSPATH="+serverDevicePath+" app_process / com.genymobile.scrcpy.Server "+serverArgs)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("adb: server stdout: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("adb: start server: %w", err)
	}

	ready := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(stdout)
		reported := false
		for sc.Scan() {
			line := sc.Text()
			log.Debugv("Scrcpy Server Output", "udid", b.Serial, "line", line)
			if reported {
				continue
			}
			// The server prints "INFO: Device: ..." once it accepted the
			// option string and opened its socket.
			if strings.Contains(line, "Device") {
				reported = true
				ready <- nil
			} else if strings.Contains(line, "ERROR") {
				reported = true
				ready <- fmt.Errorf("adb: scrcpy server: %s", line)
			}
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			reap(cmd)
			return nil, err
		}
	case <-time.After(serverStartTimeout):
		reap(cmd)
		return nil, fmt.Errorf("adb: scrcpy server not ready after %s", serverStartTimeout)
	case <-ctx.Done():
		reap(cmd)
		return nil, ctx.Err()
	}

	log.Infov("Scrcpy Server Started", "udid", b.Serial)
	return &Server{cmd: cmd}, nil
}

// Stop kills the device-side process. Idempotent.
func (s *Server) Stop() {
	if s == nil || s.cmd == nil {
		return
	}
	reap(s.cmd)
	s.cmd = nil
}

// reap kills a started command and collects its exit status, so the process
// table entry is released immediately instead of lingering as a zombie.
func reap(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
}
