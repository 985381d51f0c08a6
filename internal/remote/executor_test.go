package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
)

// fakeConn scripts per-command results for an SSH connection.
type fakeConn struct {
	results  map[string]Result
	errs     map[string]error
	commands []string
	closed   bool
}

func (c *fakeConn) NewSession() (sshSession, error) {
	return &fakeSession{conn: c}, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeSession struct {
	conn   *fakeConn
	stdout io.Writer
	stderr io.Writer
}

func (s *fakeSession) collect(stdout, stderr io.Writer) {
	s.stdout = stdout
	s.stderr = stderr
}

func (s *fakeSession) Run(command string) error {
	s.conn.commands = append(s.conn.commands, command)
	if res, ok := s.conn.results[command]; ok {
		fmt.Fprint(s.stdout, res.Stdout)
		fmt.Fprint(s.stderr, res.Stderr)
	}
	return s.conn.errs[command]
}

func (s *fakeSession) Close() error { return nil }

func newFakeExecutor(conn *fakeConn) *SSHExecutor {
	e := NewSSHExecutor(config.ConnectionProfile{
		Host:     "pve.example.com",
		User:     "root@pam",
		Password: "secret",
	})
	e.dial = func(network, addr string, cfg *ssh.ClientConfig) (sshConn, error) {
		return conn, nil
	}
	e.waitTimeout = 20 * time.Millisecond
	e.pollInterval = 5 * time.Millisecond
	e.dialAttempts = 1
	e.dialBackoff = time.Millisecond
	return e
}

func TestNewSSHExecutor_StripsRealmFromUser(t *testing.T) {
	t.Parallel()

	e := NewSSHExecutor(config.ConnectionProfile{Host: "h", User: "root@pam", Password: "p"})
	assert.Equal(t, "root", e.user)
	assert.Equal(t, 22, e.port)
}

func TestRunOnHost(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{
		results: map[string]Result{
			"hostname": {Stdout: "pve1\n"},
		},
	}
	res, err := newFakeExecutor(conn).RunOnHost(context.Background(), "hostname")
	require.NoError(t, err)
	assert.Equal(t, "pve1\n", res.Stdout)
	assert.True(t, conn.closed, "connection must not be reused across calls")
}

func TestRunOnHost_ExitErrorIsRemoteExecFault(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{
		results: map[string]Result{
			"false": {Stderr: "boom"},
		},
		errs: map[string]error{
			"false": &ssh.ExitError{Waitmsg: ssh.Waitmsg{}},
		},
	}
	res, err := newFakeExecutor(conn).RunOnHost(context.Background(), "false")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.RemoteExec))
	assert.Equal(t, "boom", res.Stderr)

	f := fault.As(err)
	require.NotNil(t, f)
	assert.Equal(t, "boom", f.Stderr)
}

func TestRunOnHost_DialFailureIsConnectFault(t *testing.T) {
	t.Parallel()

	e := newFakeExecutor(nil)
	e.dial = func(network, addr string, cfg *ssh.ClientConfig) (sshConn, error) {
		return nil, errors.New("connection refused")
	}
	_, err := e.RunOnHost(context.Background(), "hostname")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Connect))
}

func TestRunOnHost_AuthFailureIsAuthFault(t *testing.T) {
	t.Parallel()

	e := newFakeExecutor(nil)
	e.dial = func(network, addr string, cfg *ssh.ClientConfig) (sshConn, error) {
		return nil, errors.New("ssh: handshake failed: ssh: unable to authenticate")
	}
	_, err := e.RunOnHost(context.Background(), "hostname")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Auth))
}

func TestRunOnHost_RetriesTransientDialFailure(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{
		results: map[string]Result{
			"hostname": {Stdout: "pve1\n"},
		},
	}
	attempts := 0
	e := newFakeExecutor(nil)
	e.dialAttempts = 2
	e.dial = func(network, addr string, cfg *ssh.ClientConfig) (sshConn, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	res, err := e.RunOnHost(context.Background(), "hostname")
	require.NoError(t, err)
	assert.Equal(t, "pve1\n", res.Stdout)
	assert.Equal(t, 2, attempts)
}

func TestRunOnHost_AuthFailureNotRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	e := newFakeExecutor(nil)
	e.dialAttempts = 3
	e.dial = func(network, addr string, cfg *ssh.ClientConfig) (sshConn, error) {
		attempts++
		return nil, errors.New("ssh: handshake failed: ssh: unable to authenticate")
	}

	_, err := e.RunOnHost(context.Background(), "hostname")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Auth))
	assert.Equal(t, 1, attempts)
}

func TestRunInGuest_WaitsForRunningGuest(t *testing.T) {
	t.Parallel()

	script := "echo hello"
	encoded := base64.StdEncoding.EncodeToString([]byte(script))
	execCmd := fmt.Sprintf(`echo "%s" | base64 -d | pct exec 102 -- bash -s`, encoded)

	conn := &fakeConn{
		results: map[string]Result{
			"pct status 102": {Stdout: "status: running\n"},
			execCmd:          {Stdout: "hello\n"},
		},
	}
	res, err := newFakeExecutor(conn).RunInGuest(context.Background(), 102, script)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	require.GreaterOrEqual(t, len(conn.commands), 2)
	assert.Equal(t, "pct status 102", conn.commands[0])
	assert.Equal(t, execCmd, conn.commands[len(conn.commands)-1])
}

func TestRunInGuest_AttemptsAfterWaitExpires(t *testing.T) {
	t.Parallel()

	script := "echo hello"
	encoded := base64.StdEncoding.EncodeToString([]byte(script))
	execCmd := fmt.Sprintf(`echo "%s" | base64 -d | pct exec 102 -- bash -s`, encoded)

	// The guest never reports running and status probes keep failing, the
	// script must still be attempted once the wait gives up.
	conn := &fakeConn{
		errs: map[string]error{
			"pct status 102": &ssh.ExitError{Waitmsg: ssh.Waitmsg{}},
		},
		results: map[string]Result{
			execCmd: {Stdout: "hello\n"},
		},
	}
	res, err := newFakeExecutor(conn).RunInGuest(context.Background(), 102, script)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestRunInGuest_EncodesScriptForTransport(t *testing.T) {
	t.Parallel()

	script := `useradd -m 'builder' && echo "done"`
	conn := &fakeConn{
		results: map[string]Result{
			"pct status 102": {Stdout: "status: running\n"},
		},
	}
	_, err := newFakeExecutor(conn).RunInGuest(context.Background(), 102, script)
	require.NoError(t, err)

	last := conn.commands[len(conn.commands)-1]
	assert.NotContains(t, last, "useradd", "raw script must not appear in the command line")
	assert.Contains(t, last, base64.StdEncoding.EncodeToString([]byte(script)))
	assert.True(t, strings.HasSuffix(last, "pct exec 102 -- bash -s"))
}
