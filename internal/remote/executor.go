// Package remote runs shell commands on compute nodes and inside their
// guests over SSH.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
	"github.com/buildforever/farmctl/internal/util/retry"
)

// Result carries the outcome of one remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs commands on a node and inside its container guests.
type Executor interface {
	// RunOnHost executes a shell command on the compute node itself.
	RunOnHost(ctx context.Context, command string) (Result, error)

	// RunInGuest executes a shell script inside a running container. The
	// script is shipped base64-encoded so quoting survives the two shell
	// hops. Implementations wait for the guest to report running first, but
	// attempt execution even when that wait expires.
	RunInGuest(ctx context.Context, vmid int, script string) (Result, error)
}

const (
	guestWaitTimeout  = 60 * time.Second
	guestPollInterval = 3 * time.Second

	dialRetries        = 3
	dialInitialBackoff = time.Second
)

// dialer opens an SSH connection; swapped out in tests.
type dialer func(network, addr string, cfg *ssh.ClientConfig) (sshConn, error)

type sshConn interface {
	NewSession() (sshSession, error)
	Close() error
}

type sshSession interface {
	Run(command string) error
	Close() error
	collect(stdout, stderr io.Writer)
}

type realConn struct {
	client *ssh.Client
}

func (c *realConn) NewSession() (sshSession, error) {
	s, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &realSession{Session: s}, nil
}

func (c *realConn) Close() error { return c.client.Close() }

type realSession struct {
	*ssh.Session
}

func (s *realSession) collect(stdout, stderr io.Writer) {
	s.Stdout = stdout
	s.Stderr = stderr
}

func dialSSH(network, addr string, cfg *ssh.ClientConfig) (sshConn, error) {
	client, err := ssh.Dial(network, addr, cfg)
	if err != nil {
		return nil, err
	}
	return &realConn{client: client}, nil
}

// SSHExecutor implements Executor with one fresh SSH connection per call.
// Commands run as the configured user, root for guest execution.
type SSHExecutor struct {
	host     string
	port     int
	user     string
	password string

	dial         dialer
	waitTimeout  time.Duration
	pollInterval time.Duration
	dialAttempts int
	dialBackoff  time.Duration
}

// NewSSHExecutor creates an executor for the node described by the
// connection profile.
func NewSSHExecutor(profile config.ConnectionProfile) *SSHExecutor {
	user := profile.User
	// Strip the realm suffix of API-style user names for the SSH login.
	if i := strings.IndexByte(user, '@'); i >= 0 {
		user = user[:i]
	}
	return &SSHExecutor{
		host:         profile.Host,
		port:         22,
		user:         user,
		password:     profile.Password,
		dial:         dialSSH,
		waitTimeout:  guestWaitTimeout,
		pollInterval: guestPollInterval,
		dialAttempts: dialRetries,
		dialBackoff:  dialInitialBackoff,
	}
}

// RunOnHost executes a shell command on the compute node.
func (e *SSHExecutor) RunOnHost(ctx context.Context, command string) (Result, error) {
	conn, err := e.connect(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	return e.run(conn, command)
}

// RunInGuest executes a script inside a running container. The guest is
// polled for its running state first; on expiry execution is attempted
// anyway, the guest may simply be slow to report.
func (e *SSHExecutor) RunInGuest(ctx context.Context, vmid int, script string) (Result, error) {
	conn, err := e.connect(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	_ = retry.Poll(ctx, e.waitTimeout, e.pollInterval, func() (bool, error) {
		res, err := e.run(conn, fmt.Sprintf("pct status %d", vmid))
		if err != nil {
			// Status probes fail while the container is still settling.
			return false, err
		}
		return strings.Contains(res.Stdout, "running"), nil
	})
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(script))
	command := fmt.Sprintf(`echo "%s" | base64 -d | pct exec %d -- bash -s`, encoded, vmid)
	return e.run(conn, command)
}

func (e *SSHExecutor) connect(ctx context.Context) (sshConn, error) {
	cfg := &ssh.ClientConfig{
		User:            e.user,
		Auth:            []ssh.AuthMethod{ssh.Password(e.password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
		Timeout:         10 * time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < cfg.Timeout {
			cfg.Timeout = remaining
		}
	}

	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	// Only transport failures are retried; auth failures are fatal.
	var conn sshConn
	err := retry.WithExponentialBackoff(ctx, func() error {
		c, err := e.dial("tcp", addr, cfg)
		if err != nil {
			if strings.Contains(err.Error(), "unable to authenticate") ||
				strings.Contains(err.Error(), "handshake failed") {
				return retry.Fatal(fault.Newf(fault.Auth, "ssh authentication to %s failed: %v", addr, err))
			}
			return fault.Newf(fault.Connect, "cannot reach %s over ssh: %v", addr, err)
		}
		conn = c
		return nil
	}, retry.WithMaxRetries(e.dialAttempts), retry.WithInitialDelay(e.dialBackoff))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (e *SSHExecutor) run(conn sshConn, command string) (Result, error) {
	session, err := conn.NewSession()
	if err != nil {
		return Result{}, fault.Newf(fault.Connect, "cannot open ssh session: %v", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.collect(&stdout, &stderr)

	err = session.Run(command)
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
			return res, fault.Exec(
				fmt.Errorf("remote command exited with status %d", res.ExitCode),
				res.Stderr,
			)
		}
		return res, fault.Newf(fault.Connect, "remote command aborted: %v", err)
	}
	return res, nil
}

var _ Executor = (*SSHExecutor)(nil)
