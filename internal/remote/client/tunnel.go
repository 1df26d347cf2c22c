// Package client implements the tunnel supervisor (C11): it launches the
// remote server over SSH, forwards a local port to it, and speaks the
// transport framing protocol to retrieve a scan result.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/duperemote/dupenet/internal/remote/resolver"
	"github.com/duperemote/dupenet/internal/remote/transport"
)

// DefaultPortOffset is the starting point for free local-port probing.
const DefaultPortOffset = 29875

// dialTimeout bounds how long establishing the forward may take overall.
const dialTimeout = 15 * time.Second

// SSHDialer opens the SSH connection used to run the remote server and
// forward its port. Abstracted for testability: tests can supply a dialer
// backed by an in-process SSH server instead of a real sshd.
type SSHDialer func(ctx context.Context, target *resolver.Target) (*ssh.Client, error)

// Tunnel supervises one remote session: it picks a free local port,
// launches the remote server through SSH, forwards the port, and exposes
// a ready-to-use net.Conn to the caller.
type Tunnel struct {
	dial SSHDialer
}

// NewTunnel builds a Tunnel using dial to establish the SSH connection.
func NewTunnel(dial SSHDialer) *Tunnel {
	return &Tunnel{dial: dial}
}

// Open launches the remote server at target and returns a connection to
// it tunneled through the SSH client's channel multiplexer. Rather than
// binding a real local listening socket for -L semantics, it dials the
// remote port directly via (*ssh.Client).Dial — the same underlying
// mechanism OpenSSH's -L forwarding uses per accepted connection, just
// without the intermediate local socket, since this client only ever
// needs a single connection per session.
func (t *Tunnel) Open(ctx context.Context, target *resolver.Target) (net.Conn, func(), error) {
	localPort, err := freePort(DefaultPortOffset)
	if err != nil {
		return nil, nil, fmt.Errorf("client: probing free local port: %w", err)
	}
	remotePort := localPort + 1

	sshClient, err := t.dial(ctx, target)
	if err != nil {
		return nil, nil, fmt.Errorf("client: ssh dial: %w", err)
	}

	session, err := sshClient.NewSession()
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("client: ssh session: %w", err)
	}
	cmd := fmt.Sprintf("dupenet serve --port %d", remotePort)
	if err := session.Start(cmd); err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("client: start remote server: %w", err)
	}

	cleanup := func() {
		_ = session.Signal(ssh.SIGTERM)
		_ = session.Close()
		_ = sshClient.Close()
	}

	conn, err := dialForwardWithBackoff(ctx, sshClient, remotePort)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return conn, cleanup, nil
}

// dialForwardWithBackoff retries the forwarded dial until the remote
// server's listener comes up, bounded by dialTimeout.
func dialForwardWithBackoff(ctx context.Context, sshClient *ssh.Client, remotePort int) (net.Conn, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	addr := fmt.Sprintf("127.0.0.1:%d", remotePort)
	backoff := 50 * time.Millisecond
	for {
		conn, err := sshClient.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		select {
		case <-deadlineCtx.Done():
			return nil, fmt.Errorf("client: tunnel not usable within %s: %w", dialTimeout, err)
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

// freePort probes for a locally-bindable TCP port starting at offset.
func freePort(offset int) (int, error) {
	for port := offset; port < offset+1000; port += 2 {
		ln, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port found starting at %d", offset)
}

// RunScan drives one full remote-scan round trip: open the tunnel,
// handshake, send cmd, stream progress to onProgress, and return the
// final result.
func RunScan(ctx context.Context, tunnel *Tunnel, target *resolver.Target, cmd transport.CommandMsg, onProgress func(transport.ProgressMsg)) (transport.ResultMsg, error) {
	conn, cleanup, err := tunnel.Open(ctx, target)
	if err != nil {
		return transport.ResultMsg{}, err
	}
	defer cleanup()

	if err := transport.WriteFrame(conn, handshakeFrame(cmd)); err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: send handshake: %w", err)
	}

	sess, err := transport.NewSession(conn, conn, cmd.Encoding, cmd.Compress)
	if err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: establish session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	var hello transport.ServerHelloMsg
	if _, err := sess.Recv(&hello); err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: read hello: %w", err)
	}

	for {
		f, err := sess.RecvFrame()
		if err != nil {
			return transport.ResultMsg{}, fmt.Errorf("client: read frame: %w", err)
		}
		switch f.Type {
		case transport.Progress:
			var p transport.ProgressMsg
			if err := sess.Decode(f.Payload, &p); err != nil {
				return transport.ResultMsg{}, err
			}
			if onProgress != nil {
				onProgress(p)
			}
		case transport.Result:
			var r transport.ResultMsg
			if err := sess.Decode(f.Payload, &r); err != nil {
				return transport.ResultMsg{}, err
			}
			return r, nil
		case transport.Error:
			var e transport.ErrorMsg
			if err := sess.Decode(f.Payload, &e); err != nil {
				return transport.ResultMsg{}, err
			}
			return transport.ResultMsg{}, fmt.Errorf("client: remote error %d: %s", e.Code, e.Message)
		default:
			return transport.ResultMsg{}, fmt.Errorf("client: unexpected frame type %s", f.Type)
		}
	}
}

func handshakeFrame(cmd transport.CommandMsg) transport.Frame {
	codec := transport.NewCodec(transport.Textual)
	payload, _ := codec.Marshal(cmd)
	return transport.Frame{Type: transport.Command, Payload: payload}
}
