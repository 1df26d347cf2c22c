// Package server implements the remote scan endpoint (C10): a long-lived
// subprocess bound to a loopback TCP port, accepting exactly one
// connection, that runs a local scan pipeline and streams its progress
// and result back over a framed session.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/duperemote/dupenet/internal/remote/transport"
)

// Pipeline runs the local scan (C1-C7) requested by cmd, reporting
// progress through report and returning the final result. It is supplied
// by the caller (internal/driver) so this package stays decoupled from
// the concrete scan wiring.
type Pipeline func(ctx context.Context, cmd transport.CommandMsg, report func(transport.ProgressMsg)) (transport.ResultMsg, error)

// Server accepts one connection on a loopback port and serves one session.
type Server struct {
	port     int
	pipeline Pipeline
}

// New builds a Server bound to port on loopback, running requests through
// pipeline.
func New(port int, pipeline Pipeline) *Server {
	return &Server{port: port, pipeline: pipeline}
}

// Serve binds the listening socket, announces readiness on stderr (the
// client does not read this line; it retries its forwarded dial with
// backoff until the port answers), accepts exactly one connection, and serves it. It returns after that
// single session completes or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("server: listen on port %d: %w", s.port, err)
	}
	defer func() { _ = ln.Close() }()

	log.Printf("dupenet server ready on port %d", s.port)

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		acceptCh <- acceptResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-acceptCh:
		if r.err != nil {
			return fmt.Errorf("server: accept: %w", r.err)
		}
		defer func() { _ = r.conn.Close() }()
		return s.handle(ctx, r.conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) error {
	// Handshake: read the client's declared encoding/compression
	// preference off the wire as raw JSON before any Session exists
	// (the Session itself requires a negotiated codec to construct).
	var hello transport.CommandMsg
	f, err := transport.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("server: read handshake: %w", err)
	}
	if f.Type != transport.Command {
		return s.fail(conn, 1, fmt.Sprintf("expected Command frame, got %s", f.Type))
	}
	if err := json.Unmarshal(f.Payload, &hello); err != nil {
		return s.fail(conn, 1, "malformed handshake payload")
	}

	enc, compress := negotiate(hello.Encoding, hello.Compress)
	sess, err := transport.NewSession(conn, conn, enc, compress)
	if err != nil {
		return s.fail(conn, 1, "session negotiation failed")
	}
	defer func() { _ = sess.Close() }()

	if err := sess.Send(transport.Command, transport.ServerHelloMsg{Encoding: enc, Compress: sess.Compressed()}); err != nil {
		return fmt.Errorf("server: send hello: %w", err)
	}

	lastProgress := time.Time{}
	report := func(p transport.ProgressMsg) {
		// Bound emission frequency to ~10Hz per §4.9/§5.
		if !lastProgress.IsZero() && time.Since(lastProgress) < 100*time.Millisecond {
			return
		}
		lastProgress = time.Now()
		_ = sess.Send(transport.Progress, p)
	}

	result, err := s.pipeline(ctx, hello, report)
	if err != nil {
		return s.failSession(sess, 2, err.Error())
	}
	if err := sess.Send(transport.Result, result); err != nil {
		return fmt.Errorf("server: send result: %w", err)
	}
	return nil
}

func negotiate(wantEnc transport.Encoding, wantCompress bool) (transport.Encoding, bool) {
	enc := wantEnc
	if enc != transport.Binary {
		enc = transport.Textual
	}
	return enc, wantCompress
}

func (s *Server) fail(conn net.Conn, code int, msg string) error {
	_ = transport.WriteFrame(conn, errorFrame(code, msg))
	return fmt.Errorf("server: %s", msg)
}

func (s *Server) failSession(sess *transport.Session, code int, msg string) error {
	_ = sess.Send(transport.Error, transport.ErrorMsg{Code: code, Message: msg})
	return fmt.Errorf("server: %s", msg)
}

func errorFrame(code int, msg string) transport.Frame {
	payload, _ := json.Marshal(transport.ErrorMsg{Code: code, Message: msg})
	return transport.Frame{Type: transport.Error, Payload: payload}
}
