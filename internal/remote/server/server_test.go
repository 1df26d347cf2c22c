package server

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/duperemote/dupenet/internal/remote/transport"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func TestServerServesOneSessionAndExits(t *testing.T) {
	port := freePort(t)
	pipeline := func(_ context.Context, cmd transport.CommandMsg, report func(transport.ProgressMsg)) (transport.ResultMsg, error) {
		report(transport.ProgressMsg{Phase: "walking", ScannedCount: 1})
		return transport.ResultMsg{Stats: transport.ResultStats{FilesScanned: 5}}, nil
	}
	srv := New(port, pipeline)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := transport.WriteFrame(conn, commandFrame(t)); err != nil {
		t.Fatal(err)
	}

	sess, err := transport.NewSession(conn, conn, transport.Textual, false)
	if err != nil {
		t.Fatal(err)
	}

	var hello transport.ServerHelloMsg
	typ, err := sess.Recv(&hello)
	if err != nil {
		t.Fatal(err)
	}
	if typ != transport.Command {
		t.Fatalf("expected hello frame, got %s", typ)
	}

	var progress transport.ProgressMsg
	typ, err = sess.Recv(&progress)
	if err != nil {
		t.Fatal(err)
	}
	if typ != transport.Progress || progress.Phase != "walking" {
		t.Fatalf("unexpected frame: %s %+v", typ, progress)
	}

	var result transport.ResultMsg
	typ, err = sess.Recv(&result)
	if err != nil {
		t.Fatal(err)
	}
	if typ != transport.Result || result.Stats.FilesScanned != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
}

func commandFrame(t *testing.T) transport.Frame {
	t.Helper()
	codec := transport.NewCodec(transport.Textual)
	payload, err := codec.Marshal(transport.CommandMsg{Roots: []string{"/data"}, Encoding: transport.Textual})
	if err != nil {
		t.Fatal(err)
	}
	return transport.Frame{Type: transport.Command, Payload: payload}
}
