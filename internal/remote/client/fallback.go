package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/duperemote/dupenet/internal/remote/resolver"
	"github.com/duperemote/dupenet/internal/remote/transport"
)

// RunFallback executes a one-shot remote command whose stdout is a stream
// of newline-delimited JSON records in the same schema as a frame
// payload, with no length-prefixed framing. It is the degraded path used
// when the tunnel cannot be established or the remote host lacks the
// server binary: Progress semantics are best-effort (stdout interleaving
// with stderr logging is possible) and only the final Result record is
// trusted.
func RunFallback(ctx context.Context, dial SSHDialer, target *resolver.Target, cmd transport.CommandMsg, onProgress func(transport.ProgressMsg)) (transport.ResultMsg, error) {
	sshClient, err := dial(ctx, target)
	if err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: fallback ssh dial: %w", err)
	}
	defer func() { _ = sshClient.Close() }()

	session, err := sshClient.NewSession()
	if err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: fallback ssh session: %w", err)
	}
	defer func() { _ = session.Close() }()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: fallback stdout pipe: %w", err)
	}

	remoteCmd := fmt.Sprintf("dupenet --scan-stream --algorithm %s", cmd.Algorithm)
	if err := session.Start(remoteCmd); err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: fallback start: %w", err)
	}

	result, err := decodeFallbackStream(stdout, onProgress)
	if err != nil {
		_ = session.Wait()
		return transport.ResultMsg{}, err
	}
	if err := session.Wait(); err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: fallback remote command: %w", err)
	}
	return result, nil
}

// fallbackRecord mirrors a frame payload's {type, ...} shape, but as a
// single flat record per line instead of length-prefixed binary frames.
type fallbackRecord struct {
	Type     string                  `json:"type"`
	Progress *transport.ProgressMsg  `json:"progress,omitempty"`
	Result   *transport.ResultMsg    `json:"result,omitempty"`
	Error    *transport.ErrorMsg     `json:"error,omitempty"`
}

func decodeFallbackStream(r io.Reader, onProgress func(transport.ProgressMsg)) (transport.ResultMsg, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec fallbackRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// Stdout interleaving (a stray log line, a partial write) is
			// expected in this degraded mode; skip lines that don't parse.
			continue
		}
		switch rec.Type {
		case "progress":
			if rec.Progress != nil && onProgress != nil {
				onProgress(*rec.Progress)
			}
		case "result":
			if rec.Result != nil {
				return *rec.Result, nil
			}
		case "error":
			if rec.Error != nil {
				return transport.ResultMsg{}, fmt.Errorf("client: fallback remote error %d: %s", rec.Error.Code, rec.Error.Message)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return transport.ResultMsg{}, fmt.Errorf("client: fallback stream read: %w", err)
	}
	return transport.ResultMsg{}, fmt.Errorf("client: fallback stream ended without a result record")
}
