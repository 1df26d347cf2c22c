// Package transport implements the length-prefixed frame protocol used
// between the tunnel client (C11) and the remote server (C10).
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageType tags the payload carried by a Frame.
type MessageType byte

const (
	Command  MessageType = 1
	Progress MessageType = 2
	Result   MessageType = 3
	Error    MessageType = 4
	Log      MessageType = 5
)

func (t MessageType) String() string {
	switch t {
	case Command:
		return "command"
	case Progress:
		return "progress"
	case Result:
		return "result"
	case Error:
		return "error"
	case Log:
		return "log"
	default:
		return "unknown"
	}
}

// MaxFrameSize bounds a single frame's payload. Exceeding it is treated as
// a protocol violation and the connection is closed.
const MaxFrameSize = 32 << 20 // 32MiB, comfortably above the 16MiB floor

// Frame is one protocol message: a type tag plus an opaque encoded payload.
type Frame struct {
	Type    MessageType
	Payload []byte
}

// WriteFrame writes length-prefixed wire bytes: <u32 length><type byte><payload>.
// length covers the type byte and payload, not itself.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxFrameSize {
		return fmt.Errorf("transport: payload of %d bytes exceeds max frame size %d", len(f.Payload), MaxFrameSize)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f.Payload)+1))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("transport: write frame length: %w", err)
	}
	if _, err := w.Write([]byte{byte(f.Type)}); err != nil {
		return fmt.Errorf("transport: write frame type: %w", err)
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return fmt.Errorf("transport: write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one frame from r, enforcing MaxFrameSize.
func ReadFrame(r io.Reader) (Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return Frame{}, fmt.Errorf("transport: zero-length frame (missing type byte)")
	}
	if n > MaxFrameSize+1 {
		return Frame{}, fmt.Errorf("transport: frame of %d bytes exceeds max frame size %d", n-1, MaxFrameSize)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("transport: read frame body: %w", err)
	}
	return Frame{Type: MessageType(body[0]), Payload: body[1:]}, nil
}
