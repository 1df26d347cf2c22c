package transport

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Session wraps a connection with a negotiated Codec and optional
// stream-level zstd compression. Compression wraps the whole stream, not
// individual frames, per §4.9.
type Session struct {
	codec    Codec
	compress bool

	rawR io.Reader
	rawW io.Writer

	zr *zstd.Decoder
	zw *zstd.Encoder
}

// NewSession builds a Session over conn's reader/writer halves.
// compress enables zstd stream wrapping; if encoder/decoder construction
// fails (e.g. unsupported options), the session falls back to
// uncompressed transport rather than erroring out.
func NewSession(r io.Reader, w io.Writer, enc Encoding, compress bool) (*Session, error) {
	s := &Session{codec: NewCodec(enc), rawR: r, rawW: w}
	if !compress {
		return s, nil
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return s, nil //nolint:nilerr // degrade to uncompressed, not fatal
	}
	zr, err := zstd.NewReader(r)
	if err != nil {
		_ = zw.Close()
		return s, nil //nolint:nilerr
	}
	s.zw, s.zr, s.compress = zw, zr, true
	return s, nil
}

func (s *Session) reader() io.Reader {
	if s.compress {
		return s.zr
	}
	return s.rawR
}

func (s *Session) writer() io.Writer {
	if s.compress {
		return s.zw
	}
	return s.rawW
}

// Encoding reports the negotiated payload encoding.
func (s *Session) Encoding() Encoding { return s.codec.Encoding() }

// Compressed reports whether the stream is zstd-wrapped.
func (s *Session) Compressed() bool { return s.compress }

// Send marshals v with the session's codec and writes it as a Frame of
// type t.
func (s *Session) Send(t MessageType, v any) error {
	payload, err := s.codec.Marshal(v)
	if err != nil {
		return err
	}
	if err := WriteFrame(s.writer(), Frame{Type: t, Payload: payload}); err != nil {
		return err
	}
	if zw, ok := s.writer().(*zstd.Encoder); ok {
		return zw.Flush()
	}
	return nil
}

// Recv reads the next Frame and unmarshals its payload into v.
func (s *Session) Recv(v any) (MessageType, error) {
	f, err := s.RecvFrame()
	if err != nil {
		return 0, err
	}
	if v != nil && len(f.Payload) > 0 {
		if err := s.codec.Unmarshal(f.Payload, v); err != nil {
			return f.Type, fmt.Errorf("transport: decode %s frame: %w", f.Type, err)
		}
	}
	return f.Type, nil
}

// RecvFrame reads the next raw Frame without decoding its payload, letting
// callers branch on Type before choosing a destination value for Decode.
func (s *Session) RecvFrame() (Frame, error) {
	return ReadFrame(s.reader())
}

// Decode unmarshals a previously-read Frame's payload into v using the
// session's negotiated codec.
func (s *Session) Decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return s.codec.Unmarshal(payload, v)
}

// Close releases the compression decoder, if any. Callers remain
// responsible for closing the underlying connection.
func (s *Session) Close() error {
	if s.zr != nil {
		s.zr.Close()
	}
	if s.zw != nil {
		return s.zw.Close()
	}
	return nil
}
