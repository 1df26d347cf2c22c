package transport

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Frame{Type: Command, Payload: []byte(`{"roots":["/a"]}`)}
	if err := WriteFrame(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{Type: Result}); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != Result || len(got.Payload) != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestFrameExceedsMaxSizeRejected(t *testing.T) {
	var buf bytes.Buffer
	big := make([]byte, MaxFrameSize+1)
	if err := WriteFrame(&buf, Frame{Type: Log, Payload: big}); err == nil {
		t.Error("expected error writing oversized frame")
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	// Hand-craft a length prefix claiming more than MaxFrameSize.
	var buf bytes.Buffer
	lenBuf := []byte{0x7F, 0xFF, 0xFF, 0xFF}
	buf.Write(lenBuf)
	if _, err := ReadFrame(&buf); err == nil {
		t.Error("expected error on oversized declared length")
	}
}

func TestReadFrameZeroLengthIsError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	if _, err := ReadFrame(buf); err == nil {
		t.Error("expected error on zero-length frame")
	}
}

func TestMessageTypeString(t *testing.T) {
	if !strings.Contains(Command.String(), "command") {
		t.Errorf("String() = %q", Command.String())
	}
}
