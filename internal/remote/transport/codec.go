package transport

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Encoding selects how message payloads are serialized inside a Frame.
type Encoding string

const (
	// Textual encodes payloads as JSON. It is the default fallback because
	// every peer, including a degraded stdout-parsing client (§4.11), can
	// produce and consume it without sharing Go types.
	Textual Encoding = "textual"
	// Binary encodes payloads with encoding/gob, trading human-readability
	// for a more compact wire size between two Go peers.
	Binary Encoding = "binary"
)

// Codec marshals and unmarshals message bodies for one Encoding.
type Codec interface {
	Encoding() Encoding
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// NewCodec returns the Codec for enc, defaulting to Textual for unknown
// values so a peer asking for an unsupported encoding degrades instead of
// failing closed.
func NewCodec(enc Encoding) Codec {
	if enc == Binary {
		return gobCodec{}
	}
	return jsonCodec{}
}

type jsonCodec struct{}

func (jsonCodec) Encoding() Encoding                { return Textual }
func (jsonCodec) Marshal(v any) ([]byte, error)     { return json.Marshal(v) }
func (jsonCodec) Unmarshal(d []byte, v any) error   { return json.Unmarshal(d, v) }

type gobCodec struct{}

func (gobCodec) Encoding() Encoding { return Binary }

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("transport: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(d []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(d)).Decode(v); err != nil {
		return fmt.Errorf("transport: gob decode: %w", err)
	}
	return nil
}
