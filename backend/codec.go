package backend

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes the wire envelopes exchanged with a backend.
type Codec interface {
	Name() string
	ContentType() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

var (
	// JSON is the default wire codec.
	JSON Codec = jsonCodec{}

	// Msgpack encodes envelopes as MessagePack. Struct fields use their
	// json tags, so documents need no msgpack tags of their own.
	Msgpack Codec = msgpackCodec{}
)

// CodecByName returns the codec registered under name ("json" or "msgpack").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("backend: unknown codec %q", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string        { return "msgpack" }
func (msgpackCodec) ContentType() string { return "application/msgpack" }

func (msgpackCodec) Encode(w io.Writer, v any) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(v)
}

func (msgpackCodec) Decode(r io.Reader, v any) error {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
