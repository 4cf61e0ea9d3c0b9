package restwire

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes request bodies and deserializes structured responses.
type Codec interface {
	// ContentType is the media type the codec produces and accepts.
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default codec.
type JSONCodec struct{}

func (JSONCodec) ContentType() string                { return "application/json" }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackCodec encodes with MessagePack. Struct fields use `msgpack` tags,
// falling back to `json` tags.
type MsgpackCodec struct{}

func (MsgpackCodec) ContentType() string { return "application/msgpack" }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// codecSet holds the codecs of a definition; the first is the default.
type codecSet []Codec

// forContentType picks the codec whose media type matches the response's
// Content-Type, falling back to the default codec.
func (cs codecSet) forContentType(header string) Codec {
	if mt, _, err := mime.ParseMediaType(header); err == nil {
		for _, c := range cs {
			if c.ContentType() == mt {
				return c
			}
		}
		// application/x-msgpack and friends
		for _, c := range cs {
			if _, sub, ok := strings.Cut(c.ContentType(), "/"); ok && strings.HasSuffix(mt, "/x-"+sub) {
				return c
			}
		}
	}
	return cs[0]
}
