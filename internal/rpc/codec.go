package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding.Codec so grpc-go's existing HTTP/2 framing,
// client-streaming and server-streaming machinery can carry plain Go
// structs instead of protoc-generated messages. No protoc toolchain runs
// in this environment; see DESIGN.md for the substitution rationale this
// stands in for generated protobuf marshaling.
type jsonCodec struct{}

const codecName = "json"

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
