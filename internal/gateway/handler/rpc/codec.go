package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"

	"codelens/internal/util/jsonutil"
)

// jsonCodec carries plain Go structs as JSON. It replaces connect's protojson
// codecs, which only accept proto messages.
type jsonCodec struct{ name string }

func (c jsonCodec) Name() string { return c.name }

func (jsonCodec) Marshal(v any) ([]byte, error) { return jsonutil.MarshalNoEscape(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// CodecOptions installs the JSON codec under both content-type spellings
// connect negotiates.
func CodecOptions() []connect.Option {
	return []connect.Option{
		connect.WithCodec(jsonCodec{name: "json"}),
		connect.WithCodec(jsonCodec{name: "json; charset=utf-8"}),
	}
}

func handlerOptions(extra []connect.HandlerOption) []connect.HandlerOption {
	opts := make([]connect.HandlerOption, 0, 2+len(extra))
	for _, o := range CodecOptions() {
		opts = append(opts, o)
	}
	return append(opts, extra...)
}
