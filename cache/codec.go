package cache

import "github.com/vmihailenco/msgpack/v5"

// Codec turns cached values into bytes and back.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// MsgpackCodec encodes values with msgpack.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// DefaultCodec is used when a registration does not supply one.
var DefaultCodec Codec = MsgpackCodec{}
