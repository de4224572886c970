package codec

import (
	"errors"
	"strings"
)

var (
	ErrUnsupportedCodec = errors.New("unsupported codec")
	ErrNotProtoMessage  = errors.New("value must implement proto.Message")
)

// Codec encodes and decodes response and request bodies
type Codec interface {
	// Encode encodes a value to bytes
	Encode(v any) ([]byte, error)

	// Decode decodes bytes to a value
	Decode(data []byte, v any) error

	// Name returns the codec name
	Name() string

	// ContentType returns the media type the codec produces
	ContentType() string
}

var (
	JSON     Codec = &JSONCodec{}
	Protobuf Codec = &ProtobufCodec{}
)

// ByName returns a codec by name
func ByName(name string) (Codec, error) {
	switch name {
	case "json":
		return JSON, nil
	case "protobuf", "proto":
		return Protobuf, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}

// Negotiate picks the codec for an Accept header value. JSON is the
// default when nothing in accept names a supported media type.
func Negotiate(accept string) Codec {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(mediaType)) {
		case "application/json":
			return JSON
		case "application/x-protobuf", "application/protobuf", "application/vnd.google.protobuf":
			return Protobuf
		}
	}
	return JSON
}
