// Package serialization encodes stored artifacts: a codec (JSON or
// MessagePack) followed by optional compression (gzip or zstd).
package serialization

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownCodec       = errors.New("unknown codec")
	ErrUnknownCompression = errors.New("unknown compression")
)

// Codec converts values to and from bytes.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
}

// CompressionType represents compression algorithms
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

// ParseCompression maps a configuration value to a CompressionType. The
// empty string means none.
func ParseCompression(s string) (CompressionType, error) {
	switch c := CompressionType(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, CompressionZstd:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return NewJSONCodec(), nil
	case "msgpack":
		return NewMsgPackCodec(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// Config holds serialization settings
type Config struct {
	Codec       Codec
	Compression CompressionType
}

// Serializer runs the encode and compress pipeline and its inverse.
type Serializer struct {
	config Config
}

// NewSerializer creates a serializer. A nil codec means JSON and an empty
// compression means none.
func NewSerializer(config Config) *Serializer {
	if config.Codec == nil {
		config.Codec = NewJSONCodec()
	}
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	return &Serializer{config: config}
}

// FromNames builds a serializer from configuration strings.
func FromNames(codec, compression string) (*Serializer, error) {
	c, err := CodecByName(codec)
	if err != nil {
		return nil, err
	}
	comp, err := ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	return NewSerializer(Config{Codec: c, Compression: comp}), nil
}

// Format identifies the pipeline, e.g. "msgpack+zstd". Stores record it
// next to each payload.
func (s *Serializer) Format() string {
	return s.config.Codec.Name() + "+" + string(s.config.Compression)
}

// Serialize encodes and compresses v.
func (s *Serializer) Serialize(v any) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("codec encoding failed: %w", err)
	}

	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return data, nil
}

// Deserialize decompresses and decodes data into v.
func (s *Serializer) Deserialize(data []byte, v any) error {
	data, err := s.decompress(data)
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}

	if err := s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("codec decoding failed: %w", err)
	}
	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, s.config.Compression)
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, s.config.Compression)
}

// JSONCodec implements JSON serialization
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error)    { return json.Marshal(v) }
func (c *JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }
func (c *JSONCodec) Name() string                    { return "json" }

// MsgPackCodec implements MessagePack serialization
type MsgPackCodec struct{}

func (c *MsgPackCodec) Encode(v any) ([]byte, error)    { return msgpack.Marshal(v) }
func (c *MsgPackCodec) Decode(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (c *MsgPackCodec) Name() string                    { return "msgpack" }

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() Codec { return &JSONCodec{} }

// NewMsgPackCodec creates a new MessagePack codec
func NewMsgPackCodec() Codec { return &MsgPackCodec{} }

// DefaultSerializer is MessagePack with zstd, the compact form used by the
// database stores.
func DefaultSerializer() *Serializer {
	return NewSerializer(Config{
		Codec:       NewMsgPackCodec(),
		Compression: CompressionZstd,
	})
}
