// Package codec provides the lossless compression codecs used when the
// batched store compresses a flush batch into a single durable blob. Deflate
// is the default; the codec byte stored alongside each compressed entry lets
// export pick the matching decompressor regardless of current configuration.
package codec

import "fmt"

// Codec IDs are persisted inside durable entries. Never renumber.
const (
	IDDeflate byte = 1
	IDGzip    byte = 2
	IDSnappy  byte = 3
	IDZstd    byte = 4
	IDBrotli  byte = 5
	IDLZ4     byte = 6
)

// Codec is a symmetric lossless stream compressor:
// Decompress(Compress(x)) == x byte-for-byte.
type Codec interface {
	ID() byte
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

var registry = map[byte]Codec{
	IDDeflate: Deflate{},
	IDGzip:    Gzip{},
	IDSnappy:  Snappy{},
	IDZstd:    Zstd{},
	IDBrotli:  Brotli{},
	IDLZ4:     LZ4{},
}

// Default returns the deflate codec.
func Default() Codec { return Deflate{} }

// ByID resolves a persisted codec byte.
func ByID(id byte) (Codec, error) {
	c, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("codec: unknown codec id %d", id)
	}
	return c, nil
}

// ByName resolves a configured codec name.
func ByName(name string) (Codec, error) {
	for _, c := range registry {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("codec: unknown codec %q", name)
}

// Names returns the configurable codec names, for CLI help and config errors.
func Names() []string {
	return []string{"deflate", "gzip", "snappy", "zstd", "brotli", "lz4"}
}
