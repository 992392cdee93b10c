package crypto

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// CompressionLevel is the fixed zstd level spec §4.4 calls for ("a fixed
// level"); chosen for a good speed/ratio tradeoff on typical document
// sizes rather than maximum compression.
const CompressionLevel = zstd.SpeedDefault

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	encoderErr  error

	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

func getEncoder() (*zstd.Encoder, error) {
	encoderOnce.Do(func() {
		encoder, encoderErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(CompressionLevel))
	})
	return encoder, encoderErr
}

func getDecoder() (*zstd.Decoder, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	return decoder, decoderErr
}

// Compress zstd-compresses plaintext at the fixed level (spec §4.4).
func Compress(plaintext []byte) ([]byte, error) {
	enc, err := getEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return enc.EncodeAll(plaintext, nil), nil
}

// Decompress reverses Compress.
func Decompress(compressed []byte) ([]byte, error) {
	dec, err := getDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return dec.DecodeAll(compressed, nil)
}
