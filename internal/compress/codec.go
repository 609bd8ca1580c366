package compress

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// storeMagic prefixes a raw (uncompressed) payload so decompress can
// recognize and strip it.
const storeMagic = 0x00

var brotliStreamMagic = []byte("BRT\x01")

func brotliLevel(l Level) int {
	switch l {
	case LevelFast:
		return 2
	case LevelBest:
		return 11
	default:
		return 6
	}
}

func zstdLevel(l Level) zstd.EncoderLevel {
	switch l {
	case LevelFast:
		return zstd.SpeedFastest
	case LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func zlibLevel(l Level) int {
	switch l {
	case LevelFast:
		return zlib.BestSpeed
	case LevelBest:
		return zlib.BestCompression
	default:
		return zlib.DefaultCompression
	}
}

func compressZlib(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlibLevel(level))
	if err != nil {
		return nil, fmt.Errorf("compress: zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compress: zlib reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compress: zlib read: %w", err)
	}
	return out, nil
}

func compressZstd(data []byte, level Level) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("compress: zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("compress: zstd decode: %w", err)
	}
	return out, nil
}

func compressBrotli(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(brotliStreamMagic)
	w := brotli.NewWriterLevel(&buf, brotliLevel(level))
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressBrotli(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, brotliStreamMagic) {
		return nil, fmt.Errorf("compress: missing brotli stream magic")
	}
	r := brotli.NewReader(bytes.NewReader(data[len(brotliStreamMagic):]))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compress: brotli read: %w", err)
	}
	return out, nil
}

// detectAlgorithm sniffs a compressed payload's magic bytes. It is only
// ever applied to bytes produced by Compress, so ambiguity is limited to
// the documented false-positive cases noted on Decompress.
func detectAlgorithm(data []byte) Algorithm {
	switch {
	case len(data) == 0:
		return AlgorithmStore
	case data[0] == storeMagic:
		return AlgorithmStore
	case len(data) >= 2 && data[0] == 0x78 && (data[1] == 0x01 || data[1] == 0x9C || data[1] == 0xDA || data[1] == 0x5E):
		return AlgorithmZlib
	case len(data) >= 4 && data[0] == 0x28 && data[1] == 0xB5 && data[2] == 0x2F && data[3] == 0xFD:
		return AlgorithmZstd
	case bytes.HasPrefix(data, brotliStreamMagic):
		return AlgorithmBrotli
	default:
		return AlgorithmStore
	}
}

// Compress applies strategy to data. If the chosen algorithm would
// expand the payload (common for content that is already internally
// compressed, such as embedded JPEGs inside a PSD), it falls back to
// Store mode rather than pay for compression that loses.
func Compress(data []byte, strategy Strategy) ([]byte, error) {
	if strategy.Algorithm == AlgorithmStore {
		return store(data), nil
	}

	var (
		compressed []byte
		err        error
	)
	switch strategy.Algorithm {
	case AlgorithmZlib:
		compressed, err = compressZlib(data, strategy.Level)
	case AlgorithmZstd:
		compressed, err = compressZstd(data, strategy.Level)
	case AlgorithmBrotli:
		compressed, err = compressBrotli(data, strategy.Level)
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %v", strategy.Algorithm)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) >= len(data) {
		return store(data), nil
	}
	return compressed, nil
}

func store(data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	out = append(out, storeMagic)
	out = append(out, data...)
	return out
}

// Decompress auto-detects the algorithm from magic bytes and inverts
// Compress. A decode failure after detection falls back to returning the
// bytes verbatim: zlib's two-byte header and zstd's four-byte magic can
// both false-positive-match uncompressed data that happens to start with
// the same bytes.
func Decompress(data []byte) ([]byte, error) {
	algo := detectAlgorithm(data)
	switch algo {
	case AlgorithmStore:
		if len(data) > 0 && data[0] == storeMagic {
			return data[1:], nil
		}
		return data, nil
	case AlgorithmZlib:
		out, err := decompressZlib(data)
		if err != nil {
			return data, nil
		}
		return out, nil
	case AlgorithmZstd:
		out, err := decompressZstd(data)
		if err != nil {
			return data, nil
		}
		return out, nil
	case AlgorithmBrotli:
		out, err := decompressBrotli(data)
		if err != nil {
			return data, nil
		}
		return out, nil
	default:
		return data, nil
	}
}

// CompressForType is the high-level entry point: classify, select a
// strategy (size-aware), and compress.
func CompressForType(data []byte, t ObjectType) ([]byte, error) {
	return Compress(data, StrategyForTypeWithSize(t, len(data)))
}
