// Package bundlecodec кодирует bundles для хранения в БД:
// детерминированный CBOR, сжатый zstd, и blake3 digest для дедупликации сохранений.
package bundlecodec

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// MaxDecodedSize ограничивает размер распакованного blob.
const MaxDecodedSize = 16 << 20

// ErrEmpty is returned by Decode for an empty blob.
var ErrEmpty = errors.New("bundlecodec: empty blob")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	// Core Deterministic Encoding: отсортированные ключи map, одинаковые данные дают одинаковые байты.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("bundlecodec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler:  cbor.TextUnmarshalerTextString,
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 16,
	}.DecMode()
	if err != nil {
		panic("bundlecodec: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("bundlecodec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		panic("bundlecodec: zstd decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("bundlecodec: marshal: %w", err)
	}
	return data, nil
}

// Encode возвращает сжатый blob для хранения.
func Encode(v any) ([]byte, error) {
	raw, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Decode распаковывает blob, созданный Encode, в v.
func Decode(blob []byte, v any) error {
	if len(blob) == 0 {
		return ErrEmpty
	}
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return fmt.Errorf("bundlecodec: decompress: %w", err)
	}
	if err := decMode.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("bundlecodec: unmarshal: %w", err)
	}
	return nil
}

// Encoded — blob вместе с его digest.
type Encoded struct {
	Blob   []byte
	Digest string
}

// EncodeWithDigest кодирует v один раз и возвращает blob и digest.
// Digest считается по несжатому CBOR, поэтому не зависит от уровня сжатия.
func EncodeWithDigest(v any) (Encoded, error) {
	raw, err := Marshal(v)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{
		Blob:   zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)),
		Digest: DigestBytes(raw),
	}, nil
}

// Digest returns the hex blake3 hash of the deterministic encoding of v.
func Digest(v any) (string, error) {
	raw, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return DigestBytes(raw), nil
}

// DigestBytes returns the hex blake3 hash of data.
func DigestBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
