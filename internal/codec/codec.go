// Package codec implements the wire encoding for Aurora RPC frames:
// MessagePack serialization, optional zlib compression, and optional
// AES-256-GCM encryption with a 96-byte nonce prefix.
package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/vmihailenco/msgpack/v5"
)

// NoncePrefixSize is the size, in bytes, of the nonce prefix carried on
// encrypted frames. Only the first GCMNonceSize bytes of it are used as the
// actual GCM nonce; the rest is random filler that decoding ignores, kept
// only for wire compatibility.
const NoncePrefixSize = 96

// GCMNonceSize is the number of leading bytes of the nonce prefix that are
// actually passed to the AEAD as the nonce.
const GCMNonceSize = 12

// ErrBadFrame is returned when a frame cannot be decoded: truncated,
// corrupt, or failing AEAD authentication.
var ErrBadFrame = fmt.Errorf("codec: bad frame")

// Serialize encodes a value as MessagePack, using map encoding (field
// names, not array positions) to match the wire contract.
func Serialize(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: serialize: %w", err)
	}
	return data, nil
}

// Deserialize decodes a MessagePack-encoded value into v.
func Deserialize(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return nil
}

// Encode applies the frame transformations in order: optional zlib
// compression, then optional AES-256-GCM encryption. key is nil when the
// connection has not negotiated encryption (see OQ1 in SPEC_FULL.md).
func Encode(buffer []byte, compress bool, key *[32]byte) ([]byte, error) {
	payload := buffer
	if compress {
		compressed, err := zlibCompress(buffer)
		if err != nil {
			return nil, fmt.Errorf("codec: compress: %w", err)
		}
		payload = compressed
	}
	if key == nil {
		return payload, nil
	}
	return seal(payload, key)
}

// Decode reverses Encode: optional AES-256-GCM decryption, then optional
// zlib decompression.
func Decode(buffer []byte, compress bool, key *[32]byte) ([]byte, error) {
	payload := buffer
	if key != nil {
		opened, err := open(buffer, key)
		if err != nil {
			return nil, err
		}
		payload = opened
	}
	if !compress {
		return payload, nil
	}
	out, err := zlibDecompress(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrBadFrame, err)
	}
	return out, nil
}

func zlibCompress(buffer []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(buffer); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zlibDecompress(buffer []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(buffer))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func newAEAD(key *[32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal prepends a NoncePrefixSize random nonce prefix to the ciphertext.
// Only the leading GCMNonceSize bytes of that prefix are used as the real
// GCM nonce; see SPEC_FULL.md OQ4.
func seal(plaintext []byte, key *[32]byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("codec: aead: %w", err)
	}
	noncePrefix := make([]byte, NoncePrefixSize)
	if _, err := rand.Read(noncePrefix); err != nil {
		return nil, fmt.Errorf("codec: nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, noncePrefix[:GCMNonceSize], plaintext, nil)
	out := make([]byte, 0, NoncePrefixSize+len(ciphertext))
	out = append(out, noncePrefix...)
	out = append(out, ciphertext...)
	return out, nil
}

func open(buffer []byte, key *[32]byte) ([]byte, error) {
	if len(buffer) < NoncePrefixSize {
		return nil, fmt.Errorf("%w: frame shorter than nonce prefix", ErrBadFrame)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("codec: aead: %w", err)
	}
	noncePrefix := buffer[:NoncePrefixSize]
	ciphertext := buffer[NoncePrefixSize:]
	plaintext, err := aead.Open(nil, noncePrefix[:GCMNonceSize], ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return plaintext, nil
}
