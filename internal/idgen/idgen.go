// Package idgen generates short opaque identifiers using rejection
// sampling over a configurable alphabet, matching the scheme the original
// harmony core used for connection ids and request ids.
package idgen

import (
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// DefaultAlphabet is the lowercase Latin alphabet used for connection and
// request ids.
var DefaultAlphabet = []rune("abcdefghijklmnopqrstuvwxyz")

// DefaultLength is the id length used by GenerateID and so by the
// request-id pool.
const DefaultLength = 10

// RequestIDBatchSize is the number of request ids minted per connection at
// handshake time.
const RequestIDBatchSize = 20

// Generate returns a random string of size runes drawn from alphabet using
// rejection sampling: each candidate byte is masked to the next power of
// two at or above len(alphabet) and rejected if it lands outside the
// alphabet, so every retained rune is uniformly distributed.
func Generate(alphabet []rune, size int) (string, error) {
	if len(alphabet) == 0 {
		return "", fmt.Errorf("idgen: alphabet must not be empty")
	}
	if len(alphabet) > 0xff {
		return "", fmt.Errorf("idgen: alphabet longer than 255 symbols is not supported")
	}
	mask := nextPowerOfTwo(len(alphabet)) - 1

	runes := make([]rune, 0, size)
	// Matches the original's batching: pull 8*size/5 random bytes per
	// round, which keeps the expected number of rounds small for
	// alphabets that are not themselves a power of two.
	step := 8 * size / 5
	if step == 0 {
		step = size
	}
	buf := make([]byte, step)
	for len(runes) < size {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("idgen: read random bytes: %w", err)
		}
		for _, b := range buf {
			idx := int(b) & mask
			if idx < len(alphabet) {
				runes = append(runes, alphabet[idx])
				if len(runes) == size {
					break
				}
			}
		}
	}
	return string(runes), nil
}

// GenerateID returns a DefaultLength-rune id drawn from DefaultAlphabet,
// used for connection ids and request ids.
func GenerateID() (string, error) {
	return Generate(DefaultAlphabet, DefaultLength)
}

// NewRequestIDPool mints RequestIDBatchSize fresh request ids for a newly
// accepted connection.
func NewRequestIDPool() ([]string, error) {
	ids := make([]string, 0, RequestIDBatchSize)
	for i := 0; i < RequestIDBatchSize; i++ {
		id, err := GenerateID()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NewULID returns a new lexicographically-sortable ULID, used for domain
// record ids (spaces, channels, calls) where the original minted a
// Ulid::new().
func NewULID() string {
	return ulid.Make().String()
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
