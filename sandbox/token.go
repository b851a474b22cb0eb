package sandbox

import (
	"crypto/rand"

	"github.com/cockroachdb/errors"
)

// MinTokenLength is the shortest accepted sandbox token
const MinTokenLength = 24

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxUnbiased is the largest multiple of len(tokenAlphabet) not above 256,
// bytes at or above it are discarded to keep the distribution uniform
const maxUnbiased = 256 - 256%len(tokenAlphabet)

// NewToken returns n random alphanumeric characters from crypto/rand
func NewToken(n int) (string, error) {
	if n < MinTokenLength {
		return "", errors.Errorf("token length must be at least %d", MinTokenLength)
	}

	token := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(token) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.WithMessage(err, "failed to read random")
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			token = append(token, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(token) == n {
				break
			}
		}
	}
	return string(token), nil
}
