package transform

import (
	"crypto/aes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	KeySize = 256 / 8
	IVSize  = aes.BlockSize
)

var (
	ErrEntropy = errors.New("unable to read secure random bytes")
)

// KeyMaterial is an AES-256 key and CBC initialization vector.
// It is only ever held in memory and must not be reused for more than one payload.
type KeyMaterial struct {
	Key [KeySize]byte
	IV  [IVSize]byte
}

// GenerateKeyMaterial reads a fresh key and IV from crypto/rand.
func GenerateKeyMaterial() (KeyMaterial, error) {
	var km KeyMaterial
	if _, err := io.ReadFull(rand.Reader, km.Key[:]); err != nil {
		return KeyMaterial{}, fmt.Errorf("%w: key: %v", ErrEntropy, err)
	}
	if _, err := io.ReadFull(rand.Reader, km.IV[:]); err != nil {
		return KeyMaterial{}, fmt.Errorf("%w: iv: %v", ErrEntropy, err)
	}
	return km, nil
}

// Zero overwrites the key and IV.
func (km *KeyMaterial) Zero() {
	clear(km.Key[:])
	clear(km.IV[:])
}

// String keeps key bytes out of logs and error messages.
func (km KeyMaterial) String() string {
	return "KeyMaterial(redacted)"
}

// GoString keeps key bytes out of %#v formatting.
func (km KeyMaterial) GoString() string {
	return km.String()
}
