package transform

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidPadding    = errors.New("invalid padding")
)

// Encrypt encrypts plaintext with AES-256-CBC using PKCS#7 padding.
func Encrypt(plaintext []byte, km KeyMaterial) ([]byte, error) {
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return nil, err
	}
	padded := pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, km.IV[:]).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt given the same KeyMaterial.
// A wrong key most likely surfaces as ErrInvalidPadding, but may also produce garbage that happens to be padded correctly.
func Decrypt(ciphertext []byte, km KeyMaterial) ([]byte, error) {
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return nil, err
	}
	size := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%size != 0 {
		return nil, fmt.Errorf("%w: length %d is not a positive multiple of %d", ErrInvalidCiphertext, len(ciphertext), size)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, km.IV[:]).CryptBlocks(out, ciphertext)
	return unpad(out, size)
}

func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
