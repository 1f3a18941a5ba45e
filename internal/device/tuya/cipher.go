// internal/device/tuya/cipher.go
package tuya

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

var errBadPadding = errors.New("tuya: bad padding (wrong local key?)")

// ecb is AES-128 in ECB mode, the only mode the 55AA protocol uses.
type ecb struct {
	block cipher.Block
}

func newECB(key []byte) (*ecb, error) {
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &ecb{block: b}, nil
}

// encrypt encrypts plain. Without pad, len(plain) must be a block multiple.
func (e *ecb) encrypt(plain []byte, pad bool) []byte {
	if pad {
		plain = pkcs7Pad(plain)
	}
	out := make([]byte, len(plain))
	for i := 0; i+aes.BlockSize <= len(plain); i += aes.BlockSize {
		e.block.Encrypt(out[i:i+aes.BlockSize], plain[i:i+aes.BlockSize])
	}
	return out
}

func (e *ecb) decrypt(data []byte, unpad bool) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("tuya: ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += aes.BlockSize {
		e.block.Decrypt(out[i:i+aes.BlockSize], data[i:i+aes.BlockSize])
	}
	if !unpad {
		return out, nil
	}
	return pkcs7Unpad(out)
}

func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errBadPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}

func xor(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
