package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Симметричный шифр канала: AES-ECB с PKCS#7 padding, без IV/nonce.
// Режим воспроизводит исходный wire-формат bit-for-bit и намеренно не
// рандомизирован: одинаковые plaintext под одним ключом дают одинаковый
// шифртекст. Это известная слабость протокола, см. DESIGN.md.

// SymmetricKeySize размер симметричного ключа чата в байтах (AES-256)
const SymmetricKeySize = 32

// GenerateSymmetricKey возвращает свежий ключ чата в base64.
func GenerateSymmetricKey() (string, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// ValidateSymmetricKey проверяет, что keyB64 декодируется в ключ допустимой
// для AES длины. Используется сервером при приеме enc_aes.
func ValidateSymmetricKey(keyB64 string) error {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return fmt.Errorf("%w: bad key encoding", ErrCrypto)
	}
	switch len(key) {
	case 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w: bad key length %d", ErrCrypto, len(key))
}

// SymmetricEncrypt шифрует plaintext ключом keyB64 (base64), возвращает
// base64 шифртекста.
func SymmetricEncrypt(plaintext []byte, keyB64 string) (string, error) {
	block, err := newBlock(keyB64)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(ciphertext[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// SymmetricDecrypt обратная операция к SymmetricEncrypt.
// Невалидный padding дает ErrCrypto.
func SymmetricDecrypt(ciphertextB64, keyB64 string) ([]byte, error) {
	block, err := newBlock(keyB64)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrCrypto)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of block size", ErrCrypto)
	}

	plaintext := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		block.Decrypt(plaintext[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}
	return pkcs7Unpad(plaintext, aes.BlockSize)
}

func newBlock(keyB64 string) (blockCipher, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad key encoding", ErrCrypto)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return block, nil
}

type blockCipher interface {
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: bad padded length", ErrCrypto)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, fmt.Errorf("%w: bad padding", ErrCrypto)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: bad padding", ErrCrypto)
		}
	}
	return data[:len(data)-padLen], nil
}
