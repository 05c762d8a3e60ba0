package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyBits размер модуля RSA для identity и custody ключей
	KeyBits = 2048

	// параметры запечатывания приватного ключа passphrase'ом
	sealSaltSize   = 16
	sealNonceSize  = 12
	sealIterations = 100_000
	sealKeyLen     = 32

	pemTypePublic           = "PUBLIC KEY"
	pemTypeEncryptedPrivate = "ENCRYPTED PRIVATE KEY"
)

// GenerateKeyPair генерирует пару RSA-2048.
// Публичный ключ кодируется как PKIX PEM. Приватный ключ сериализуется в
// PKCS#8 и запечатывается passphrase'ом: PBKDF2-SHA256 выводит ключ, AES-GCM
// шифрует DER (формат blob: salt || nonce || ciphertext).
func GenerateKeyPair(passphrase string) (pubPEM, privPEM string, err error) {
	if passphrase == "" {
		return "", "", fmt.Errorf("%w: empty passphrase", ErrCrypto)
	}

	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: pubDER}))

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	sealed, err := sealPrivateKey(privDER, passphrase)
	if err != nil {
		return "", "", err
	}
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: pemTypeEncryptedPrivate, Bytes: sealed}))

	return pubPEM, privPEM, nil
}

// EncryptOAEP шифрует plaintext публичным ключом (RSA-OAEP, SHA-256)
// и возвращает base64 шифртекста.
func EncryptOAEP(plaintext []byte, pubPEM string) (string, error) {
	pub, err := parsePublicKey(pubPEM)
	if err != nil {
		return "", err
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: oaep encrypt: %v", ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptOAEP расшифровывает base64 шифртекст приватным ключом, предварительно
// распечатав его passphrase'ом. Неверная passphrase или битый padding дают
// ErrCrypto, не панику: для вызывающего это отказ аутентификации.
func DecryptOAEP(ciphertextB64, privPEM, passphrase string) ([]byte, error) {
	key, err := parsePrivateKey(privPEM, passphrase)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding: %v", ErrCrypto, err)
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: oaep decrypt: %v", ErrCrypto, err)
	}
	return plaintext, nil
}

// sealPrivateKey шифрует PKCS#8 DER ключом, выведенным из passphrase.
func sealPrivateKey(der []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, sealSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := newSealAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, sealNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := make([]byte, 0, sealSaltSize+sealNonceSize+len(der)+aead.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	sealed = append(sealed, aead.Seal(nil, nonce, der, nil)...)
	return sealed, nil
}

// openPrivateKey обратная операция к sealPrivateKey.
func openPrivateKey(sealed []byte, passphrase string) ([]byte, error) {
	if len(sealed) < sealSaltSize+sealNonceSize {
		return nil, fmt.Errorf("%w: sealed key too short", ErrCrypto)
	}

	salt := sealed[:sealSaltSize]
	nonce := sealed[sealSaltSize : sealSaltSize+sealNonceSize]
	ciphertext := sealed[sealSaltSize+sealNonceSize:]

	aead, err := newSealAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	der, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// GCM не различает неверную passphrase и испорченный blob
		return nil, fmt.Errorf("%w: failed to unseal private key", ErrCrypto)
	}
	return der, nil
}

func newSealAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	sealKey := pbkdf2.Key([]byte(passphrase), salt, sealIterations, sealKeyLen, sha256.New)

	block, err := aes.NewCipher(sealKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

func parsePublicKey(pubPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pubPEM))
	if block == nil || block.Type != pemTypePublic {
		return nil, fmt.Errorf("%w: malformed public key pem", ErrCrypto)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", ErrCrypto, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa public key", ErrCrypto)
	}
	return pub, nil
}

func parsePrivateKey(privPEM, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privPEM))
	if block == nil || block.Type != pemTypeEncryptedPrivate {
		return nil, fmt.Errorf("%w: malformed private key pem", ErrCrypto)
	}

	der, err := openPrivateKey(block.Bytes, passphrase)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrCrypto, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa private key", ErrCrypto)
	}
	return key, nil
}
