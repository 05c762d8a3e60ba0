package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается на любой дефектный bearer token: битый blob,
// неверный секрет, истекший срок. Детали отказа клиенту не раскрываются.
var ErrInvalidToken = errors.New("invalid token")

const nonceSize = 12

// Claims — содержимое bearer-токена.
type Claims struct {
	IdentityID string `json:"identity_id"`
	jwt.RegisteredClaims
}

// Codec кодирует identity id в непрозрачный bearer token и обратно.
// Внутри blob'а лежит подписанный HS256 JWT (exp/iat), запечатанный
// AES-256-GCM под server-wide секретом: валидность токена определяется
// исключительно тем, что он расшифровывается и не истек. Состояния нет.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// New создает Codec. Секрет произвольной длины нормализуется через SHA-256
// до 256-битного ключа.
func New(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	key := sha256.Sum256([]byte(secret))
	return &Codec{secret: key[:], ttl: ttl}, nil
}

// Issue выпускает токен для identity id.
func (c *Codec) Issue(identityID string) (string, error) {
	now := time.Now()
	claims := Claims{
		IdentityID: identityID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chatrelay",
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	sealed, err := c.seal([]byte(signed))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode проверяет токен и возвращает identity id.
func (c *Codec) Decode(tok string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return "", ErrInvalidToken
	}

	signed, err := c.open(sealed)
	if err != nil {
		return "", ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(string(signed), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid || claims.IdentityID == "" {
		return "", ErrInvalidToken
	}

	return claims.IdentityID, nil
}

func (c *Codec) seal(plaintext []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *Codec) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrInvalidToken
	}

	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
}

func (c *Codec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
