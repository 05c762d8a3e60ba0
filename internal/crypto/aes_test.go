package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymmetric_RoundTrip(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "short", plaintext: "hi"},
		{name: "exactly one block", plaintext: "0123456789abcdef"},
		{name: "multi block", plaintext: strings.Repeat("secret payload ", 10)},
		{name: "empty", plaintext: ""},
		{name: "binary-ish", plaintext: "\x00\x01\x02\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := SymmetricEncrypt([]byte(tt.plaintext), key)
			require.NoError(t, err)

			decrypted, err := SymmetricDecrypt(ciphertext, key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(decrypted))
		})
	}
}

func TestSymmetric_Deterministic(t *testing.T) {
	// Режим без IV: одинаковые plaintext под одним ключом обязаны давать
	// одинаковый шифртекст. Это ожидаемое свойство протокола, не баг теста.
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	first, err := SymmetricEncrypt([]byte("same message"), key)
	require.NoError(t, err)
	second, err := SymmetricEncrypt([]byte("same message"), key)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSymmetricDecrypt_WrongKey(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)
	otherKey, err := GenerateSymmetricKey()
	require.NoError(t, err)

	ciphertext, err := SymmetricEncrypt([]byte("payload"), key)
	require.NoError(t, err)

	// Чужой ключ практически гарантированно ломает padding
	_, err = SymmetricDecrypt(ciphertext, otherKey)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestSymmetricDecrypt_BadInput(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	_, err = SymmetricDecrypt("%%%not-base64%%%", key)
	assert.ErrorIs(t, err, ErrCrypto)

	// не кратно размеру блока
	short := base64.StdEncoding.EncodeToString([]byte("abc"))
	_, err = SymmetricDecrypt(short, key)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestValidateSymmetricKey(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)
	assert.NoError(t, ValidateSymmetricKey(key))

	key16 := base64.StdEncoding.EncodeToString(make([]byte, 16))
	assert.NoError(t, ValidateSymmetricKey(key16))

	assert.ErrorIs(t, ValidateSymmetricKey("%%%"), ErrCrypto)
	key7 := base64.StdEncoding.EncodeToString(make([]byte, 7))
	assert.ErrorIs(t, ValidateSymmetricKey(key7), ErrCrypto)
}
