package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()

	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNew_RejectsWrongKeySize(t *testing.T) {
	_, err := New(make([]byte, 16))
	assert.Error(t, err)

	_, err = New(nil)
	assert.Error(t, err)
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	for _, plaintext := range []string{"", "AIzaSyTest-key", "emoji éè and\nnewlines"} {
		encoded, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encoded)

		decrypted, err := c.Decrypt(encoded)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestCipher_EncryptIsNondeterministic(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	first, err := c.Encrypt("secret")
	require.NoError(t, err)
	second, err := c.Encrypt("secret")
	require.NoError(t, err)

	// Random nonces mean identical plaintexts never share ciphertext.
	assert.NotEqual(t, first, second)
}

func TestCipher_DecryptRejectsTampering(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	encoded, err := c.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = c.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestCipher_DecryptRejectsWrongKey(t *testing.T) {
	first, err := New(testKey(t))
	require.NoError(t, err)
	second, err := New(testKey(t))
	require.NoError(t, err)

	encoded, err := first.Encrypt("secret")
	require.NoError(t, err)

	_, err = second.Decrypt(encoded)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestCipher_DecryptRejectsGarbage(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	_, err = c.Decrypt("not base64 at all!!!")
	assert.ErrorIs(t, err, ErrCiphertextInvalid)

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}
