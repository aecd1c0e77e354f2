package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialCipher(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		c, err := NewCredentialCipher("unit-test-secret")
		require.NoError(t, err)

		sealed, err := c.Seal([]byte(`{"access_token":"tok"}`))
		require.NoError(t, err)
		assert.NotContains(t, sealed, "tok")

		opened, err := c.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, `{"access_token":"tok"}`, string(opened))
	})

	t.Run("distinct nonces per seal", func(t *testing.T) {
		c, err := NewCredentialCipher("unit-test-secret")
		require.NoError(t, err)

		a, err := c.Seal([]byte("same"))
		require.NoError(t, err)
		b, err := c.Seal([]byte("same"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("wrong key fails to open", func(t *testing.T) {
		c1, err := NewCredentialCipher("secret-one")
		require.NoError(t, err)
		c2, err := NewCredentialCipher("secret-two")
		require.NoError(t, err)

		sealed, err := c1.Seal([]byte("payload"))
		require.NoError(t, err)

		_, err = c2.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := NewCredentialCipher("")
		assert.Error(t, err)
	})

	t.Run("garbage ciphertext rejected", func(t *testing.T) {
		c, err := NewCredentialCipher("unit-test-secret")
		require.NoError(t, err)

		_, err = c.Open("not-base64!!")
		assert.Error(t, err)
		_, err = c.Open("c2hvcnQ=")
		assert.Error(t, err)
	})
}
