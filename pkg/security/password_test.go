package security_test

import (
	"testing"

	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", testPasswordConfig())
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", testPasswordConfig())
	require.Error(t, err)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := security.VerifyPassword("x", "$bcrypt$nope")
	require.ErrorIs(t, err, security.ErrInvalidHash)

	_, err = security.VerifyPassword("x", "$argon2id$v=19$m=abc,t=1,p=1$c2FsdA$aGFzaA")
	require.ErrorIs(t, err, security.ErrInvalidHash)
}

func TestValidateStrength(t *testing.T) {
	require.Error(t, security.ValidateStrength("short1"))
	require.Error(t, security.ValidateStrength("lettersonly"))
	require.Error(t, security.ValidateStrength("1234567890"))
	require.NoError(t, security.ValidateStrength("goal2026!"))
}
