package helpers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m0hi1/voyageiq/internal/domain/entity"
	"github.com/m0hi1/voyageiq/pkg/helpers"
)

func TestJWT_MintAndVerify(t *testing.T) {
	t.Parallel()
	m := helpers.NewJWTManager("secret", time.Hour)

	token, exp, err := m.Mint("u1", entity.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, entity.RoleAdmin, claims.Role)
}

func TestJWT_Expired(t *testing.T) {
	t.Parallel()
	m := helpers.NewJWTManager("secret", -time.Minute)
	token, _, err := m.Mint("u1", entity.RoleUser)
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.ErrorIs(t, err, helpers.ErrTokenExpired)
}

func TestJWT_WrongSecret(t *testing.T) {
	t.Parallel()
	signer := helpers.NewJWTManager("secret-a", time.Hour)
	token, _, err := signer.Mint("u1", entity.RoleUser)
	require.NoError(t, err)

	_, err = helpers.NewJWTManager("secret-b", time.Hour).Verify(token)
	require.ErrorIs(t, err, helpers.ErrTokenInvalid)
}

func TestJWT_Malformed(t *testing.T) {
	t.Parallel()
	m := helpers.NewJWTManager("secret", time.Hour)
	for _, bad := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Verify(bad)
		require.ErrorIs(t, err, helpers.ErrTokenInvalid, "token %q", bad)
	}
}

func TestJWT_NoSecret(t *testing.T) {
	t.Parallel()
	m := helpers.NewJWTManager("", time.Hour)

	_, _, err := m.Mint("u1", entity.RoleUser)
	require.ErrorIs(t, err, helpers.ErrNoSecret)

	_, err = m.Verify("whatever")
	require.ErrorIs(t, err, helpers.ErrNoSecret)
}
