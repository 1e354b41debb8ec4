package jwt

import (
	"testing"
	"time"

	"chat-system/config"

	"github.com/stretchr/testify/require"
)

func newTestService(expire time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "unit-test-secret",
		ExpireTime: expire,
		Issuer:     "chat-system",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.GenerateToken(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID())
	require.Equal(t, "alice", claims.Username)
}

func TestGenerateToken_RequiresUserID(t *testing.T) {
	svc := newTestService(time.Hour)
	_, err := svc.GenerateToken(0, "alice")
	require.Error(t, err)
}

func TestValidateToken_RejectsBadInput(t *testing.T) {
	svc := newTestService(time.Hour)

	_, err := svc.ValidateToken("")
	require.Error(t, err)

	_, err = svc.ValidateToken("not.a.token")
	require.Error(t, err)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	svc := newTestService(time.Hour)
	other := NewJWTService(config.JWTConfig{
		Secret:     "different-secret",
		ExpireTime: time.Hour,
		Issuer:     "chat-system",
	})

	token, err := svc.GenerateToken(42, "alice")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateToken(42, "alice")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
