package auth

import (
	"testing"
	"time"

	"skillxchange/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokens_GenerateAndVerify(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", "skillxchange", time.Hour)

	token, err := tokens.GenerateToken("user-123", []string{"user"})
	req.NoError(err)

	userID, err := tokens.Verify(token)
	req.NoError(err)
	req.Equal("user-123", userID)

	claims, err := tokens.ValidateToken(token)
	req.NoError(err)
	req.Equal([]string{"user"}, claims.Roles)
}

func TestTokens_Refused(t *testing.T) {
	tokens := NewTokens("test-secret", "skillxchange", time.Hour)
	expired := NewTokens("test-secret", "skillxchange", -time.Minute)
	otherSecret := NewTokens("another-secret", "skillxchange", time.Hour)
	otherIssuer := NewTokens("test-secret", "someone-else", time.Hour)

	expiredToken, err := expired.GenerateToken("user-123", nil)
	require.NoError(t, err)
	forgedToken, err := otherSecret.GenerateToken("user-123", nil)
	require.NoError(t, err)
	foreignToken, err := otherIssuer.GenerateToken("user-123", nil)
	require.NoError(t, err)
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{UserID: "user-123"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", errors.ErrMissingToken},
		{"malformed", "not-a-jwt", errors.ErrInvalidToken},
		{"expired", expiredToken, errors.ErrInvalidToken},
		{"bad signature", forgedToken, errors.ErrInvalidToken},
		{"foreign issuer", foreignToken, errors.ErrInvalidToken},
		{"unsigned", noneToken, errors.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			userID, err := tokens.Verify(tt.token)
			req.ErrorIs(err, tt.want)
			req.ErrorIs(err, errors.ErrAuth)
			req.Empty(userID)
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := require.New(t)

	token, err := BearerToken("Bearer abc.def.ghi")
	req.NoError(err)
	req.Equal("abc.def.ghi", token)

	token, err = BearerToken("bearer   abc")
	req.NoError(err)
	req.Equal("abc", token)

	_, err = BearerToken("")
	req.ErrorIs(err, errors.ErrMissingToken)

	_, err = BearerToken("Basic dXNlcjpwYXNz")
	req.ErrorIs(err, errors.ErrInvalidToken)

	_, err = BearerToken("abc.def.ghi")
	req.ErrorIs(err, errors.ErrInvalidToken)
}
