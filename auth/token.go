package auth

import (
	"fmt"
	"strings"
	"time"

	"skillxchange/errors"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
// Tokens are issued by the identity service; this core only needs to verify them,
// Generate exists for tooling and tests.
type Tokens struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

func NewTokens(secret, issuer string, duration time.Duration) Tokens {
	return Tokens{secret: []byte(secret), issuer: issuer, duration: duration}
}

// GenerateToken creates a signed JWT for a specific user.
func (t Tokens) GenerateToken(userID string, roles []string) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken parses and validates the signature, issuer and expiration of a JWT string.
// Every failure wraps errors.ErrAuth.
func (t Tokens) ValidateToken(tokenString string) (*CustomClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// Verify binds a credential token to the user identity it was issued for.
func (t Tokens) Verify(tokenString string) (string, error) {
	claims, err := t.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
// A value without the Bearer scheme is malformed.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.ErrMissingToken
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: malformed authorization header", errors.ErrInvalidToken)
	}
	return strings.TrimSpace(token), nil
}
