package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenFormat = errors.New("invalid token format")
	ErrTokenSig    = errors.New("invalid token signature")
	ErrTokenExp    = errors.New("token expired or not yet valid")
	ErrTokenSID    = errors.New("session id mismatch")
)

const issuer = "voicereader"

// Claims identifies the session a client token was minted for.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateClientToken signs an HS256 token binding a client to sessionID until exp.
func GenerateClientToken(secret, sessionID string, now, exp time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("empty token secret")
	}
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign client token: %w", err)
	}
	return tok, nil
}

// ValidateClientToken parses and validates the token at now, allowing skew on
// both ends of the validity window. Returns the embedded session id and expiry.
func ValidateClientToken(secret, token, expectSessionID string, now time.Time, skew time.Duration) (string, time.Time, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(skew),
		jwt.WithExpirationRequired(),
	}
	if expectSessionID != "" {
		opts = append(opts, jwt.WithSubject(expectSessionID))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", time.Time{}, ErrTokenSig
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "", time.Time{}, ErrTokenExp
	case errors.Is(err, jwt.ErrTokenInvalidSubject):
		return "", time.Time{}, ErrTokenSID
	default:
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrTokenFormat, err)
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}
