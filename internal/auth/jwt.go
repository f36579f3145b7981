package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenSigner wraps an opaque session token in an HS256 bearer token. The
// session token rides in the jti claim so revocation stays server-side.
type TokenSigner struct {
	secret []byte
	issuer string
}

func NewTokenSigner(secret, issuer string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), issuer: issuer}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *TokenSigner) Sign(userID int64, role, sessionToken string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        sessionToken,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates the signature and expiry and returns the embedded session token.
func (s *TokenSigner) Parse(tokenString string) (string, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	if claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
