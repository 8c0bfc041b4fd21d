// Package auth issues and verifies the session tokens that let a teacher
// award EduCoin over the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenType is the "type" claim carried by every teacher session token.
const tokenType = "teacher"

// ErrBadSecret is returned by Login when the supplied secret does not match.
var ErrBadSecret = errors.New("invalid teacher secret")

// TeacherClaims are the JWT claims for a teacher session token.
type TeacherClaims struct {
	jwt.RegisteredClaims
	Teacher string `json:"teacher"`
	Type    string `json:"type"`
}

// TokenIssuer issues and verifies HS256 teacher session tokens.
type TokenIssuer struct {
	key        []byte
	secretHash []byte
	issuer     string
	ttl        time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	key: HMAC signing key.
//	secretHash: bcrypt hash of the shared teacher secret accepted by Login.
//	issuer: the "iss" claim value.
//	ttl: token lifetime (default: 8 hours).
func NewTokenIssuer(key []byte, secretHash, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &TokenIssuer{
		key:        key,
		secretHash: []byte(secretHash),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Login exchanges the shared teacher secret for a token naming teacher.
func (t *TokenIssuer) Login(teacher, secret string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(t.secretHash, []byte(secret)); err != nil {
		return "", ErrBadSecret
	}
	return t.Issue(teacher)
}

// Issue creates a signed token for teacher.
func (t *TokenIssuer) Issue(teacher string) (string, error) {
	if teacher == "" {
		return "", fmt.Errorf("teacher name is required")
	}
	now := time.Now().UTC()
	claims := TeacherClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   teacher,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Teacher: teacher,
		Type:    tokenType,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign teacher token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a teacher token, returning its claims.
func (t *TokenIssuer) Verify(tokenStr string) (*TeacherClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&TeacherClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.key, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify teacher token: %w", err)
	}
	claims, ok := token.Claims.(*TeacherClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid teacher token claims")
	}
	if claims.Type != tokenType || claims.Teacher == "" {
		return nil, fmt.Errorf("not a teacher session token")
	}
	return claims, nil
}

// HashSecret returns the bcrypt hash of secret for use as
// auth.teacher_secret_hash.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}
