// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for any token that fails parsing or verification.
var ErrInvalidToken = errors.New("invalid token")

// JWTManager signs and validates JWT tokens used by the API.
type JWTManager struct {
	keys      map[string][]byte // kid -> HMAC secret; "" is the single-secret key
	activeKid string            // kid used to sign new tokens
	duration  time.Duration     // how long tokens are valid
}

// Claims is the token payload: the user id and role.
type Claims struct {
	ID   string `json:"id"`   // MongoDB ObjectID as hex
	Role string `json:"role"` // user, admin or volunteer
	jwt.RegisteredClaims
}

// NewJWTManager returns a JWTManager using a single secret.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return &JWTManager{
		keys:     map[string][]byte{"": []byte(secretKey)},
		duration: duration,
	}
}

// NewJWTManagerFromKeys returns a JWTManager that signs with activeKid and
// verifies tokens signed by any of keys, so secrets can be rotated without
// invalidating tokens already issued.
func NewJWTManagerFromKeys(keys map[string]string, activeKid string, duration time.Duration) *JWTManager {
	m := &JWTManager{
		keys:      make(map[string][]byte, len(keys)),
		activeKid: activeKid,
		duration:  duration,
	}
	for kid, secret := range keys {
		m.keys[kid] = []byte(secret)
	}
	return m
}

// GenerateToken issues a signed token for a user.
func (m *JWTManager) GenerateToken(userID, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.duration)

	claims := &Claims{
		ID:   userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.activeKid != "" {
		token.Header["kid"] = m.activeKid
	}

	key, ok := m.keys[m.activeKid]
	if !ok {
		return "", time.Time{}, fmt.Errorf("no signing key for kid %q", m.activeKid)
	}

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken parses and validates a token and returns its claims.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Only HMAC; rejects alg=none and asymmetric confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		key, ok := m.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
