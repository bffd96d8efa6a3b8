package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m0hi1/voyageiq/internal/domain/entity"
)

var (
	// ErrNoSecret means the manager was built without a signing secret.
	// This is a deployment defect and must surface as a 500, never as a
	// caller error.
	ErrNoSecret = errors.New("jwt signing secret not configured")
	// ErrTokenExpired marks a well-signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid token")
)

// JWTManager mints and verifies session tokens. One mint call feeds both
// transports (cookie and response body), so the two always carry the same
// token and expiry.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured session lifetime.
func (m *JWTManager) TTL() time.Duration { return m.ttl }

// SessionClaims is the token payload: the user id, the role, and the
// standard expiry claim.
type SessionClaims struct {
	UserID string      `json:"id"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// Mint produces a signed HS256 token encoding {id, role} plus expiry.
func (m *JWTManager) Mint(userID string, role entity.Role) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	now := time.Now()
	exp := now.Add(m.ttl)
	claims := &SessionClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret)
	return s, exp, err
}

// Verify checks signature and expiry. Expired-but-well-signed tokens return
// ErrTokenExpired; anything else wrong with the token returns ErrTokenInvalid.
func (m *JWTManager) Verify(tokenStr string) (*SessionClaims, error) {
	if len(m.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tkn.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
