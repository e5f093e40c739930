package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ratehub/ratehub/internal/models"
)

// DefaultTTL is the validity window of an issued token. There is no refresh
// or revocation mechanism: a token stays valid until natural expiry.
const DefaultTTL = 30 * 24 * time.Hour

// Verification failures are kept distinct so callers can log and count them
// separately, even though both surface to clients as a single unauthorized
// outcome.
var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token malformed or badly signed")
)

// Identity is the authenticated principal carried by a verified token.
type Identity struct {
	UserID uint
	Role   models.Role
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) Issue(userID uint, role models.Role) (string, error) {
	now := time.Now()
	c := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(i.secret)
}

// Verify validates signature and expiry and resolves the identity. The HMAC
// family is pinned; tokens signed with any other method are malformed.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, ErrMalformed
	}
	if !tok.Valid {
		return Identity{}, ErrMalformed
	}

	userID, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return Identity{}, ErrMalformed
	}

	role, err := models.ParseRole(c.Role)
	if err != nil {
		return Identity{}, ErrMalformed
	}

	return Identity{UserID: uint(userID), Role: role}, nil
}
