// Package auth issues and checks organizer capability tokens.
//
// Organizers exchange a passcode, verified against a bcrypt hash held in
// configuration, for a short-lived HS256 token. Every organizer route
// verifies that token on the server.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleHost is the only role the service issues.
const RoleHost = "host"

// ErrInvalidPasscode is returned when the passcode does not match, or when no
// passcode is configured at all.
var ErrInvalidPasscode = errors.New("invalid host passcode")

// ErrInvalidToken is returned for missing, malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid host token")

// Claims is the token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer verifies passcodes and signs tokens.
type Issuer struct {
	secret       []byte
	passcodeHash []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewIssuer constructs an Issuer. passcodeHash is a bcrypt hash; when it is
// empty every Verify call fails.
func NewIssuer(secret, passcodeHash string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret:       []byte(secret),
		passcodeHash: []byte(passcodeHash),
		ttl:          ttl,
		now:          time.Now,
	}
}

// HashPasscode returns the bcrypt hash to configure for passcode.
func HashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}
	return string(hash), nil
}

// Verify checks passcode and returns a signed host token with its expiry.
func (i *Issuer) Verify(passcode string) (string, time.Time, error) {
	if len(i.passcodeHash) == 0 || passcode == "" {
		return "", time.Time{}, ErrInvalidPasscode
	}
	if err := bcrypt.CompareHashAndPassword(i.passcodeHash, []byte(passcode)); err != nil {
		return "", time.Time{}, ErrInvalidPasscode
	}

	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		Role: RoleHost,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   RoleHost,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Parse validates a token string and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != RoleHost {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type ctxKey struct{}

// FromContext returns the claims RequireHost attached to the request.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// RequireHost rejects requests without a valid "Authorization: Bearer" host
// token. onError renders the rejection.
func (i *Issuer) RequireHost(onError func(w http.ResponseWriter, status int, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				onError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := i.Parse(parts[1])
			if err != nil {
				onError(w, http.StatusUnauthorized, "invalid or expired host token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
		})
	}
}
