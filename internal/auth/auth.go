package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session-token"

var (
	// ErrNoToken is returned when a request carries no token at all.
	ErrNoToken = errors.New("auth: no token")
	// ErrInvalidToken is returned when a token fails to parse or verify.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Resolver validates HMAC-signed session tokens and yields the stable user
// identifier embedded in them. The rest of the service trusts that ID.
type Resolver struct {
	secret []byte
	ttl    time.Duration
}

// NewResolver creates a Resolver with the given signing secret and token
// lifetime.
func NewResolver(secret string, ttl time.Duration) *Resolver {
	return &Resolver{secret: []byte(secret), ttl: ttl}
}

// Issue signs a new session token for a user.
func (a *Resolver) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a token string and returns the user ID it was issued for.
func (a *Resolver) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ResolveIdentity extracts the caller's user ID from a request. The token is
// read from the "token" query parameter (WebSocket handshakes) or the session
// cookie (REST calls).
func (a *Resolver) ResolveIdentity(r *http.Request) (string, error) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			return "", ErrNoToken
		}
		tokenString = cookie.Value
	}
	if tokenString == "" {
		return "", ErrNoToken
	}
	return a.Parse(tokenString)
}
