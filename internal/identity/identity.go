// Package identity issues a signed browser session cookie and exposes the
// session ID to handlers.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// CookieName is the session cookie.
	CookieName = "ink_session"
	// DefaultSessionIDValue is returned when no session is attached to a context.
	DefaultSessionIDValue = "default"

	cookieMaxAge = 30 * 24 * time.Hour
	issuer       = "ink"
)

type contextKey int

const sessionIDKey contextKey = iota

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithSessionID returns a copy of ctx carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// Signer creates and verifies session tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer using an HMAC secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue returns a signed token for a new random session ID.
func (s *Signer) Issue() (token, sessionID string, err error) {
	sessionID = uuid.NewString()
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cookieMaxAge)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign session token: %w", err)
	}
	return token, sessionID, nil
}

// Verify checks token and returns its session ID.
func (s *Signer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.Issuer != issuer {
		return "", errors.New("invalid session token")
	}
	return claims.Subject, nil
}

// Middleware attaches a session ID to every request, issuing a new signed
// cookie when the request has none or an invalid one.
func Middleware(signer *Signer, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(CookieName); err == nil {
				if sessionID, err := signer.Verify(c.Value); err == nil {
					next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
					return
				}
				slog.Debug("Rejected session cookie, issuing a new one", "ip", r.RemoteAddr)
			}

			token, sessionID, err := signer.Issue()
			if err != nil {
				http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				Expires:  time.Now().Add(cookieMaxAge),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   secure,
			})
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}
