// Package auth verifies bearer tokens and resolves the caller identity.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/holocrononline/holocron/tenant"
)

var (
	ErrMissingSubject = errors.New("token has no subject")
	errMalformed      = errors.New("authorization header is not a bearer token")
)

// Verifier validates HMAC signed JWTs. The token subject is the tenant id.
type Verifier struct {
	Secret   []byte
	Issuer   string
	Audience string
	Logger   *slog.Logger
}

// Verify parses and validates token and returns its subject.
func (v *Verifier) Verify(token string) (tenant.ID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return tenant.Anonymous, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return tenant.Anonymous, ErrMissingSubject
	}
	return tenant.ID(claims.Subject), nil
}

func bearer(r *http.Request) (string, bool, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false, nil
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", true, errMalformed
	}
	return strings.TrimSpace(token), true, nil
}

// Authenticate resolves the caller of every request. Requests without an
// Authorization header continue anonymously; requests with an invalid token
// are rejected.
func (v *Verifier) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present, err := bearer(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		var id tenant.ID
		if err == nil {
			id, err = v.Verify(token)
		}
		if err != nil {
			v.Logger.Info("Rejected token", "error", err.Error())
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenant.WithID(r.Context(), id)))
	})
}

// Require rejects anonymous requests.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tenant.FromContext(r.Context()).Present() {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
