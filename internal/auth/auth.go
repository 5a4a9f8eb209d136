package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strings"
)

var (
	ErrMissingBearer = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
)

type Claims struct {
	Subject string
	Token   string
}

type Authenticator interface {
	Authenticate(r *http.Request) (Claims, error)
}

// TokenAuthenticator accepts a single shared bearer token. With no token
// configured every request is let through as the anonymous subject.
type TokenAuthenticator struct {
	Token string
}

func NewAuthenticatorFromEnv(getenv func(string) string) *TokenAuthenticator {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &TokenAuthenticator{Token: getenv("SPECGATE_DEV_TOKEN")}
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (Claims, error) {
	if a == nil || a.Token == "" {
		return Claims{Subject: "anonymous"}, nil
	}

	bearer, err := extractBearer(r)
	if err != nil {
		return Claims{}, err
	}
	if subtle.ConstantTimeCompare([]byte(bearer), []byte(a.Token)) != 1 {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Subject: "dev", Token: bearer}, nil
}

// extractBearer accepts the scheme in any case, as RFC 6750 allows.
func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingBearer
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
