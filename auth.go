package main

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	authIssuer = "tzgate"

	ScopeSign  = "sign"
	ScopeAdmin = "admin"
)

var ErrUnauthorized = errors.New("unauthorized")

// AuthClaims are the claims of an API token.
type AuthClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope. The admin scope grants all.
func (c *AuthClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope) || slices.Contains(c.Scopes, ScopeAdmin)
}

// AuthManager issues and verifies HS256 API tokens. A nil *AuthManager
// accepts every request.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthManager returns nil when conf has no secret.
func NewAuthManager(conf AuthConfig) *AuthManager {
	if conf.Secret == "" {
		return nil
	}
	ttl := conf.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthManager{secret: []byte(conf.Secret), ttl: ttl}
}

func (am *AuthManager) GenerateJWT(subject string, scopes ...string) (*AuthClaims, string, error) {
	if am == nil {
		return nil, "", errors.New("auth is disabled")
	}

	now := time.Now()
	claims := AuthClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    authIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(am.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(am.secret)
	if err != nil {
		return nil, "", err
	}
	return &claims, token, nil
}

func (am *AuthManager) VerifyJWT(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (any, error) {
		return am.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(authIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	return claims, nil
}

// Authorize checks the bearer token of r for scope.
func (am *AuthManager) Authorize(r *http.Request, scope string) (*AuthClaims, error) {
	if am == nil {
		return nil, nil
	}

	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	claims, err := am.VerifyJWT(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.HasScope(scope) {
		return nil, fmt.Errorf("%w: token lacks %q scope", ErrUnauthorized, scope)
	}
	return claims, nil
}
