// Package auth provides support for generating and validating the bearer
// tokens used by the account endpoints.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a bearer token fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the authorization claims carried by a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Config represents the information required to construct an Auth value.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Auth is used to issue and authenticate bearer tokens.
type Auth struct {
	secret []byte
	issuer string
	ttl    time.Duration
	method jwt.SigningMethod
	parser *jwt.Parser
}

// New creates an Auth to support HS256 token use.
func New(cfg Config) (*Auth, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret not provided")
	}

	a := Auth{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		method: jwt.SigningMethodHS256,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}

	return &a, nil
}

// GenerateToken creates a signed token for the specified user.
func (a *Auth) GenerateToken(userID string, email string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(a.method, claims)

	str, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return str, nil
}

// Authenticate processes an Authorization header of the form
// "Bearer <token>" and returns the validated claims.
func (a *Auth) Authenticate(bearerToken string) (Claims, error) {
	parts := strings.Split(bearerToken, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return Claims{}, errors.New("expected authorization header format: Bearer <token>")
	}

	var claims Claims
	token, err := a.parser.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
