// Package auth turns bearer tokens into an AuthContext and decides where a
// request for a route may go.
package auth

import (
	"errors"
	"time"

	"plantdoc/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrEmptySecret  = errors.New("jwt secret is empty")
)

// AuthContext is what the rest of the system knows about the caller
type AuthContext struct {
	UserID     string
	Role       model.Role
	TokenValid bool
}

// Authenticator issues and validates user tokens
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator signing with secret. A zero ttl
// issues tokens that never expire.
func NewAuthenticator(secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID with role. An empty userID gets a fresh one.
func (a *Authenticator) Issue(userID string, role model.Role) (*model.LoginResponse, error) {
	if userID == "" {
		userID = "user_" + uuid.New().String()[:8]
	}
	now := a.now()
	claims := &model.UserClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: signed, UserID: userID}, nil
}

// Validate parses a token and returns its claims
func (a *Authenticator) Validate(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Context builds the AuthContext for a token. A missing or bad token yields
// a context with TokenValid false.
func (a *Authenticator) Context(tokenString string) AuthContext {
	if tokenString == "" {
		return AuthContext{Role: -1}
	}
	claims, err := a.Validate(tokenString)
	if err != nil {
		return AuthContext{Role: -1}
	}
	return AuthContext{UserID: claims.UserID, Role: claims.Role, TokenValid: true}
}
