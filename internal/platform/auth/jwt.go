package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/luxsuv-accounts/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

type Claims struct {
	Sub       int64     `json:"uid"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what login, verify and signup hand back to the client.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh_token"`
}

// TokenError is a malformed, expired, wrong-type or revoked token.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *TokenError) Unwrap() error { return e.Err }

var ErrTokenRevoked = errors.New("token is blacklisted")

// Blacklist stores revoked refresh token ids.
type Blacklist interface {
	// Add records jti for ttl. It returns false when jti was already present.
	Add(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	Contains(ctx context.Context, jti string) (bool, error)
}

type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	blacklist  Blacklist
	now        func() time.Time
}

func NewIssuer(cfg config.AuthConfig, blacklist Blacklist) *Issuer {
	return &Issuer{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		blacklist:  blacklist,
		now:        time.Now,
	}
}

// Issue mints an access and a refresh token for the account.
func (i *Issuer) Issue(sub int64, username, role string) (TokenPair, error) {
	access, err := i.sign(sub, username, role, TokenAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(sub, username, role, TokenRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a live, non-revoked refresh token for a new access token.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := i.parse(refreshToken, TokenRefresh)
	if err != nil {
		return "", err
	}

	revoked, err := i.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return "", &TokenError{Reason: "token is invalid or expired", Err: ErrTokenRevoked}
	}

	access, err := i.sign(claims.Sub, claims.Username, claims.Role, TokenAccess, i.accessTTL)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

// Revoke blacklists the refresh token until it would have expired anyway.
func (i *Issuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := i.parse(refreshToken, TokenRefresh)
	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Sub(i.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	added, err := i.blacklist.Add(ctx, claims.ID, ttl)
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	if !added {
		return &TokenError{Reason: "token is invalid or expired", Err: ErrTokenRevoked}
	}
	return nil
}

// ParseAccess validates a bearer token. Refresh tokens are rejected.
func (i *Issuer) ParseAccess(tokenString string) (*Claims, error) {
	return i.parse(tokenString, TokenAccess)
}

func (i *Issuer) sign(sub int64, username, role string, typ TokenType, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Sub:       sub,
		Username:  username,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) parse(tokenString string, want TokenType) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &TokenError{Reason: "token is expired", Err: err}
		}
		return nil, &TokenError{Reason: "token is invalid", Err: err}
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, &TokenError{Reason: "token is invalid"}
	}
	if claims.TokenType != want {
		return nil, &TokenError{Reason: fmt.Sprintf("token has wrong type %q", claims.TokenType)}
	}
	if claims.ID == "" {
		return nil, &TokenError{Reason: "token has no id"}
	}
	return claims, nil
}
