package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sahilchouksey/e-center-api/model"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Token types carried in Claims.TokenType
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	Expiry        time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// Claims represents JWT claims
type Claims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenType    string `json:"token_type"`
	TokenVersion int    `json:"token_version"` // For invalidating all tokens
	jwt.RegisteredClaims
}

// Token is a signed token with its identifier and expiry
type Token struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// TokenPair is what a successful login or refresh hands out
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// JWTManager handles JWT token operations
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.Expiry == 0 {
		config.Expiry = 15 * time.Minute
	}
	if config.RefreshExpiry == 0 {
		config.RefreshExpiry = 7 * 24 * time.Hour
	}
	return &JWTManager{
		config: config,
	}
}

// Issue signs a token of tokenType for user
func (j *JWTManager) Issue(user *model.User, tokenType string) (*Token, error) {
	now := time.Now()
	ttl := j.config.Expiry
	if tokenType == TokenTypeRefresh {
		ttl = j.config.RefreshExpiry
	}
	expiresAt := now.Add(ttl)
	jti := uuid.New().String()

	claims := Claims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenType:    tokenType,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			Subject:   user.Email,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.config.Secret))
	if err != nil {
		return nil, err
	}
	return &Token{Value: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// IssuePair signs a fresh access and refresh token for user
func (j *JWTManager) IssuePair(user *model.User) (*TokenPair, error) {
	access, err := j.Issue(user, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := j.Issue(user, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "Bearer",
		ExpiresIn:    int64(j.config.Expiry.Seconds()),
	}, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(j.config.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// ValidateTyped validates tokenString and checks it is of tokenType
func (j *JWTManager) ValidateTyped(tokenString, tokenType string) (*Claims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
