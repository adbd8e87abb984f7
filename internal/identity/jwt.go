package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/randyrahmani/CareLogG8/pkg/config"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// SessionClaims are the JWT claims carried by an access token. Hospital,
// username and role together identify the account the session is bound to.
type SessionClaims struct {
	HospitalID string     `json:"hospital_id"`
	Username   string     `json:"username"`
	Role       types.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates access tokens.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
}

// NewTokenManager creates a token manager from the JWT configuration.
func NewTokenManager(cfg *config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret:   []byte(cfg.SecretKey),
		ttl:      time.Duration(cfg.AccessTokenTTL) * time.Second,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Issue signs an access token for the authenticated account.
func (tm *TokenManager) Issue(hospitalID, username string, role types.Role) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		HospitalID: hospitalID,
		Username:   username,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to sign token", err)
	}
	return signed, nil
}

// Validate parses a token string and returns its claims.
func (tm *TokenManager) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithAudience(tm.audience))
	if err != nil || !token.Valid {
		return nil, &types.CareLogError{
			Type:    types.ErrorTypeAuthentication,
			Code:    "INVALID_TOKEN",
			Message: "token is invalid or expired",
			Cause:   err,
		}
	}
	if !claims.Role.Valid() {
		return nil, &types.CareLogError{
			Type:    types.ErrorTypeAuthentication,
			Code:    "INVALID_TOKEN",
			Message: "token carries an unknown role",
		}
	}
	return claims, nil
}
