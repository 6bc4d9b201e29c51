package service

import (
	"errors"
	"fmt"
	"time"

	"collection-gateway/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

const staffRole = "staff"

var (
	errStaffSessionClaims = errors.New("staff session has unreadable claims")
	errNotStaffSession    = errors.New("session was not issued to back-office staff")
	errStaffSessionNoUser = errors.New("staff session names no operator")
)

// JWTTokenService issues and checks back-office staff sessions. A session is
// an HS256 token carrying the operator's username and the staff role; the
// merchant API never accepts one.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate opens a staff session for username and returns the token with its
// expiry.
func (s *JWTTokenService) Generate(username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":  username,
		"role": staffRole,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing staff session: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate accepts only unexpired HMAC-signed sessions from this gateway's
// issuer that carry the staff role.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("staff session signed with %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("staff session rejected: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errStaffSessionClaims
	}
	if role, _ := claims["role"].(string); role != staffRole {
		return nil, errNotStaffSession
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errStaffSessionNoUser
	}

	return &ports.TokenClaims{Username: sub}, nil
}
