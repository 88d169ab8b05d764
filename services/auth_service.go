package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg"
)

// tokenIssuer is the iss claim on tokens minted here.
const tokenIssuer = "shopchat"

// AuthService validates bearer access tokens. Sign-in itself belongs to the
// storefront's session layer; IssueAccessToken exists for the developer
// token tool and tests.
type AuthService interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	IssueAccessToken(userID string) (string, error)
}

type authService struct {
	jwtSecret []byte
	accessExp time.Duration
	now       func() time.Time
}

// NewAuthService creates an HS256 token service.
func NewAuthService(jwtSecret string, accessExpiry time.Duration) AuthService {
	return &authService{
		jwtSecret: []byte(jwtSecret),
		accessExp: accessExpiry,
		now:       time.Now,
	}
}

func (s *authService) IssueAccessToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", pkg.ErrBadRequest)
	}

	now := s.now()
	claims := &models.TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	return claims, nil
}
