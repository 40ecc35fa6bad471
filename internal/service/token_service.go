// token_service.go
package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/model"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

type Claims struct {
	UserID    string `json:"uid"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (t *TokenService) IssueAccess(u *model.User) (string, error) {
	return t.issue(u, TokenTypeAccess, t.accessTTL)
}

func (t *TokenService) IssueRefresh(u *model.User) (string, error) {
	return t.issue(u, TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenService) issue(u *model.User, tokenType string, ttl time.Duration) (string, error) {
	role := RoleCustomer
	if u.IsAdmin {
		role = RoleAdmin
	}
	now := time.Now()
	claims := Claims{
		UserID:    u.ID.Hex(),
		Phone:     u.Phone,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse valida firma, expiración y tipo. Un token vencido se distingue
// de uno inválido: responden 401 con mensajes distintos.
func (t *TokenService) Parse(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("método de firma inesperado")
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.ErrTokenExpired
		}
		return nil, apperror.ErrInvalidToken
	}
	if !token.Valid {
		return nil, apperror.ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, apperror.ErrInvalidToken.WithMessage("wrong token type")
	}
	return claims, nil
}
