// auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
	"medshop-backend/internal/sms"
)

// Interfaz que debe implementar el repositorio de usuarios
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	UpsertByPhone(ctx context.Context, phone string) (*model.User, error)
	SetPassword(ctx context.Context, phone, passwordHash string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) error
}

var ErrPrincipalNotFound = apperror.New("PRINCIPAL_NOT_FOUND", http.StatusUnauthorized, "account no longer exists")

var (
	phoneRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// resendCooldownSec es lo que el cliente debe esperar antes de pedir
// reenvío (informativo; el límite duro lo pone la ventana de redis).
const resendCooldownSec = 60

type AuthService struct {
	users  UserRepository
	otps   *OtpService
	tokens *TokenService
	sender sms.Sender
}

func NewAuthService(users UserRepository, otps *OtpService, tokens *TokenService, sender sms.Sender) *AuthService {
	return &AuthService{users: users, otps: otps, tokens: tokens, sender: sender}
}

type OtpSendResult struct {
	Provider       string `json:"provider"`
	ResendCooldown int    `json:"resendCooldown"`
}

type AuthTokens struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
}

// SendOtp genera el código y lo despacha por SMS. El código jamás
// aparece en la respuesta HTTP.
func (a *AuthService) SendOtp(ctx context.Context, phone, purpose string) (*OtpSendResult, error) {
	if !phoneRe.MatchString(phone) {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"phone": "must be 10 to 15 digits"})
	}

	// Para login de admin no se manda SMS a cuentas que no son admin
	if purpose == model.PurposeAdminLogin {
		u, err := a.users.FindByPhone(ctx, phone)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsAdmin) {
			return nil, apperror.ErrForbidden.WithMessage("admin account required")
		}
		if err != nil {
			return nil, err
		}
	}

	code, err := a.otps.Generate(ctx, phone, purpose)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Your MedShop verification code is %s. It expires in 5 minutes.", code)
	res, err := a.sender.Send(ctx, phone, message)
	if err != nil {
		return nil, apperror.ErrUnavailable.WithMessage("could not deliver SMS, try again later")
	}

	return &OtpSendResult{Provider: res.Provider, ResendCooldown: resendCooldownSec}, nil
}

// VerifyOtp consume el código de LOGIN. El primer login verificado
// crea la cuenta (upsert por teléfono).
func (a *AuthService) VerifyOtp(ctx context.Context, phone, code string) (*AuthTokens, error) {
	if err := a.otps.Verify(ctx, phone, code, model.PurposeLogin); err != nil {
		return nil, err
	}
	user, err := a.users.UpsertByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return a.issueTokens(user)
}

// VerifyAdminOtp exige, además del código, una cuenta existente con el
// flag de admin en la base. El claim del token sale de ese flag.
func (a *AuthService) VerifyAdminOtp(ctx context.Context, phone, code string) (*AuthTokens, error) {
	if err := a.otps.Verify(ctx, phone, code, model.PurposeAdminLogin); err != nil {
		return nil, err
	}
	user, err := a.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrForbidden.WithMessage("admin account required")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, apperror.ErrForbidden.WithMessage("admin account required")
	}
	return a.issueTokens(user)
}

// ResetPassword consume un código RESET y fija la nueva contraseña.
func (a *AuthService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	if len(newPassword) < 6 {
		return apperror.ErrValidation.WithFields(map[string]string{"newPassword": "must be at least 6 characters"})
	}
	if err := a.otps.Verify(ctx, phone, code, model.PurposeReset); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := a.users.SetPassword(ctx, phone, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrNotFound.WithMessage("no account for this phone")
		}
		return err
	}
	return nil
}

// UpdateProfile actualiza nombre y/o email del usuario autenticado.
func (a *AuthService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, email string) (*model.User, error) {
	if name == "" && email == "" {
		return nil, apperror.ErrValidation.WithMessage("nothing to update")
	}
	if email != "" && !emailRe.MatchString(email) {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"email": "invalid email"})
	}
	if err := a.users.UpdateProfile(ctx, userID, name, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return a.users.FindByID(ctx, userID)
}

// Refresh emite un access token nuevo a partir de un refresh válido.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := a.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", apperror.ErrInvalidToken
	}
	user, err := a.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrPrincipalNotFound
	}
	if err != nil {
		return "", err
	}
	return a.tokens.IssueAccess(user)
}

func (a *AuthService) issueTokens(user *model.User) (*AuthTokens, error) {
	access, err := a.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := a.tokens.IssueRefresh(user)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{User: user, AccessToken: access, RefreshToken: refresh}, nil
}
