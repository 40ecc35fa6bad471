// otp_service.go
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/model"
	"medshop-backend/internal/ratelimit"
	"medshop-backend/internal/repository"
)

// MaxVerifyAttempts es el tope de intentos fallidos por código.
const MaxVerifyAttempts = 5

const otpDigits = 6

// Interfaz que debe implementar el repositorio de OTPs
type OTPRepository interface {
	Create(ctx context.Context, otp *model.OTP) error
	FindActive(ctx context.Context, phone, purpose string) (*model.OTP, error)
	CountRecentSends(ctx context.Context, phone, purpose string, window time.Duration) (int64, error)
	ConsumeAttempt(ctx context.Context, id primitive.ObjectID, maxAttempts int) (*model.OTP, error)
	MarkUsed(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// SendLimiter es la ventana de envíos compartida entre instancias.
type SendLimiter interface {
	Allow(ctx context.Context, key string) (int64, time.Duration, error)
}

var (
	ErrOtpNotFound = apperror.New("OTP_NOT_FOUND", http.StatusNotFound, "no active code for this phone, request a new one")
	ErrOtpExpired  = apperror.New("OTP_EXPIRED", http.StatusBadRequest, "code expired, request a new one")
	ErrOtpLocked   = apperror.New("OTP_LOCKED", http.StatusTooManyRequests, "too many failed attempts, request a new code")
	ErrOtpInvalid  = apperror.New("OTP_INVALID", http.StatusBadRequest, "incorrect code")
)

type OtpService struct {
	repo       OTPRepository
	limiter    SendLimiter
	ttl        time.Duration
	maxSends   int
	sendWindow time.Duration
	now        func() time.Time
}

func NewOtpService(repo OTPRepository, limiter SendLimiter, ttl time.Duration, maxSends int, sendWindow time.Duration) *OtpService {
	return &OtpService{
		repo:       repo,
		limiter:    limiter,
		ttl:        ttl,
		maxSends:   maxSends,
		sendWindow: sendWindow,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate crea un código de 6 dígitos para (phone, purpose). Persiste
// solo el hash; el texto plano se devuelve únicamente para el envío por
// SMS y no queda guardado en ningún lado.
func (s *OtpService) Generate(ctx context.Context, phone, purpose string) (string, error) {
	count, retryAfter, err := s.limiter.Allow(ctx, purpose+":"+phone)
	if errors.Is(err, ratelimit.ErrLimited) {
		return "", apperror.ErrRateLimited.WithMessage(
			fmt.Sprintf("too many codes requested, retry in %d seconds", int(retryAfter.Seconds())))
	}
	if err != nil {
		// Redis caído: la ventana se degrada al conteo sobre el store
		sent, cerr := s.repo.CountRecentSends(ctx, phone, purpose, s.sendWindow)
		if cerr != nil {
			return "", apperror.ErrUnavailable.WithMessage("rate limit store unavailable")
		}
		if sent >= int64(s.maxSends) {
			return "", apperror.ErrRateLimited
		}
		count = sent + 1
	}

	code, err := randomCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	now := s.now()
	otp := &model.OTP{
		Phone:     phone,
		OtpHash:   string(hash),
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl),
		Attempts:  0,
		SendCount: int(count),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, otp); err != nil {
		return "", err
	}
	return code, nil
}

// Verify valida el código contra el registro activo más reciente.
// Cada intento (falle o no) queda persistido antes de responder, así
// dos requests concurrentes no pueden pasar juntas el tope de intentos.
func (s *OtpService) Verify(ctx context.Context, phone, candidate, purpose string) error {
	rec, err := s.repo.FindActive(ctx, phone, purpose)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOtpNotFound
	}
	if err != nil {
		return err
	}

	if s.now().After(rec.ExpiresAt) {
		// Se marca usado para que no pueda reintentarse
		if _, err := s.repo.MarkUsed(ctx, rec.ID); err != nil {
			return err
		}
		return ErrOtpExpired
	}

	if rec.Attempts >= MaxVerifyAttempts {
		return ErrOtpLocked
	}

	// Incremento atómico: si otra request lo bloqueó o consumió
	// mientras tanto, acá se corta.
	after, err := s.repo.ConsumeAttempt(ctx, rec.ID, MaxVerifyAttempts)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOtpLocked
	}
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.OtpHash), []byte(candidate)) != nil {
		remaining := MaxVerifyAttempts - after.Attempts
		if remaining < 0 {
			remaining = 0
		}
		return ErrOtpInvalid.WithMessage(fmt.Sprintf("incorrect code, %d attempts remaining", remaining))
	}

	used, err := s.repo.MarkUsed(ctx, rec.ID)
	if err != nil {
		return err
	}
	if !used {
		// Otra request consumió el código primero: vale una sola vez
		return ErrOtpNotFound
	}
	return nil
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
