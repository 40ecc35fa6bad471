package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
	"medshop-backend/internal/sms"
)

type fakeAuthUserRepo struct {
	users map[primitive.ObjectID]*model.User
}

func newFakeAuthUserRepo(users ...*model.User) *fakeAuthUserRepo {
	f := &fakeAuthUserRepo{users: map[primitive.ObjectID]*model.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeAuthUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAuthUserRepo) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	for _, u := range f.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAuthUserRepo) UpsertByPhone(ctx context.Context, phone string) (*model.User, error) {
	if u, err := f.FindByPhone(ctx, phone); err == nil {
		return u, nil
	}
	u := &model.User{ID: primitive.NewObjectID(), Phone: phone, CreatedAt: time.Now().UTC()}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeAuthUserRepo) SetPassword(ctx context.Context, phone, passwordHash string) error {
	for _, u := range f.users {
		if u.Phone == phone {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeAuthUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	return nil
}

// captureSender guarda los SMS enviados para inspeccionarlos.
type captureSender struct {
	messages []string
	fail     bool
}

func (s *captureSender) Send(ctx context.Context, phone, message string) (*sms.Result, error) {
	if s.fail {
		return nil, errors.New("proveedor caído")
	}
	s.messages = append(s.messages, message)
	return &sms.Result{Provider: "test", MessageID: "m-1"}, nil
}

var codeRe = regexp.MustCompile(`\b([0-9]{6})\b`)

func newAuthFixture(t *testing.T, users ...*model.User) (*AuthService, *fakeAuthUserRepo, *captureSender) {
	t.Helper()
	otps, _ := newTestOtpService(t, 3)
	repo := newFakeAuthUserRepo(users...)
	sender := &captureSender{}
	tokens := NewTokenService("secret", time.Minute, time.Hour)
	return NewAuthService(repo, otps, tokens, sender), repo, sender
}

func lastCode(t *testing.T, sender *captureSender) string {
	t.Helper()
	if len(sender.messages) == 0 {
		t.Fatal("no se envió ningún SMS")
	}
	m := codeRe.FindStringSubmatch(sender.messages[len(sender.messages)-1])
	if m == nil {
		t.Fatalf("el SMS no contiene un código de 6 dígitos: %q", sender.messages)
	}
	return m[1]
}

func TestSendOtpValidatesPhone(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	_, err := svc.SendOtp(context.Background(), "12345", model.PurposeLogin)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("teléfono corto: err = %v", err)
	}
}

func TestSendOtpFailsWhenSMSProviderIsDown(t *testing.T) {
	svc, _, sender := newAuthFixture(t)
	sender.fail = true
	_, err := svc.SendOtp(context.Background(), "9876543210", model.PurposeLogin)
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("proveedor caído: err = %v", err)
	}
}

// El primer login verificado crea la cuenta. El segundo la reusa.
func TestVerifyOtpCreatesAccountOnFirstLogin(t *testing.T) {
	svc, repo, sender := newAuthFixture(t)
	ctx := context.Background()

	if _, err := svc.SendOtp(ctx, "9876543210", model.PurposeLogin); err != nil {
		t.Fatal(err)
	}
	tokens, err := svc.VerifyOtp(ctx, "9876543210", lastCode(t, sender))
	if err != nil {
		t.Fatal(err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Error("faltan tokens en la respuesta")
	}
	if tokens.User.Phone != "9876543210" || tokens.User.IsAdmin {
		t.Errorf("usuario creado: %+v", tokens.User)
	}

	first := tokens.User.ID
	if _, err := svc.SendOtp(ctx, "9876543210", model.PurposeLogin); err != nil {
		t.Fatal(err)
	}
	tokens2, err := svc.VerifyOtp(ctx, "9876543210", lastCode(t, sender))
	if err != nil {
		t.Fatal(err)
	}
	if tokens2.User.ID != first {
		t.Error("el segundo login debía reusar la cuenta")
	}
	if len(repo.users) != 1 {
		t.Errorf("usuarios en el repo: %d", len(repo.users))
	}
}

// El flujo admin no manda SMS a cuentas que no son admin, y verificar
// exige el flag persistido.
func TestAdminOtpRequiresAdminAccount(t *testing.T) {
	regular := &model.User{ID: primitive.NewObjectID(), Phone: "1111111111"}
	admin := &model.User{ID: primitive.NewObjectID(), Phone: "2222222222", IsAdmin: true}
	svc, _, sender := newAuthFixture(t, regular, admin)
	ctx := context.Background()

	if _, err := svc.SendOtp(ctx, "1111111111", model.PurposeAdminLogin); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("cuenta común: err = %v", err)
	}
	if _, err := svc.SendOtp(ctx, "5555555555", model.PurposeAdminLogin); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("cuenta inexistente: err = %v", err)
	}
	if len(sender.messages) != 0 {
		t.Fatalf("no debía salir ningún SMS: %v", sender.messages)
	}

	if _, err := svc.SendOtp(ctx, "2222222222", model.PurposeAdminLogin); err != nil {
		t.Fatal(err)
	}
	tokens, err := svc.VerifyAdminOtp(ctx, "2222222222", lastCode(t, sender))
	if err != nil {
		t.Fatal(err)
	}
	if !tokens.User.IsAdmin {
		t.Error("el usuario debía ser admin")
	}
}

// Un código de LOGIN no sirve para resetear contraseña: los propósitos
// están separados.
func TestResetPasswordRequiresResetPurpose(t *testing.T) {
	user := &model.User{ID: primitive.NewObjectID(), Phone: "9876543210"}
	svc, repo, sender := newAuthFixture(t, user)
	ctx := context.Background()

	if _, err := svc.SendOtp(ctx, "9876543210", model.PurposeLogin); err != nil {
		t.Fatal(err)
	}
	loginCode := lastCode(t, sender)
	if err := svc.ResetPassword(ctx, "9876543210", loginCode, "nuevaClave1"); !errors.Is(err, ErrOtpNotFound) {
		t.Fatalf("código LOGIN usado para RESET: err = %v", err)
	}

	if _, err := svc.SendOtp(ctx, "9876543210", model.PurposeReset); err != nil {
		t.Fatal(err)
	}
	if err := svc.ResetPassword(ctx, "9876543210", lastCode(t, sender), "nuevaClave1"); err != nil {
		t.Fatal(err)
	}

	hash := repo.users[user.ID].PasswordHash
	if hash == "" || hash == "nuevaClave1" {
		t.Fatalf("la contraseña debía quedar hasheada: %q", hash)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("nuevaClave1")) != nil {
		t.Error("el hash no corresponde a la contraseña nueva")
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	user := &model.User{ID: primitive.NewObjectID(), Phone: "9876543210"}
	svc, repo, _ := newAuthFixture(t, user)

	refresh, err := svc.tokens.IssueRefresh(user)
	if err != nil {
		t.Fatal(err)
	}
	access, err := svc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.tokens.Parse(access, TokenTypeAccess)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != user.ID.Hex() {
		t.Errorf("claims: %+v", claims)
	}

	// Cuenta borrada entre la emisión y el refresh
	delete(repo.users, user.ID)
	if _, err := svc.Refresh(context.Background(), refresh); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("cuenta borrada: err = %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	user := &model.User{ID: primitive.NewObjectID(), Phone: "9876543210"}
	svc, _, _ := newAuthFixture(t, user)
	ctx := context.Background()

	if _, err := svc.UpdateProfile(ctx, user.ID, "", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("sin campos: err = %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, user.ID, "", "no-es-email"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("email inválido: err = %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, "Ana", "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Ana" || updated.Email != "ana@example.com" {
		t.Errorf("perfil: %+v", updated)
	}
}
