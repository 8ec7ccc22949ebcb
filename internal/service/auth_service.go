package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dream-journal/internal/domain"
	"dream-journal/internal/email"
	"dream-journal/internal/repository"
)

// AuthListener recibe la transición de no autenticado a autenticado.
type AuthListener interface {
	OnAuthenticated(ctx context.Context, user domain.User) (ReconcileResult, error)
}

// AuthService es el proveedor de identidad del diario: registro, login y reseteo de contraseña.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	limiter     AttemptLimiter
	listener    AuthListener
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, limiter AttemptLimiter) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewMemoryAttemptLimiter(resetCodeTTL, 3)
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		limiter:     limiter,
	}
}

// SetListener registra quién reacciona a cada login o registro exitoso.
func (s *AuthService) SetListener(listener AuthListener) {
	s.listener = listener
}

var (
	ErrAuthUnavailable    = errors.New("identity provider not configured")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrRateLimited        = errors.New("rate limited")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrResetNotRequested  = errors.New("password reset not requested")
	ErrResetExpired       = errors.New("password reset code expired")
	ErrResetInvalid       = errors.New("password reset code invalid")
)

const (
	minPasswordLength = 6
	resetCodeTTL      = 10 * time.Minute
)

func (s *AuthService) SignUp(ctx context.Context, emailAddr, password, displayName string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, ErrAuthUnavailable
	}
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hashBytes),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserEmailTaken) {
			return domain.User{}, ErrEmailInUse
		}
		return domain.User{}, err
	}

	s.notifyAuthenticated(ctx, user)
	return user, nil
}

func (s *AuthService) SignIn(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, ErrAuthUnavailable
	}
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	if password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	s.notifyAuthenticated(ctx, user)
	return user, nil
}

// GetUser devuelve el usuario dueño de una sesión.
func (s *AuthService) GetUser(ctx context.Context, id string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, ErrAuthUnavailable
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// RequestPasswordReset envía un código de 6 dígitos al email si la cuenta existe.
// Una cuenta inexistente devuelve ErrUserNotFound.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if s.users == nil {
		return ErrAuthUnavailable
	}
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return ErrInvalidEmail
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	code, hash, expiresAt, err := generateResetCode()
	if err != nil {
		return err
	}
	if err := s.users.UpdateOTP(ctx, user.ID, hash, expiresAt); err != nil {
		return err
	}

	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	if err := s.emailSender.SendPasswordResetCode(ctx, emailAddr, code, expiresAt); err != nil {
		s.logger.Warn("send password reset code failed", zap.Error(err), zap.String("email", emailAddr))
		return ErrEmailSendFailure
	}
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, emailAddr, code, newPassword string) error {
	if s.users == nil {
		return ErrAuthUnavailable
	}
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if !isValidEmail(emailAddr) {
		return ErrInvalidEmail
	}
	if !isValidResetCode(code) {
		return ErrResetInvalid
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.OtpCodeHash == "" || user.OtpExpiresAt == nil {
		return ErrResetNotRequested
	}
	if time.Now().UTC().After(*user.OtpExpiresAt) {
		return ErrResetExpired
	}
	if !verifyResetCode(code, user.OtpCodeHash) {
		return ErrResetInvalid
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, string(hashBytes))
}

func (s *AuthService) notifyAuthenticated(ctx context.Context, user domain.User) {
	if s.listener == nil {
		return
	}
	result, err := s.listener.OnAuthenticated(ctx, user)
	if err != nil {
		s.logger.Warn("sync reconciliation failed", zap.Error(err), zap.String("user_id", user.ID))
		return
	}
	s.logger.Info("sync reconciliation done",
		zap.String("user_id", user.ID),
		zap.Int("local", result.Local),
		zap.Int("remote", result.Remote),
		zap.Int("uploaded", result.Uploaded),
		zap.Int("failed", result.Failed),
	)
}

// UserMessage traduce un fallo de autenticación a un texto mostrable al usuario.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email format"
	case errors.Is(err, ErrInvalidCredentials):
		return "Wrong password"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrEmailInUse):
		return "This email is already in use"
	case errors.Is(err, ErrWeakPassword):
		return fmt.Sprintf("Password must be at least %d characters", minPasswordLength)
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts, try again later"
	case errors.Is(err, ErrEmailSendFailure):
		return "Could not send the email, try again later"
	case errors.Is(err, ErrResetNotRequested):
		return "No password reset was requested for this email"
	case errors.Is(err, ErrResetExpired):
		return "The reset code has expired"
	case errors.Is(err, ErrResetInvalid):
		return "The reset code is invalid"
	case errors.Is(err, ErrAuthUnavailable):
		return "Accounts are not available right now"
	case errors.Is(err, context.DeadlineExceeded):
		return "Network error, check your internet connection"
	default:
		return "An unknown error occurred"
	}
}

func generateResetCode() (string, string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", time.Time{}, err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", time.Time{}, err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	return code, saltStr + ":" + hashResetCode(saltStr, code), time.Now().UTC().Add(resetCodeTTL), nil
}

func hashResetCode(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func verifyResetCode(code, stored string) bool {
	salt, expected, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashResetCode(salt, code)), []byte(expected)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isValidResetCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
