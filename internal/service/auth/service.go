package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/projecthub/backend/internal/logger"
	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	"github.com/zhouzirui/projecthub/backend/internal/service/mail"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const resetCodeTTL = 15 * time.Minute

// Service owns identity: password hashing, token issue/verify, and the
// two password-reset flows (emailed code, admin-mediated).
type Service struct {
	users    user.Store
	codes    reset.CodeStore
	requests reset.RequestStore
	mailer   mail.Mailer
	secret   []byte
	tokenTTL time.Duration
}

// NewService wires the auth service to its stores and mailer.
func NewService(users user.Store, codes reset.CodeStore, requests reset.RequestStore, mailer mail.Mailer, secret []byte, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	return &Service{
		users:    users,
		codes:    codes,
		requests: requests,
		mailer:   mailer,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// Register creates an account with role "user" and returns it with a
// fresh access token. Duplicate usernames or emails surface the store's
// sentinel errors.
func (s *Service) Register(ctx context.Context, username, email, password string) (user.User, string, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return user.User{}, "", err
	}

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return user.User{}, "", err
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// Login checks credentials and returns the account with a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (user.User, string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, "", ErrInvalidCredentials
		}
		return user.User{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return user.User{}, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// IssueToken signs a short-lived HS256 bearer token for the user.
func (s *Service) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature and expiry and returns the subject.
func (s *Service) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// CurrentUser resolves a bearer token to its account.
func (s *Service) CurrentUser(ctx context.Context, token string) (user.User, error) {
	userID, err := s.VerifyToken(token)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrInvalidToken
		}
		return user.User{}, err
	}
	return u, nil
}

// ResetOutcome describes how a reset request was routed.
type ResetOutcome struct {
	HasEmail  bool
	EmailSent bool
}

// RequestReset starts a password reset for the account matching the
// username or email. Accounts with an email get a six-digit code with a
// 15 minute expiry; accounts without one get a pending admin request.
func (s *Service) RequestReset(ctx context.Context, usernameOrEmail string) (ResetOutcome, error) {
	u, err := s.users.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return ResetOutcome{}, err
	}

	now := time.Now().UTC()

	if u.Email == "" {
		req := reset.Request{
			ID:          uuid.NewString(),
			UserID:      u.ID,
			Username:    u.Username,
			Status:      reset.StatusPending,
			RequestedAt: now,
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return ResetOutcome{}, fmt.Errorf("create admin reset request: %w", err)
		}
		return ResetOutcome{HasEmail: false}, nil
	}

	code, err := generateResetCode()
	if err != nil {
		return ResetOutcome{}, err
	}
	rec := reset.Code{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(resetCodeTTL),
	}
	if err := s.codes.Save(ctx, rec); err != nil {
		return ResetOutcome{}, fmt.Errorf("save reset code: %w", err)
	}

	outcome := ResetOutcome{HasEmail: true, EmailSent: true}
	if err := s.mailer.SendResetCode(ctx, u.Email, code); err != nil {
		logger.Errorf("[auth] reset email delivery failed for %s: %v", u.Username, err)
		outcome.EmailSent = false
	}
	return outcome, nil
}

// ResetPassword redeems an emailed code and installs the new password.
func (s *Service) ResetPassword(ctx context.Context, usernameOrEmail, code, newPassword string) error {
	u, err := s.users.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return err
	}

	if _, err := s.codes.Consume(ctx, u.ID, code); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, u.ID, hash)
}

// AdminResetPassword force-resets an account to a generated temporary
// password, completing any pending admin reset requests for it. The
// temporary password is returned for the admin to hand over.
func (s *Service) AdminResetPassword(ctx context.Context, userID string) (string, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return "", err
	}

	temp, err := generateTempPassword()
	if err != nil {
		return "", err
	}
	hash, err := hashPassword(temp)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return "", err
	}
	if err := s.requests.CompleteForUser(ctx, userID); err != nil {
		logger.Errorf("[auth] completing reset requests failed for %s: %v", userID, err)
	}
	return temp, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func generateResetCode() (string, error) {
	const digits = "0123456789"
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("generate reset code: %w", err)
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}

func generateTempPassword() (string, error) {
	raw := make([]byte, 9)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
