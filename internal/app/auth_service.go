package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const defaultBcryptCost = 12

var (
	ErrInvalidCredentials = apperr.Unauthenticated("invalid credentials")
	ErrTokenExpired       = apperr.Unauthenticated("token has expired")
	ErrTokenInvalid       = apperr.Unauthenticated("invalid token")
	ErrUserInactive       = apperr.Unauthenticated("user not found or inactive")
	ErrWrongPassword      = apperr.Unauthenticated("current password is incorrect")
)

// Claims is the payload of an access token.
type Claims struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Role  user.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService registers users, checks passwords and issues HS256 tokens.
type AuthService struct {
	userRepo   user.Repository
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	logger     *logrus.Entry
	now        func() time.Time
}

func NewAuthService(ur user.Repository, secret string, tokenTTL time.Duration, logger *logrus.Entry) *AuthService {
	return &AuthService{
		userRepo:   ur,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		bcryptCost: defaultBcryptCost,
		logger:     logger.WithField("service", "AuthService"),
		now:        time.Now,
	}
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.Validation("email is not a valid address")
	}
	return email, nil
}

// Register creates an active account. An empty role means facilitator.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role user.Role) (*user.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("name, email, and password are required")
	}
	if role == "" {
		role = user.RoleFacilitator
	}
	if !role.Valid() {
		return nil, apperr.Validation("invalid role, must be facilitator, manager, or admin")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("user with this email already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	u := &user.User{Name: name, Email: email, PasswordHash: hashed, Role: role, IsActive: true}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("User registered")
	return u, nil
}

// Login checks the credentials of an active user and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	if email == "" || password == "" {
		return "", nil, apperr.Validation("email and password are required")
	}
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) IssueToken(u *user.User) (string, error) {
	now := s.now()
	claims := Claims{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate resolves a token to its user, which must still exist and be
// active.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*user.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	u, err := s.userRepo.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUserInactive
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}
	return u, nil
}

func (s *AuthService) Profile(ctx context.Context, userID int64) (*user.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile changes the caller's own name and e-mail. Empty values keep
// the stored ones.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, name, email string) (*user.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = name
	}
	if email != "" {
		if u.Email, err = normalizeEmail(email); err != nil {
			return nil, err
		}
	}
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("current password and new password are required")
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	if u.PasswordHash, err = s.hash(next); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u); err != nil {
		return err
	}
	s.logger.WithField("user_id", u.ID).Info("Password changed")
	return nil
}
