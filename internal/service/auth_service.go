package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims extends JWT standard claims with the staff identity used as the
// audit actor.
type Claims struct {
	jwt.RegisteredClaims
	StaffID int64           `json:"staff_id"`
	Name    string          `json:"name"`
	Role    model.StaffRole `json:"role"`
}

// Actor converts the claims into the audit identity.
func (c *Claims) Actor() *model.Actor {
	return &model.Actor{ID: c.StaffID, Name: c.Name, Role: c.Role}
}

// AuthService handles staff authentication and JWTs.
type AuthService struct {
	cfg   *config.Config
	store repository.Store
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, store repository.Store) *AuthService {
	return &AuthService{cfg: cfg, store: store}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Staff, error) {
	staff, err := s.store.GetStaffByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get staff: %w", err)
	}
	if err := s.CheckPassword(staff.PasswordHash, password); err != nil {
		return "", nil, err
	}

	token, err := s.GenerateStaffToken(staff)
	if err != nil {
		return "", nil, err
	}
	return token, staff, nil
}

// GenerateStaffToken creates a JWT carrying the staff member's role.
func (s *AuthService) GenerateStaffToken(staff *model.Staff) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(staff.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		StaffID: staff.ID,
		Name:    staff.Name,
		Role:    staff.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// GetStaff retrieves the account behind a token.
func (s *AuthService) GetStaff(ctx context.Context, id int64) (*model.Staff, error) {
	staff, err := s.store.GetStaffByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return staff, nil
}

// CreateStaff hashes the password and stores a new account.
func (s *AuthService) CreateStaff(ctx context.Context, email, name string, role model.StaffRole, password string) (*model.Staff, error) {
	if role != model.StaffRoleAdmin && role != model.StaffRoleTeacher {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	staff := &model.Staff{
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.store.CreateStaff(ctx, staff); err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	return staff, nil
}
