package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/examportal/backend/internal/config"
	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims extends JWT standard claims with admin identity.
type Claims struct {
	jwt.RegisteredClaims
	AdminID uuid.UUID  `json:"admin_id"`
	OrgID   *uuid.UUID `json:"org_id,omitempty"`
}

// AuthService handles admin authentication and JWT lifecycle. Students
// never log in; they reach exams through the access gate.
type AuthService struct {
	cfg       *config.Config
	rdb       *redis.Client
	adminRepo *repository.AdminRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, adminRepo *repository.AdminRepository) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, adminRepo: adminRepo}
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

// Login verifies credentials and returns a signed admin token. The token's
// JTI is stored in Redis so tokens can be revoked server-side.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.AdminLoginResponse, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   admin.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		AdminID: admin.ID,
		OrgID:   admin.OrgID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	sessionKey := config.CacheKey.AdminSessionKey(admin.ID.String())
	if err := s.rdb.Set(ctx, sessionKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &model.AdminLoginResponse{Token: signed, Admin: *admin}, nil
}

// Profile loads the authenticated admin's account.
func (s *AuthService) Profile(ctx context.Context, adminID uuid.UUID) (*model.Admin, error) {
	return s.adminRepo.GetByID(ctx, adminID)
}

// Logout drops the admin's active session, invalidating the token.
func (s *AuthService) Logout(ctx context.Context, adminID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.AdminSessionKey(adminID.String())).Err()
}

// ValidateToken parses and validates a JWT, returning the claims. A token
// whose JTI no longer matches the stored session is rejected.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*Claims, error) {
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
		return nil, errors.New("invalid token")
	}

	stored, err := s.rdb.Get(ctx, config.CacheKey.AdminSessionKey(claims.AdminID.String())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.New("session expired")
		}
		return nil, fmt.Errorf("check session: %w", err)
	}
	if stored != claims.ID {
		return nil, errors.New("session superseded")
	}
	return claims, nil
}
